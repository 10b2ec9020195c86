package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	aawasm "github.com/wippyai/aa-wasm"
	"github.com/wippyai/aa-wasm/errors"
)

const (
	defaultTimeout = 30 * time.Second
	defaultBackoff = 250 * time.Millisecond

	// maxAssetSize caps a single download; unit binaries and manifests are
	// far below this.
	maxAssetSize = 256 << 20
)

// Fetcher retrieves assets by location. http and https URLs are fetched with
// GET, file URLs and bare paths are read from the local filesystem.
type Fetcher struct {
	client    *http.Client
	userAgent string
	backoff   time.Duration
	attempts  int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

// WithAttempts sets how many times a transient failure is tried in total.
// The default is 1: every asset is requested exactly once.
func WithAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithBackoff sets the delay between attempts; attempt k waits k*d.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithUserAgent sets the User-Agent header of HTTP requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		attempts:  1,
		backoff:   defaultBackoff,
		userAgent: "aa-wasm",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the raw bytes at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.New(errors.PhaseFetch, errors.KindInvalidInput).
			URL(location).
			Cause(err).
			Build()
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, location)
	case "file":
		return readFile(location, u.Path)
	case "":
		return readFile(location, location)
	default:
		return nil, errors.New(errors.PhaseFetch, errors.KindInvalidInput).
			URL(location).
			Detail("unsupported scheme %q", u.Scheme).
			Build()
	}
}

// FetchText returns the UTF-8 text at location.
func (f *Fetcher) FetchText(ctx context.Context, location string) (string, error) {
	return Text(ctx, f, location)
}

// Text fetches location through any fetcher and returns it as text. Content
// that is not valid UTF-8 fails with KindInvalidData.
func Text(ctx context.Context, f aawasm.Fetcher, location string) (string, error) {
	data, err := f.Fetch(ctx, location)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New(errors.PhaseFetch, errors.KindInvalidData).
			URL(location).
			Detail("content is not valid UTF-8").
			Build()
	}
	return string(data), nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			Logger().Debug("retrying fetch",
				zap.String("url", location),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, errors.Unreachable(location, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * f.backoff):
			}
		}

		data, transient, err := f.get(ctx, location)
		if err == nil {
			Logger().Debug("fetched",
				zap.String("url", location),
				zap.Int("bytes", len(data)))
			return data, nil
		}
		lastErr = err
		if !transient {
			break
		}
	}
	return nil, lastErr
}

// get performs one request. transient reports whether retrying may help.
func (f *Fetcher) get(ctx context.Context, location string) (data []byte, transient bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, false, errors.Unreachable(location, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, errors.Unreachable(location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		transient = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, transient, errors.New(errors.PhaseFetch, errors.KindUnreachable).
			URL(location).
			Value(resp.StatusCode).
			Detail("status %s", resp.Status).
			Build()
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, true, errors.Unreachable(location, err)
	}
	if len(data) > maxAssetSize {
		return nil, false, errors.New(errors.PhaseFetch, errors.KindOutOfBounds).
			URL(location).
			Detail("asset exceeds %d bytes", maxAssetSize).
			Build()
	}
	return data, false, nil
}

func readFile(location, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Unreachable(location, err)
	}
	if len(data) > maxAssetSize {
		return nil, errors.New(errors.PhaseFetch, errors.KindOutOfBounds).
			URL(location).
			Detail("asset exceeds %d bytes", maxAssetSize).
			Build()
	}
	return data, nil
}
