package module

import (
	"go.uber.org/zap"

	aawasm "github.com/wippyai/aa-wasm"
	"github.com/wippyai/aa-wasm/engine"
	"github.com/wippyai/aa-wasm/fetch"
)

type options struct {
	fetcher    aawasm.Fetcher
	factory    aawasm.EngineFactory
	logger     *zap.Logger
	queueLimit int
	attempts   int
}

// Option configures module construction.
type Option func(*options)

// WithFetcher replaces the asset fetcher.
func WithFetcher(f aawasm.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithEngineFactory replaces the engine builder.
func WithEngineFactory(f aawasm.EngineFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithLogger sets the logger for this module's control operations.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithQueueLimit bounds the number of pending commands. Commands enqueued
// while the limit is reached are dropped and counted in Stats.
func WithQueueLimit(n int) Option {
	return func(o *options) {
		o.queueLimit = n
	}
}

// WithFetchAttempts sets how many times the default fetcher tries each
// asset on transient failures. Ignored when WithFetcher is given.
func WithFetchAttempts(n int) Option {
	return func(o *options) {
		o.attempts = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{attempts: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.fetcher == nil {
		o.fetcher = fetch.New(fetch.WithAttempts(o.attempts))
	}
	if o.factory == nil {
		o.factory = engine.Factory(engine.DefaultConfig())
	}
	return o
}
