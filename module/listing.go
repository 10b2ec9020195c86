package module

import (
	"context"

	"github.com/wippyai/aa-wasm/fetch"
	"github.com/wippyai/aa-wasm/manifest"
)

// ListingName is the module index served at the root of a base location.
const ListingName = "modules.json"

// ListModules fetches and validates the module listing at base and returns
// its text unchanged.
func ListModules(ctx context.Context, base string, opts ...Option) (string, error) {
	text, _, err := fetchListing(ctx, base, opts)
	return text, err
}

// Modules fetches and parses the module listing at base.
func Modules(ctx context.Context, base string, opts ...Option) (*manifest.Listing, error) {
	_, listing, err := fetchListing(ctx, base, opts)
	return listing, err
}

func fetchListing(ctx context.Context, base string, opts []Option) (string, *manifest.Listing, error) {
	o := newOptions(opts)
	text, err := fetch.Text(ctx, o.fetcher, manifest.Resolve(base, ListingName))
	if err != nil {
		return "", nil, err
	}
	listing, err := manifest.ParseListing([]byte(text))
	if err != nil {
		return "", nil, err
	}
	return text, listing, nil
}
