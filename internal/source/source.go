// Package source defines the retailer extractor contract and runs one
// source's extractions over the catalog.
package source

import (
	"context"
	"net/url"
	"strings"
)

// Extractor maps a product-link URL to the raw price text shown on the
// page. Implementations must return a *Failure (never any other error
// type), must not let a transport error escape, and must bound the
// wall-clock time of every call.
type Extractor interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, url string) (string, error)

// Fetch implements Extractor.
func (f Func) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// CheckPrefix is the pure precondition every extractor applies before
// touching the network: the link must parse as a URL and start with one
// of the source's known prefixes. Returns a KindInvalidURL Failure
// otherwise.
func CheckPrefix(link string, prefixes ...string) error {
	if strings.TrimSpace(link) == "" {
		return Fail(KindInvalidURL, link, nil)
	}
	if _, err := url.ParseRequestURI(link); err != nil {
		return Fail(KindInvalidURL, link, err)
	}
	for _, p := range prefixes {
		if strings.HasPrefix(link, p) {
			return nil
		}
	}
	return Fail(KindInvalidURL, link, nil)
}
