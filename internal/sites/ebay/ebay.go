// Package ebay extracts listing prices from eBay product pages.
// Several catalog shops resolve to eBay storefronts, so the default
// pattern is a deliberate super-pattern; narrow it in configuration
// when storefront-specific sources should take the rows instead.
package ebay

import (
	"context"
	"strings"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name     = "EBAY"
	selector = ".x-price-primary > span"
)

var prefixes = []string{
	"https://www.ebay.com.au/",
	"https://www.ebay.com/",
}

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "ebay", New: New})
}

// New builds the extractor.
func New(env sites.Env) (source.Extractor, error) {
	return source.Func(func(ctx context.Context, url string) (string, error) {
		if err := source.CheckPrefix(url, prefixes...); err != nil {
			return "", err
		}
		doc, err := env.Client.Document(ctx, url)
		if err != nil {
			return "", err
		}
		price := strings.TrimSpace(doc.Find(selector).First().Text())
		if price == "" {
			return "", source.Fail(source.KindParseMiss, url, nil)
		}
		return price, nil
	}), nil
}
