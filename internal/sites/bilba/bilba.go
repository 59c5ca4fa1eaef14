// Package bilba extracts prices from the Bilba Shopify storefront.
package bilba

import (
	"context"
	"strings"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name     = "BILBA"
	prefix   = "https://bilba.com.au/products"
	selector = "span.price-item.price-item-regular"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "bilba", New: New})
}

// New builds the extractor.
func New(env sites.Env) (source.Extractor, error) {
	return source.Func(func(ctx context.Context, url string) (string, error) {
		if err := source.CheckPrefix(url, prefix); err != nil {
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
		return strings.TrimPrefix(price, "$"), nil
	}), nil
}
