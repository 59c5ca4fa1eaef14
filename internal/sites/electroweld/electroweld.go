// Package electroweld extracts prices from the Electroweld WooCommerce
// storefront.
package electroweld

import (
	"context"
	"strings"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name     = "ELECTROWELD WEBSITE"
	prefix   = "https://www.electroweld.com.au/product/"
	selector = "p.w-post-elm.product_field.price span.woocommerce-Price-amount.amount bdi"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "electroweld website", New: New})
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
