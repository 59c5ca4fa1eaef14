// Package alphaweld extracts prices from the Alphaweld store.
package alphaweld

import (
	"context"
	"strings"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name   = "ALPHAWELD"
	prefix = "https://www.alphaweld.com.au/"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "alphaweld", New: New})
}

// New builds the extractor. A discounted product shows its special
// price in a dedicated block; the regular price is the fallback.
func New(env sites.Env) (source.Extractor, error) {
	return source.Func(func(ctx context.Context, url string) (string, error) {
		if err := source.CheckPrefix(url, prefix); err != nil {
			return "", err
		}
		doc, err := env.Client.Document(ctx, url)
		if err != nil {
			return "", err
		}

		price := strings.TrimSpace(doc.Find("div.price.special div.value").First().Text())
		if price == "" {
			price = strings.TrimSpace(doc.Find("div.price div.value").First().Text())
		}
		if price == "" {
			return "", source.Fail(source.KindParseMiss, url, nil)
		}
		price = strings.ReplaceAll(price, "excl GST", "")
		return strings.TrimSpace(strings.TrimPrefix(price, "$")), nil
	}), nil
}
