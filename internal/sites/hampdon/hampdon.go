// Package hampdon extracts prices from the Hampdon Industrial store.
package hampdon

import (
	"context"
	"strings"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name     = "HAMPDON"
	prefix   = "https://www.hampdon.com.au/"
	selector = `div.productprice.productpricetext[itemprop="price"]`
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "hampdon website", New: New})
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

		sel := doc.Find(selector).First()
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content), nil
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return "", source.Fail(source.KindParseMiss, url, nil)
		}
		text = strings.ReplaceAll(text, "$", "")
		text = strings.ReplaceAll(text, ",", "")
		return strings.TrimSpace(text), nil
	}), nil
}
