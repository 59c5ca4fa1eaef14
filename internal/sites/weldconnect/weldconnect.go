// Package weldconnect extracts prices from the WeldConnect store,
// which publishes the price as a microdata content attribute.
package weldconnect

import (
	"context"
	"strings"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name   = "WELDCONNECT"
	prefix = "https://www.weldconnect.com.au/"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "weldconnect", New: New})
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
		content, ok := doc.Find(`div.h1[itemprop="price"]`).First().Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			return "", source.Fail(source.KindParseMiss, url, nil)
		}
		return strings.TrimSpace(content), nil
	}), nil
}
