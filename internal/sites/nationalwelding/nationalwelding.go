// Package nationalwelding extracts prices from the National Welding
// store. Promo pricing lives in a different element than the regular
// price; the promo wins when both are present.
package nationalwelding

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name   = "NATIONAL WELDING"
	prefix = "https://www.nationalwelding.com.au/"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "national welding", New: New})
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

		if price := priceFrom(doc.Find(`div.productpromo[itemprop="price"]`)); price != "" {
			return price, nil
		}
		if price := priceFrom(doc.Find(`div.productprice.productpricetext[itemprop="price"]`)); price != "" {
			return price, nil
		}
		return "", source.Fail(source.KindParseMiss, url, nil)
	}), nil
}

// priceFrom prefers the machine-readable content attribute and falls
// back to the visible text with promo noise removed.
func priceFrom(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	text := sel.First().Text()
	text = strings.ReplaceAll(text, "NOW", "")
	text = strings.ReplaceAll(text, "$", "")
	text = strings.ReplaceAll(text, ",", "")
	return strings.TrimSpace(text)
}
