// Package toolswarehouse extracts prices from Tools Warehouse. The
// storefront renders its price client-side at a fixed position, so the
// extractor drives a browser session and reads the element by XPath.
package toolswarehouse

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pricegrid/internal/browser"
	"pricegrid/internal/sites"
	"pricegrid/internal/source"
)

const (
	name   = "TOOLS WAREHOUSE"
	prefix = "https://toolswarehouse.com.au/"
	xpath  = "/html/body/main/div[1]/section/article/div[2]/div/div[6]/div[1]/div/div[4]/span[2]"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "tools warehouse", New: New})
}

// New builds the extractor; the session is lazy and run-scoped as in
// the other browser-backed sources.
func New(env sites.Env) (source.Extractor, error) {
	return &extractor{env: env}, nil
}

type extractor struct {
	env  sites.Env
	once sync.Once
	b    *browser.Browser
	err  error
}

func (e *extractor) session() (*browser.Browser, error) {
	e.once.Do(func() {
		e.b, e.err = browser.New(e.env.Browser)
	})
	return e.b, e.err
}

func (e *extractor) Fetch(ctx context.Context, url string) (string, error) {
	if err := source.CheckPrefix(url, prefix); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", source.Fail(source.KindTimeout, url, err)
	}

	b, err := e.session()
	if err != nil {
		return "", source.Fail(source.KindTransport, url, err)
	}

	text, err := b.TextByXPath(url, xpath, e.env.Timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", source.Fail(source.KindTimeout, url, err)
		}
		return "", source.Fail(source.KindTransport, url, err)
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "A$", ""))
	if text == "" {
		return "", source.Fail(source.KindParseMiss, url, nil)
	}
	return text, nil
}

func (e *extractor) Close() error {
	if e.b != nil {
		return e.b.Close()
	}
	return nil
}
