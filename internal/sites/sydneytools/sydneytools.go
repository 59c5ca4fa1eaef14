// Package sydneytools extracts prices from Sydney Tools, whose price
// block is populated by JavaScript and needs a rendered page.
package sydneytools

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
	name     = "SYDNEY TOOLS"
	prefix   = "https://sydneytools.com.au/"
	selector = "div.price"
)

func init() {
	sites.Register(sites.Entry{Name: name, Pattern: "sydney tools", New: New})
}

// New builds the extractor. The browser session is launched on the
// first fetch and owned by this extractor for the whole run; the
// orchestrator closes it when the source finishes.
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

	text, err := b.Text(url, selector, e.env.Timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", source.Fail(source.KindTimeout, url, err)
		}
		return "", source.Fail(source.KindTransport, url, err)
	}
	text = strings.Join(strings.Fields(text), " ")
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
