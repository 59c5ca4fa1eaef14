// Package browser wraps a rod browser session for the minority of
// retailers whose prices only exist after JavaScript rendering.
//
// A session is a heavyweight, stateful resource: it is opened at most
// once per source per run, never shared across concurrently running
// sources, and must be released on every exit path.
package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config controls how a session is launched.
type Config struct {
	Headless bool
	ProxyURL string
}

// Browser owns one rod browser instance and its launcher.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// New launches a browser session.
func New(cfg Config) (*Browser, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Browser{browser: b, launcher: l}, nil
}

// NewPage opens a fresh page in the session.
func (b *Browser) NewPage() (*rod.Page, error) {
	return b.browser.Page(proto.TargetCreateTarget{})
}

// Text navigates to url, waits for selector to appear within timeout and
// returns the text of the first element matching it. The page is closed
// before returning.
func (b *Browser) Text(url, selector string, timeout time.Duration) (string, error) {
	return b.fetchText(url, timeout, func(page *rod.Page) (*rod.Element, error) {
		return page.Timeout(timeout).Element(selector)
	})
}

// TextByXPath is Text with an XPath selector instead of CSS.
func (b *Browser) TextByXPath(url, xpath string, timeout time.Duration) (string, error) {
	return b.fetchText(url, timeout, func(page *rod.Page) (*rod.Element, error) {
		return page.Timeout(timeout).ElementX(xpath)
	})
}

func (b *Browser) fetchText(url string, timeout time.Duration, find func(*rod.Page) (*rod.Element, error)) (string, error) {
	page, err := b.NewPage()
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	if err := page.Timeout(timeout).Navigate(url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	el, err := find(page)
	if err != nil {
		return "", fmt.Errorf("wait for element: %w", err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("element text: %w", err)
	}
	return text, nil
}

// Close shuts the session down and kills the launcher process.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return err
}
