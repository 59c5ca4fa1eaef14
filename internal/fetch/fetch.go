// Package fetch is the shared build-client-and-fetch template every
// HTTP extractor composes with its own selector logic: one explicitly
// owned client, browser-like headers, a per-call timeout and a parsed
// goquery document out the other end.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricegrid/internal/source"
)

// DefaultTimeout bounds one URL fetch so a slow page cannot stall its
// source indefinitely.
const DefaultTimeout = 15 * time.Second

const maxBodyBytes = 5 * 1024 * 1024

var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// Client wraps an http.Client with the headers and timeout shared by
// every HTTP extractor. It is constructed once per run and passed into
// extractors at build time; nothing in the system uses an ambient
// client.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a client with the given per-call timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

// Timeout returns the per-call timeout the client was built with.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Document fetches url and parses the response body. Every failure
// comes back as a *source.Failure: deadline and network timeouts map to
// KindTimeout, a 404 to KindNotFound, anything else on the wire to
// KindTransport.
func (c *Client) Document(ctx context.Context, url string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, source.Fail(source.KindInvalidURL, url, err)
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, source.Fail(classify(err), url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, source.Fail(source.KindNotFound, url, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, source.Fail(source.KindTransport, url, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, source.Fail(source.KindTransport, url, fmt.Errorf("parse body: %w", err))
	}
	return doc, nil
}

func classify(err error) source.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return source.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return source.KindTimeout
	}
	return source.KindTransport
}
