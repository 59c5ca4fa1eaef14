package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"pricegrid/internal/catalog"
)

// RowResult is one extraction outcome for one catalog row.
type RowResult struct {
	Row         catalog.Row
	RawPrice    string // raw price text, "" when absent
	RawBundle   string // bundle-link price text, "" when absent
	NoLink      bool   // row had no product link; skipped, not failed
	Err         error  // *Failure for diagnostics, nil on success or NoLink
	Duration    time.Duration
}

// Stats counts a source's extraction funnel. The invariant
// Total >= ValidLinks >= Extracted always holds.
type Stats struct {
	Total      int
	ValidLinks int
	Extracted  int
}

// Result is everything one source produced for a run.
type Result struct {
	Source   string
	Rows     []RowResult
	Stats    Stats
	Duration time.Duration
}

// Runner applies one Extractor to every catalog row matching the
// source's shop-key pattern. A Runner is pure given its Extractor:
// the only side effect is the network call inside Fetch.
type Runner struct {
	name    string
	pattern *regexp.Regexp
	ex      Extractor
	limiter *rate.Limiter // nil disables the per-row throttle
}

// NewRunner compiles the case-insensitive shop-key pattern. delay > 0
// inserts a throttle between successive rows of this source.
func NewRunner(name, pattern string, ex Extractor, delay time.Duration) (*Runner, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("source %s: bad pattern %q: %w", name, pattern, err)
	}
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Runner{name: name, pattern: re, ex: ex, limiter: limiter}, nil
}

// Name returns the source identity.
func (r *Runner) Name() string {
	return r.name
}

// Close releases the extractor's resources (a browser session, for the
// rendered-page sources). Safe to call for extractors holding none.
func (r *Runner) Close() error {
	if c, ok := r.ex.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Match reports whether a normalized shop key belongs to this source.
// A key may legitimately match several sources; precedence is a
// configuration concern, never hard-coded here.
func (r *Runner) Match(shopKey string) bool {
	return r.pattern.MatchString(shopKey)
}

// Run processes every matching catalog row in order. Rows without a
// product link are retained with the NoLink marker. Cancellation stops
// new row processing promptly; the in-flight fetch runs to its own
// timeout.
func (r *Runner) Run(ctx context.Context, rows []catalog.Row) Result {
	start := time.Now()
	res := Result{Source: r.name}

	for _, row := range rows {
		if !r.Match(row.ShopKey) {
			continue
		}
		res.Stats.Total++

		if row.ProductLink == "" {
			res.Rows = append(res.Rows, RowResult{Row: row, NoLink: true})
			continue
		}
		res.Stats.ValidLinks++

		if ctx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}

		rr := r.fetchRow(ctx, row)
		if rr.RawPrice != "" {
			res.Stats.Extracted++
		}
		res.Rows = append(res.Rows, rr)
	}

	res.Duration = time.Since(start)
	return res
}

func (r *Runner) fetchRow(ctx context.Context, row catalog.Row) RowResult {
	start := time.Now()
	rr := RowResult{Row: row}

	raw, err := r.ex.Fetch(ctx, row.ProductLink)
	if err != nil {
		var f *Failure
		if !errors.As(err, &f) {
			// Contract violation by the extractor; keep the row alive as a
			// transport-kind failure instead of dropping it.
			err = Fail(KindTransport, row.ProductLink, err)
		}
		rr.Err = err
	} else {
		rr.RawPrice = raw
	}

	if row.BundleLink != "" && ctx.Err() == nil {
		if bundle, err := r.ex.Fetch(ctx, row.BundleLink); err == nil {
			rr.RawBundle = bundle
		}
	}

	rr.Duration = time.Since(start)
	return rr
}
