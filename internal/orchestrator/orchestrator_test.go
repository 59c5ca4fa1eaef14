package orchestrator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pricegrid/internal/catalog"
	"pricegrid/internal/config"
	"pricegrid/internal/pivot"
	"pricegrid/internal/sites"
	"pricegrid/internal/source"
	"pricegrid/internal/store"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestSink(t *testing.T) *store.Sink {
	t.Helper()
	s, err := store.NewSink(t.TempDir(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustRunner(t *testing.T, name, pattern string, ex source.Extractor) *source.Runner {
	t.Helper()
	r, err := source.NewRunner(name, pattern, ex, 0)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func priceFunc(prices map[string]string) source.Func {
	return func(ctx context.Context, url string) (string, error) {
		p, ok := prices[url]
		if !ok {
			return "", source.Fail(source.KindNotFound, url, nil)
		}
		return p, nil
	}
}

func catalogRows() []catalog.Row {
	return []catalog.Row{
		{Brand: "UNIMIG", SKU: "U1", Name: "VIPER 185", Shop: "Shop A", ShopKey: "SHOP A", ProductLink: "https://a.example.com/p/1"},
		{Brand: "UNIMIG", SKU: "U1", Name: "VIPER 185", Shop: "Shop B", ShopKey: "SHOP B", ProductLink: "https://b.example.com/p/1"},
		{Brand: "UNIMIG", SKU: "U1", Name: "VIPER 185", Shop: "Shop C", ShopKey: "SHOP C", ProductLink: "https://c.example.com/p/1"},
		{Brand: "BOSSWELD", SKU: "B1", Name: "MST 185", Shop: "Shop A", ShopKey: "SHOP A", ProductLink: "https://a.example.com/p/2"},
		{Brand: "BOSSWELD", SKU: "B1", Name: "MST 185", Shop: "Shop C", ShopKey: "SHOP C", ProductLink: "https://c.example.com/p/2"},
	}
}

func registerTestSites(t *testing.T) {
	t.Helper()
	factory := func(env sites.Env) (source.Extractor, error) {
		return source.Func(func(ctx context.Context, url string) (string, error) {
			return "199.00", nil
		}), nil
	}
	sites.Register(sites.Entry{Name: "EBAY", Pattern: "ebay", New: factory})
	sites.Register(sites.Entry{Name: "ELECTROWELD EBAY", Pattern: "electroweld ebay", New: factory})
}

func TestBuildRunnersSourceFilterCaseInsensitive(t *testing.T) {
	registerTestSites(t)

	runners, err := BuildRunners(config.Default(), sites.Env{}, "ebay")
	if err != nil {
		t.Fatal(err)
	}
	if len(runners) != 1 || runners[0].Name() != "EBAY" {
		t.Fatalf("runners = %v, want the EBAY source", runners)
	}

	if _, err := BuildRunners(config.Default(), sites.Env{}, "no such shop"); err == nil {
		t.Error("expected an error for an unknown source filter")
	}
}

// A config pattern override narrows the eBay super-pattern so its rows
// go to the storefront-specific source alone.
func TestBuildRunnersPatternOverride(t *testing.T) {
	registerTestSites(t)

	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Name: "EBAY", Pattern: "plain ebay"}}

	runners, err := BuildRunners(cfg, sites.Env{}, "")
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]*source.Runner{}
	for _, r := range runners {
		byName[r.Name()] = r
	}

	super, storefront := byName["EBAY"], byName["ELECTROWELD EBAY"]
	if super == nil || storefront == nil {
		t.Fatalf("missing runners: %v", runners)
	}
	if super.Match("ELECTROWELD EBAY") {
		t.Error("narrowed super-pattern should not match the storefront key")
	}
	if !super.Match("PLAIN EBAY SELLER") {
		t.Error("narrowed super-pattern should still match its own keys")
	}
	if !storefront.Match("ELECTROWELD EBAY") {
		t.Error("storefront pattern should match its key")
	}
}

func TestBuildRunnersDisabledSource(t *testing.T) {
	registerTestSites(t)

	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Name: "EBAY", Disabled: true}}

	runners, err := BuildRunners(cfg, sites.Env{}, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range runners {
		if r.Name() == "EBAY" {
			t.Error("disabled source should not be built")
		}
	}
}

func TestRunCompletes(t *testing.T) {
	sink := newTestSink(t)
	runners := []*source.Runner{
		mustRunner(t, "Shop A", "shop a", priceFunc(map[string]string{
			"https://a.example.com/p/1": "$500.00",
			"https://a.example.com/p/2": "$320.00",
		})),
		mustRunner(t, "Shop B", "shop b", priceFunc(map[string]string{
			"https://b.example.com/p/1": "$460.00",
		})),
	}

	res := New(sink, 4, quietLogger()).Run(context.Background(), catalogRows(), runners)

	if res.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", res.Status, StatusCompleted)
	}
	if res.ID == "" {
		t.Error("run ID must be set")
	}
	if res.CombinedPath == "" {
		t.Fatal("combined artifact not produced")
	}
	if len(res.Outcomes) != 2 {
		t.Errorf("outcomes = %d, want 2", len(res.Outcomes))
	}
}

func TestRunSurvivesPanickingSource(t *testing.T) {
	sink := newTestSink(t)
	runners := []*source.Runner{
		mustRunner(t, "Shop A", "shop a", priceFunc(map[string]string{
			"https://a.example.com/p/1": "$500.00",
			"https://a.example.com/p/2": "$320.00",
		})),
		mustRunner(t, "Shop B", "shop b", source.Func(func(ctx context.Context, url string) (string, error) {
			panic("selector gone")
		})),
	}

	res := New(sink, 4, quietLogger()).Run(context.Background(), catalogRows(), runners)

	if res.Status != StatusCompletedWithFailures {
		t.Errorf("status = %s, want %s", res.Status, StatusCompletedWithFailures)
	}
	var crashed, survived bool
	for _, out := range res.Outcomes {
		switch out.Source {
		case "Shop B":
			crashed = out.Err != nil
		case "Shop A":
			survived = out.Err == nil && out.Stats.Extracted == 2
		}
	}
	if !crashed {
		t.Error("panicking source should surface a boundary error")
	}
	if !survived {
		t.Error("sibling source must finish untouched")
	}

	// The survivor's artifact is still combined.
	recs, err := store.ReadRecords(res.CombinedPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("combined records = %d, want 2", len(recs))
	}
}

func TestRunReportsMissingPrices(t *testing.T) {
	sink := newTestSink(t)
	runners := []*source.Runner{
		mustRunner(t, "Shop C", "shop c", priceFunc(map[string]string{
			"https://c.example.com/p/2": "$300.00",
		})),
	}

	res := New(sink, 4, quietLogger()).Run(context.Background(), catalogRows(), runners)

	if res.Status != StatusCompleted {
		t.Errorf("status = %s, want %s (extraction failures are not run failures)", res.Status, StatusCompleted)
	}
	if len(res.Missing) != 1 {
		t.Fatalf("missing = %d, want 1", len(res.Missing))
	}
	if res.Missing[0].URL != "https://c.example.com/p/1" {
		t.Errorf("missing url = %q", res.Missing[0].URL)
	}
}

func TestRunCancellation(t *testing.T) {
	sink := newTestSink(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runners := []*source.Runner{
		mustRunner(t, "Shop A", "shop a", source.Func(func(ctx context.Context, url string) (string, error) {
			t.Error("no fetch should start after cancellation")
			return "", source.Fail(source.KindTransport, url, nil)
		})),
	}

	res := New(sink, 4, quietLogger()).Run(ctx, catalogRows(), runners)
	for _, out := range res.Outcomes {
		if out.Stats.Extracted != 0 {
			t.Errorf("source %s extracted after cancel", out.Source)
		}
	}
}

// Two products across three shops, one duplicated sighting and one
// timeout, end to end through the sink and the pivot.
func TestRunToComparisonTable(t *testing.T) {
	sink := newTestSink(t)
	rows := append(catalogRows(),
		catalog.Row{Brand: "UNIMIG", SKU: "U1", Name: "VIPER 185", Shop: "Shop A", ShopKey: "SHOP A", ProductLink: "https://a.example.com/p/1b"},
	)
	runners := []*source.Runner{
		mustRunner(t, "Shop A", "shop a", priceFunc(map[string]string{
			"https://a.example.com/p/1":  "$500.00",
			"https://a.example.com/p/1b": "$450.00",
			"https://a.example.com/p/2":  "$320.00",
		})),
		mustRunner(t, "Shop B", "shop b", priceFunc(map[string]string{
			"https://b.example.com/p/1": "$460.00",
		})),
		mustRunner(t, "Shop C", "shop c", source.Func(func(ctx context.Context, url string) (string, error) {
			if url == "https://c.example.com/p/2" {
				return "$300.00", nil
			}
			return "", source.Fail(source.KindTimeout, url, context.DeadlineExceeded)
		})),
	}

	res := New(sink, 2, quietLogger()).Run(context.Background(), rows, runners)

	if res.Status != StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	recs, err := store.ReadRecords(res.CombinedPath)
	if err != nil {
		t.Fatal(err)
	}
	table := pivot.Build(recs, nil)

	if len(table.Rows) != 2 {
		t.Fatalf("table rows = %d, want 2", len(table.Rows))
	}

	// MST 185: Shop C wins, Shop A loses, Shop B absent.
	mst := table.Rows[0]
	if mst.Product != "MST 185" {
		t.Fatalf("first row = %q", mst.Product)
	}
	if !mst.Cells["SHOP C"].Min || mst.Cells["SHOP A"].Min {
		t.Error("MST 185 minimum should be SHOP C at 300.00")
	}

	// VIPER 185: Shop A's duplicate sightings collapse to one cell and
	// its 450.00 sighting wins; Shop C's timeout row stays empty.
	viper := table.Rows[1]
	if viper.Cells["SHOP A"].Display != "450.00, 500.00" {
		t.Errorf("SHOP A cell = %q", viper.Cells["SHOP A"].Display)
	}
	if !viper.Cells["SHOP A"].Min || viper.Cells["SHOP B"].Min {
		t.Error("VIPER 185 minimum should be SHOP A")
	}
	if viper.Cells["SHOP C"].Display != "" || viper.Cells["SHOP C"].Min {
		t.Errorf("SHOP C cell = %+v, want empty and unmarked", viper.Cells["SHOP C"])
	}
}
