// Package sites keeps the registry of retailer extractors. Each
// retailer package registers itself from init, keyed by source
// identity; the orchestrator selects from the registry at startup.
package sites

import (
	"sort"
	"strings"
	"time"

	"pricegrid/internal/browser"
	"pricegrid/internal/fetch"
	"pricegrid/internal/source"
)

// Env carries the run-scoped resources an extractor may need. The HTTP
// client is shared (it is stateless); a browser session is launched by
// the extractor that needs one and owned by it alone.
type Env struct {
	Client  *fetch.Client
	Browser browser.Config
	Timeout time.Duration
}

// Factory builds one extractor instance for a run. Extractors that
// also implement io.Closer are closed when their source finishes.
type Factory func(env Env) (source.Extractor, error)

// Entry describes one registered retailer source.
type Entry struct {
	Name    string // canonical source identity
	Pattern string // default shop-key pattern; overridable per run
	New     Factory
}

var registry = map[string]Entry{}

// Register adds a source to the registry. Called from site package
// init functions.
func Register(e Entry) {
	registry[strings.ToUpper(e.Name)] = e
}

// Get looks a source up by identity.
func Get(name string) (Entry, bool) {
	e, ok := registry[strings.ToUpper(name)]
	return e, ok
}

// All returns every registered source in deterministic name order.
func All() []Entry {
	out := make([]Entry, 0, len(registry))
	for _, e := range registry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
