// Package pivot reshapes the long-form combined dataset (one row per
// product and shop) into the wide comparison table (one row per
// product, one column per shop) with deterministic cheapest-price
// selection.
package pivot

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"pricegrid/internal/price"
	"pricegrid/internal/store"
)

// Cell is one (product, shop) cell of the comparison table. Display
// holds the deduplicated, comma-joined cleaned sightings; Price is the
// canonical value used for comparison; Min marks a cheapest cell.
type Cell struct {
	Display string
	Price   price.Price
	Min     bool
}

// Row is one product line of the table.
type Row struct {
	Brand   string
	Product string
	Cells   map[string]Cell // keyed by shop column
}

// Table is the wide comparison table. Columns lists the shop columns in
// display order: pinned first, then the remainder collated.
type Table struct {
	Columns []string
	Rows    []Row
}

type groupKey struct {
	brand   string
	product string
}

type group struct {
	brand   string // first-seen display casing
	product string
	cells   map[string][]string // shop key -> distinct cleaned sightings
}

// Build pivots records into a Table. pinned columns appear first in
// their configured order (when present in the data); remaining columns
// follow in collated order. The output is a function of the record
// multiset only: input order never changes rows, cells or minimum
// markings.
func Build(records []store.Record, pinned []string) *Table {
	// Canonicalize input order first so aggregation below is
	// insertion-ordered over a deterministic sequence.
	recs := make([]store.Record, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Brand != b.Brand {
			return a.Brand < b.Brand
		}
		if a.Shop != b.Shop {
			return a.Shop < b.Shop
		}
		return a.RawPrice < b.RawPrice
	})

	groups := map[groupKey]*group{}
	var order []groupKey
	shopSet := map[string]bool{}

	for _, rec := range recs {
		key := groupKey{normalize(rec.Brand), normalize(rec.Name)}
		g, ok := groups[key]
		if !ok {
			g = &group{
				brand:   strings.TrimSpace(rec.Brand),
				product: strings.TrimSpace(rec.Name),
				cells:   map[string][]string{},
			}
			groups[key] = g
			order = append(order, key)
		}

		shop := shopColumn(rec.Shop)
		if shop == "" {
			continue
		}
		shopSet[shop] = true

		if rec.RawPrice == "" {
			continue
		}
		cleaned := price.Clean(rec.RawPrice)
		if cleaned == "" {
			continue
		}
		if !contains(g.cells[shop], cleaned) {
			g.cells[shop] = append(g.cells[shop], cleaned)
		}
	}

	coll := collate.New(language.English)
	columns := orderColumns(shopSet, pinned, coll)

	table := &Table{Columns: columns}
	for _, key := range order {
		g := groups[key]
		row := Row{Brand: g.brand, Product: g.product, Cells: map[string]Cell{}}

		for shop, values := range g.cells {
			// Cheapest sighting first: the leading candidate is the
			// cell's canonical price.
			sort.SliceStable(values, func(i, j int) bool {
				return price.Parse(values[i]).Less(price.Parse(values[j]))
			})
			display := strings.Join(values, ", ")
			row.Cells[shop] = Cell{Display: display, Price: price.Parse(display)}
		}

		markMinima(row.Cells)
		table.Rows = append(table.Rows, row)
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		if c := coll.CompareString(table.Rows[i].Product, table.Rows[j].Product); c != 0 {
			return c < 0
		}
		return coll.CompareString(table.Rows[i].Brand, table.Rows[j].Brand) < 0
	})

	return table
}

// markMinima marks every cell holding the row's minimum defined price.
// Ties all get marked; a row with no defined price gets no marks.
func markMinima(cells map[string]Cell) {
	min := price.Undefined()
	for _, c := range cells {
		if c.Price.Defined() && (!min.Defined() || c.Price.Less(min)) {
			min = c.Price
		}
	}
	if !min.Defined() {
		return
	}
	for shop, c := range cells {
		if c.Price.Equal(min) {
			c.Min = true
			cells[shop] = c
		}
	}
}

func orderColumns(shopSet map[string]bool, pinned []string, coll *collate.Collator) []string {
	var columns []string
	seen := map[string]bool{}
	for _, p := range pinned {
		p = shopColumn(p)
		if shopSet[p] && !seen[p] {
			columns = append(columns, p)
			seen[p] = true
		}
	}
	var rest []string
	for s := range shopSet {
		if !seen[s] {
			rest = append(rest, s)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return coll.CompareString(rest[i], rest[j]) < 0
	})
	return append(columns, rest...)
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// shopColumn canonicalizes a shop name into its column key, matching
// the catalog's shop-key normalization.
func shopColumn(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
