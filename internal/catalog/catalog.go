// Package catalog loads the product catalog: which products are listed
// at which shops under which links.
package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Row is one (brand, SKU, product, shop, link) tuple. Brand, SKU and
// Name are forward-filled from the nearest preceding non-empty row, so
// every row belongs to exactly one product block. Rows are immutable
// after loading.
type Row struct {
	Brand       string
	SKU         string
	Name        string
	Shop        string // shop name as written in the catalog
	ShopKey     string // canonical key used for source matching
	ProductLink string
	BundleLink  string
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeShopKey canonicalizes a shop name for matching: trims,
// collapses inner whitespace and uppercases.
func NormalizeShopKey(s string) string {
	return strings.ToUpper(spaceRe.ReplaceAllString(strings.TrimSpace(s), " "))
}

// Load reads the catalog CSV. aliases maps a normalized shop key to a
// replacement key and is applied after normalization; pass nil for
// none. An unreadable catalog is the only fatal input condition in the
// system, so Load returns an error rather than a partial result.
func Load(path string, aliases map[string]string) ([]Row, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b, aliases)
}

// Parse decodes catalog CSV bytes. The header must contain BRAND,
// PRODUCT SKU, PRODUCT NAME, Shop Name and PRODUCT LINK columns;
// BUNDLE LINK is optional. Header matching is case-insensitive.
func Parse(b []byte, aliases map[string]string) ([]Row, error) {
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[NormalizeShopKey(h)] = i
	}
	required := []string{"BRAND", "PRODUCT SKU", "PRODUCT NAME", "SHOP NAME", "PRODUCT LINK"}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("catalog is missing column %q", col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	var brand, sku, name string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A malformed row must fail the whole load; a silently
			// truncated catalog would scrape an incomplete run.
			return nil, fmt.Errorf("read catalog row: %w", err)
		}
		// Forward-fill the sparse product block columns.
		if v := field(rec, "BRAND"); v != "" {
			brand = v
		}
		if v := strings.ToUpper(field(rec, "PRODUCT SKU")); v != "" {
			sku = v
		}
		if v := strings.ToUpper(field(rec, "PRODUCT NAME")); v != "" {
			name = v
		}

		shop := field(rec, "SHOP NAME")
		key := NormalizeShopKey(shop)
		if alias, ok := aliases[key]; ok {
			key = NormalizeShopKey(alias)
		}

		rows = append(rows, Row{
			Brand:       brand,
			SKU:         sku,
			Name:        name,
			Shop:        shop,
			ShopKey:     key,
			ProductLink: field(rec, "PRODUCT LINK"),
			BundleLink:  field(rec, "BUNDLE LINK"),
		})
	}
	return rows, nil
}
