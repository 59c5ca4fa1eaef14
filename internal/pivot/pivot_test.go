package pivot

import (
	"math/rand"
	"reflect"
	"testing"

	"pricegrid/internal/store"
)

func rec(brand, name, shop, rawPrice string) store.Record {
	return store.Record{Brand: brand, Name: name, Shop: shop, RawPrice: rawPrice}
}

func TestBuildGroupsByNormalizedProduct(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "SHOP A", "$199.00"),
		rec("unimig", "viper 185", "SHOP B", "$209.00"),
		rec("UNIMIG", "VIPER 195", "SHOP A", "$299.00"),
	}
	table := Build(records, nil)

	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	first := table.Rows[0]
	if len(first.Cells) != 2 {
		t.Errorf("viper 185 cells = %d, want 2 (case variants must merge)", len(first.Cells))
	}
}

func TestBuildDedupsSightingsCheapestFirst(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "SHOP A", "$500.00"),
		rec("UNIMIG", "VIPER 185", "SHOP A", "$450.00"),
		rec("UNIMIG", "VIPER 185", "SHOP A", "$450.00"),
	}
	table := Build(records, nil)

	cell := table.Rows[0].Cells["SHOP A"]
	if cell.Display != "450.00, 500.00" {
		t.Errorf("display = %q, want %q", cell.Display, "450.00, 500.00")
	}
	if !cell.Price.Defined() || cell.Price.Value() != 450.00 {
		t.Errorf("canonical price = %v, want 450.00", cell.Price)
	}
}

func TestBuildMarksMinimum(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "SHOP A", "$500.00"),
		rec("UNIMIG", "VIPER 185", "SHOP A", "$450.00"),
		rec("UNIMIG", "VIPER 185", "SHOP B", "$460.00"),
		rec("UNIMIG", "VIPER 185", "SHOP C", ""),
	}
	table := Build(records, nil)

	row := table.Rows[0]
	if !row.Cells["SHOP A"].Min {
		t.Error("SHOP A should be marked cheapest via its 450.00 sighting")
	}
	if row.Cells["SHOP B"].Min {
		t.Error("SHOP B should not be marked")
	}
	if row.Cells["SHOP C"].Min {
		t.Error("an empty cell must never be marked")
	}
}

func TestBuildMarksAllTies(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "SHOP A", "$450.00"),
		rec("UNIMIG", "VIPER 185", "SHOP B", "450.00"),
		rec("UNIMIG", "VIPER 185", "SHOP C", "$460.00"),
	}
	table := Build(records, nil)

	row := table.Rows[0]
	if !row.Cells["SHOP A"].Min || !row.Cells["SHOP B"].Min {
		t.Error("both tied cheapest cells should be marked")
	}
	if row.Cells["SHOP C"].Min {
		t.Error("SHOP C should not be marked")
	}
}

func TestBuildNoDefinedPricesNoMarks(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "SHOP A", ""),
		rec("UNIMIG", "VIPER 185", "SHOP B", "call for price"),
	}
	table := Build(records, nil)

	for shop, cell := range table.Rows[0].Cells {
		if cell.Min {
			t.Errorf("cell %s marked with no defined price in the row", shop)
		}
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "SHOP A", "$500.00"),
		rec("UNIMIG", "VIPER 185", "SHOP A", "$450.00"),
		rec("UNIMIG", "VIPER 185", "SHOP B", "$460.00"),
		rec("UNIMIG", "VIPER 195", "SHOP B", "$610.00"),
		rec("BOSSWELD", "MST 185", "SHOP C", "$300.00"),
	}
	want := Build(records, nil)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]store.Record, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Build(shuffled, nil)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("table differs for shuffled input %d", i)
		}
	}
}

func TestBuildPinnedColumnsFirst(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "Alpha Tools", "$500.00"),
		rec("UNIMIG", "VIPER 185", "Electroweld Website", "$480.00"),
		rec("UNIMIG", "VIPER 185", "Electroweld eBay", "$470.00"),
		rec("UNIMIG", "VIPER 185", "Beta Tools", "$460.00"),
	}
	pinned := []string{"ELECTROWELD WEBSITE", "ELECTROWELD EBAY"}
	table := Build(records, pinned)

	want := []string{"ELECTROWELD WEBSITE", "ELECTROWELD EBAY", "ALPHA TOOLS", "BETA TOOLS"}
	if !reflect.DeepEqual(table.Columns, want) {
		t.Errorf("columns = %v, want %v", table.Columns, want)
	}
}

func TestBuildPinnedAbsentFromData(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 185", "Alpha Tools", "$500.00"),
	}
	table := Build(records, []string{"ELECTROWELD WEBSITE"})

	want := []string{"ALPHA TOOLS"}
	if !reflect.DeepEqual(table.Columns, want) {
		t.Errorf("columns = %v, want %v (absent pinned columns are dropped)", table.Columns, want)
	}
}

func TestBuildRowsSortedByProduct(t *testing.T) {
	records := []store.Record{
		rec("UNIMIG", "VIPER 195", "SHOP A", "$610.00"),
		rec("BOSSWELD", "MST 185", "SHOP A", "$300.00"),
		rec("UNIMIG", "VIPER 185", "SHOP A", "$500.00"),
	}
	table := Build(records, nil)

	got := []string{table.Rows[0].Product, table.Rows[1].Product, table.Rows[2].Product}
	want := []string{"MST 185", "VIPER 185", "VIPER 195"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("row order = %v, want %v", got, want)
	}
}
