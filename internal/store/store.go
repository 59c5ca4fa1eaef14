// Package store persists run artifacts: one CSV per source as it
// completes, plus a combined CSV derived purely from the per-source
// files on disk, so a run can be re-combined without re-scraping.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"pricegrid/internal/source"
)

var header = []string{"BRAND", "PRODUCT SKU", "PRODUCT NAME", "Shop Name", "PRODUCT LINK", "Price", "Price_Bundle", "Note"}

// Record is one durable row of a per-source artifact.
type Record struct {
	Brand       string
	SKU         string
	Name        string
	Shop        string
	ProductLink string
	RawPrice    string
	RawBundle   string
	Note        string // "no link" marker or failure kind, empty on success
}

// NoteNoLink marks a row that was skipped because the catalog carried
// no product link. It is not a failure.
const NoteNoLink = "no link"

var fileNameReplaceRe = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

// Sink owns one run directory. Per-source artifacts are written by
// their producing runner only; Combine reads finalized files.
type Sink struct {
	dir string
}

// NewSink creates a timestamped run directory under base.
func NewSink(base string, runTime time.Time) (*Sink, error) {
	dir := filepath.Join(base, runTime.Format("2006-01-02T15-04-05"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Open reuses an existing run directory, for re-combination.
func Open(dir string) (*Sink, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open run dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run dir: %s is not a directory", dir)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the run directory path.
func (s *Sink) Dir() string {
	return s.dir
}

// SourcePath returns the artifact path for a source identity.
func (s *Sink) SourcePath(sourceName string) string {
	name := fileNameReplaceRe.ReplaceAllString(sourceName, "_")
	return filepath.Join(s.dir, name+".csv")
}

// WriteSource persists one source's result set. The file is written to
// a temp path and renamed so Combine never observes a partial file.
func (s *Sink) WriteSource(res source.Result) error {
	records := make([]Record, 0, len(res.Rows))
	for _, rr := range res.Rows {
		rec := Record{
			Brand:       rr.Row.Brand,
			SKU:         rr.Row.SKU,
			Name:        rr.Row.Name,
			Shop:        rr.Row.Shop,
			ProductLink: rr.Row.ProductLink,
			RawPrice:    rr.RawPrice,
			RawBundle:   rr.RawBundle,
		}
		switch {
		case rr.NoLink:
			rec.Note = NoteNoLink
		case rr.Err != nil:
			var f *source.Failure
			if errors.As(rr.Err, &f) {
				rec.Note = f.Kind.String()
			} else {
				rec.Note = rr.Err.Error()
			}
		}
		records = append(records, rec)
	}

	path := s.SourcePath(res.Source)
	return writeCSV(path, records)
}

// Combine merges every per-source artifact present in the run
// directory into one combined CSV sorted by product name, keyed by the
// given timestamp. The result is a deterministic function of the
// per-source files on disk.
func (s *Sink) Combine(runTime time.Time) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read run dir: %w", err)
	}

	var all []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || strings.HasPrefix(name, "combined") {
			continue
		}
		recs, err := ReadRecords(filepath.Join(s.dir, name))
		if err != nil {
			return "", fmt.Errorf("read artifact %s: %w", name, err)
		}
		all = append(all, recs...)
	}
	if len(all) == 0 {
		return "", fmt.Errorf("no per-source artifacts in %s", s.dir)
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Brand != b.Brand {
			return a.Brand < b.Brand
		}
		if a.Shop != b.Shop {
			return a.Shop < b.Shop
		}
		return a.ProductLink < b.ProductLink
	})

	path := filepath.Join(s.dir, "combined_"+runTime.Format("20060102_150405")+".csv")
	if err := writeCSV(path, all); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRecords loads one artifact (per-source or combined).
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []Record
	for _, row := range rows[1:] {
		get := func(i int) string {
			if i < len(row) {
				return row[i]
			}
			return ""
		}
		records = append(records, Record{
			Brand:       get(0),
			SKU:         get(1),
			Name:        get(2),
			Shop:        get(3),
			ProductLink: get(4),
			RawPrice:    get(5),
			RawBundle:   get(6),
			Note:        get(7),
		})
	}
	return records, nil
}

func writeCSV(path string, records []Record) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		row := []string{rec.Brand, rec.SKU, rec.Name, rec.Shop, rec.ProductLink, rec.RawPrice, rec.RawBundle, rec.Note}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
