// Package report renders the comparison table for consumers: CSV for
// the dashboard boundary, HTML and Markdown for operators, JSON for
// anything programmatic.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"pricegrid/internal/pivot"
)

// Format renders t in the requested output format: csv, html,
// markdown or json.
func Format(t *pivot.Table, format string) (string, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ToCSV(t)
	case "html":
		return ToHTML(t)
	case "markdown":
		return ToMarkdown(t)
	case "json":
		b, err := ToJSON(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// ToCSV renders the wide table as plain CSV: brand, product name, then
// one column per shop in table order.
func ToCSV(t *pivot.Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"BRAND", "PRODUCT NAME"}, t.Columns...)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range t.Rows {
		rec := []string{row.Brand, row.Product}
		for _, col := range t.Columns {
			rec = append(rec, row.Cells[col].Display)
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToHTML renders the table with cheapest cells highlighted.
func ToHTML(t *pivot.Table) (string, error) {
	var b strings.Builder
	b.WriteString("<h2>Price Comparison by Shop</h2>\n")
	b.WriteString("<table>\n<thead>\n<tr>")
	b.WriteString("<th>BRAND</th><th>PRODUCT NAME</th>")
	for _, col := range t.Columns {
		b.WriteString("<th>" + html.EscapeString(col) + "</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")

	for _, row := range t.Rows {
		b.WriteString("<tr>")
		b.WriteString("<td>" + html.EscapeString(row.Brand) + "</td>")
		b.WriteString("<td>" + html.EscapeString(row.Product) + "</td>")
		for _, col := range t.Columns {
			cell := row.Cells[col]
			if cell.Min {
				b.WriteString(`<td class="min" style="background-color: yellow">` + html.EscapeString(cell.Display) + "</td>")
			} else {
				b.WriteString("<td>" + html.EscapeString(cell.Display) + "</td>")
			}
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
	return b.String(), nil
}

// ToMarkdown converts the HTML rendering to Markdown. Tables are
// pre-converted with goquery because the converter leaves them behind;
// cheapest cells come out bold.
func ToMarkdown(t *pivot.Table) (string, error) {
	htmlContent, err := ToHTML(t)
	if err != nil {
		return "", err
	}

	withTables := convertTablesInHTML(htmlContent)

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(withTables)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	markdown = strings.ReplaceAll(markdown, "<!-- MARKDOWN_TABLE -->", "")
	markdown = strings.ReplaceAll(markdown, "<!-- END_MARKDOWN_TABLE -->", "")

	return markdown, nil
}

// ToJSON renders the table structurally, min flags included.
func ToJSON(t *pivot.Table) ([]byte, error) {
	type jsonCell struct {
		Display string  `json:"display"`
		Value   float64 `json:"value,omitempty"`
		Defined bool    `json:"defined"`
		Min     bool    `json:"min,omitempty"`
	}
	type jsonRow struct {
		Brand   string              `json:"brand"`
		Product string              `json:"product"`
		Shops   map[string]jsonCell `json:"shops"`
	}
	type jsonTable struct {
		Columns []string  `json:"columns"`
		Rows    []jsonRow `json:"rows"`
	}

	out := jsonTable{Columns: t.Columns}
	for _, row := range t.Rows {
		jr := jsonRow{Brand: row.Brand, Product: row.Product, Shops: map[string]jsonCell{}}
		for shop, cell := range row.Cells {
			jr.Shops[shop] = jsonCell{
				Display: cell.Display,
				Value:   cell.Price.Value(),
				Defined: cell.Price.Defined(),
				Min:     cell.Min,
			}
		}
		out.Rows = append(out.Rows, jr)
	}
	return json.MarshalIndent(out, "", "  ")
}

var tableRe = regexp.MustCompile(`(?is)<table\b[^>]*>.*?</table>`)

// convertTablesInHTML converts all tables in HTML to Markdown table
// format before the generic converter runs.
func convertTablesInHTML(htmlContent string) string {
	return tableRe.ReplaceAllStringFunc(htmlContent, convertHTMLTableToMarkdown)
}

// convertHTMLTableToMarkdown converts one HTML table to a Markdown
// table. Cells carrying the min class are emphasized.
func convertHTMLTableToMarkdown(tableHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return tableHTML
	}

	var builder strings.Builder
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		headers := []string{}
		headerRow := table.Find("thead tr").First()
		if headerRow.Length() == 0 {
			headerRow = table.Find("tr").First()
		}
		headerRow.Find("th, td").Each(func(j int, header *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(header.Text()))
		})

		if len(headers) < 1 {
			return
		}

		builder.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		builder.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")

		dataRows := table.Find("tbody tr")
		if dataRows.Length() == 0 {
			dataRows = table.Find("tr").Slice(1, goquery.ToEnd)
		}

		dataRows.Each(func(j int, row *goquery.Selection) {
			cells := []string{}
			row.Find("td, th").Each(func(k int, cell *goquery.Selection) {
				text := strings.TrimSpace(cell.Text())
				if text != "" && cell.HasClass("min") {
					text = "**" + text + "**"
				}
				cells = append(cells, text)
			})
			if len(cells) >= 1 {
				builder.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			}
		})

		builder.WriteString("\n")
	})

	return builder.String()
}
