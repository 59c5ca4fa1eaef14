// Package price turns dirty, locale-polluted retailer price strings into
// comparable decimal values.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

// Price is a non-negative decimal with an explicit undefined state.
// Undefined prices sort after every defined price and are never selected
// as a row minimum.
type Price struct {
	value   float64
	defined bool
}

// Undefined returns the "no value" price.
func Undefined() Price {
	return Price{}
}

// Of returns a defined price holding v.
func Of(v float64) Price {
	return Price{value: v, defined: true}
}

// Defined reports whether the price holds a value.
func (p Price) Defined() bool {
	return p.defined
}

// Value returns the numeric value. Only meaningful when Defined.
func (p Price) Value() float64 {
	return p.value
}

// String formats the price with two decimals, or "" when undefined.
func (p Price) String() string {
	if !p.defined {
		return ""
	}
	return strconv.FormatFloat(p.value, 'f', 2, 64)
}

// Less orders prices so that undefined sorts last.
func (p Price) Less(o Price) bool {
	if p.defined != o.defined {
		return p.defined
	}
	return p.value < o.value
}

// Equal reports value equality; two undefined prices are equal.
func (p Price) Equal(o Price) bool {
	if p.defined != o.defined {
		return false
	}
	return !p.defined || p.value == o.value
}

var (
	tagRe = regexp.MustCompile(`<[^>]*>`)

	// Noise tokens observed across retailer price cells. Order matters:
	// longer tokens are removed before their substrings.
	noiseRe = regexp.MustCompile(`(?i)inc\.?\s*gst|incl\.?\s*gst|excl\.?\s*gst|ex\.?\s*gst|per\s*item|each|now|aud|a\$|au\b`)

	// A numeric candidate: either thousands-grouped ("1,669.00") or a
	// plain decimal ("979.5").
	candidateRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

	nonNumericRe = regexp.MustCompile(`[^0-9.,\-]+`)
)

// Clean strips HTML tags, currency symbols and noise tokens from a raw
// price string, keeping only the numeric characters a reader would
// recognise as the price. Used for display cells; Parse applies the same
// cleaning before extracting a value.
func Clean(raw string) string {
	s := tagRe.ReplaceAllString(raw, "")
	s = noiseRe.ReplaceAllString(s, "")
	s = nonNumericRe.ReplaceAllString(s, "")
	return strings.Trim(s, ",.-")
}

// Parse extracts a canonical price from raw text. When the text holds
// several comma- or newline-separated numeric candidates (a cell built
// from multiple sightings of the same shop) the first candidate wins.
// Unparsable or empty input yields Undefined; Parse never fails.
//
// Parse is idempotent over its own output: Parse(p.String()) == p.
func Parse(raw string) Price {
	s := tagRe.ReplaceAllString(raw, "")
	s = noiseRe.ReplaceAllString(s, "")

	m := candidateRe.FindString(s)
	if m == "" {
		return Undefined()
	}
	m = strings.ReplaceAll(m, ",", "")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Undefined()
	}
	return Of(v)
}
