package invoice

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Precedence decides how a section's sub-fields combine across pages.
type Precedence int

const (
	// FirstNonNull keeps the first non-null value seen in page order.
	// Header data should be stable across pages and the first page is
	// the most authoritative.
	FirstNonNull Precedence = iota
	// LastNonNull overwrites with every non-null value seen, so the
	// last page wins. Totals are typically repeated or confirmed on
	// the final page.
	LastNonNull
)

// SectionPrecedence is the merge rule per section. The asymmetry
// between header and totals sections is deliberate; keep it in this
// table so it stays visible and independently testable.
var SectionPrecedence = map[string]Precedence{
	SectionEmpresa: FirstNonNull,
	SectionCliente: FirstNonNull,
	SectionFactura: FirstNonNull,
	SectionTotales: LastNonNull,
}

// mergeSectionOrder fixes the fold order over sections; map iteration
// order must not influence the result.
var mergeSectionOrder = []string{SectionEmpresa, SectionCliente, SectionFactura, SectionTotales}

// Merge folds per-page records, in page order, into one invoice-level
// record. Pages whose record is absent are skipped transparently. The
// second return is false when no page produced a usable record; in
// that case there is no record at all, not an empty one.
func Merge(pages []PageResult) (*Record, bool) {
	merged := NewEmptyRecord()
	usable := false

	for _, page := range pages {
		if page.Record == nil {
			continue
		}
		usable = true

		// Line items append in page order, in-page order preserved.
		// Anything not object-shaped is skipped.
		if items, ok := page.Record[SectionArticulos].([]any); ok {
			for _, it := range items {
				if obj, ok := it.(map[string]any); ok {
					merged.Articulos = append(merged.Articulos, LineItem(obj))
				}
			}
		}

		for _, name := range mergeSectionOrder {
			src, ok := page.Record[name].(map[string]any)
			if !ok {
				continue
			}
			dst := merged.Section(name)
			switch SectionPrecedence[name] {
			case FirstNonNull:
				for sub, value := range src {
					if dst[sub] == nil && value != nil {
						dst[sub] = value
					}
				}
			case LastNonNull:
				for sub, value := range src {
					if value == nil {
						continue
					}
					if num, ok := asNumber(value); ok {
						dst[sub] = num
					}
				}
			}
		}
	}

	if !usable {
		return nil, false
	}

	// Explicit null backfill: every schema sub-field is present in the
	// merged output even when no page supplied it.
	for name, subs := range SchemaKeys {
		dst := merged.Section(name)
		for _, sub := range subs {
			if _, ok := dst[sub]; !ok {
				dst[sub] = nil
			}
		}
	}
	return merged, true
}

// asNumber coerces a totals value to float64. Totals are numeric or
// null after merge, never strings: numeric strings are converted,
// anything else is dropped.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", ".")), 64)
		return f, err == nil
	}
	return 0, false
}
