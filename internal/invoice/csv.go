package invoice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Literal messages returned when there is nothing to project. This is
// the last pipeline stage, so it degrades to a message instead of
// propagating an error.
const (
	NoLineItemsMessage = "No hay datos de artículos."
	NoHeadersMessage   = "No se pudieron determinar cabeceras CSV."
)

// ProjectCSV flattens the merged record's line items into CSV text.
// The header row is the union of all keys seen across all items
// (canonical fields first, extras sorted); every value is quoted; a
// column missing from an item renders empty.
func ProjectCSV(rec *Record) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("Error CSV: %v", r)
		}
	}()

	if rec == nil || len(rec.Articulos) == 0 {
		return NoLineItemsMessage
	}

	fieldnames := HeaderUnion(rec.Articulos)
	if len(fieldnames) == 0 {
		return NoHeadersMessage
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(c, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteString("\r\n")
	}

	writeRow(fieldnames)
	row := make([]string, len(fieldnames))
	for _, item := range rec.Articulos {
		for i, key := range fieldnames {
			row[i] = cellString(item[key])
		}
		writeRow(row)
	}
	return b.String()
}

// CanonicalItemFields is the column order for the schema's line item
// fields. Extra fields observed on any item follow these, sorted, so
// structurally different pages still produce one stable table.
var CanonicalItemFields = []string{
	"articulo", "descripcion", "cantidad", "precio", "importe", "lote", "caducidad",
}

// HeaderUnion returns the union of keys across items: canonical fields
// in schema order first, then extras sorted.
func HeaderUnion(items []LineItem) []string {
	seen := map[string]struct{}{}
	for _, item := range items {
		for key := range item {
			seen[key] = struct{}{}
		}
	}

	var fieldnames []string
	for _, key := range CanonicalItemFields {
		if _, ok := seen[key]; ok {
			fieldnames = append(fieldnames, key)
			delete(seen, key)
		}
	}
	extras := make([]string, 0, len(seen))
	for key := range seen {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	return append(fieldnames, extras...)
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
