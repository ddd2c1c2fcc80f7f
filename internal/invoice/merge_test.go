package invoice

import (
	"encoding/json"
	"strings"
	"testing"
)

func page(num int, record map[string]any) PageResult {
	return PageResult{Page: num, Record: record}
}

func TestMergeEmptyPagesStillComplete(t *testing.T) {
	merged, ok := Merge([]PageResult{page(1, map[string]any{})})
	if !ok {
		t.Fatal("expected a merged record for a present-but-empty page")
	}

	b, err := json.Marshal(merged)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	for _, section := range []string{`"empresa"`, `"cliente"`, `"factura"`, `"articulos"`, `"totales"`} {
		if !strings.Contains(out, section) {
			t.Errorf("merged output missing section %s: %s", section, out)
		}
	}
	if !strings.Contains(out, `"articulos":[]`) {
		t.Errorf("articulos should marshal as an empty array, got %s", out)
	}
	for name, subs := range SchemaKeys {
		sec := merged.Section(name)
		for _, sub := range subs {
			v, present := sec[sub]
			if !present {
				t.Errorf("%s.%s missing from merged record", name, sub)
			}
			if v != nil {
				t.Errorf("%s.%s = %v, want null", name, sub, v)
			}
		}
	}
}

func TestMergeNoUsablePages(t *testing.T) {
	if _, ok := Merge(nil); ok {
		t.Error("merge of zero pages should be absent")
	}
	if _, ok := Merge([]PageResult{{Page: 1, Err: "P1: boom"}}); ok {
		t.Error("merge of only-absent pages should be absent")
	}
}

func TestMergeHeaderFirstWinsIsPositional(t *testing.T) {
	p1 := map[string]any{"empresa": map[string]any{"nombre": "A"}}
	p2 := map[string]any{"empresa": map[string]any{"nombre": "B"}}

	merged, _ := Merge([]PageResult{page(1, p1), page(2, p2)})
	if got := merged.Empresa["nombre"]; got != "A" {
		t.Errorf("forward order: nombre = %v, want A", got)
	}

	merged, _ = Merge([]PageResult{page(1, p2), page(2, p1)})
	if got := merged.Empresa["nombre"]; got != "B" {
		t.Errorf("reversed order: nombre = %v, want B", got)
	}
}

func TestMergeHeaderNullDoesNotClaimSlot(t *testing.T) {
	p1 := map[string]any{"cliente": map[string]any{"nif": nil}}
	p2 := map[string]any{"cliente": map[string]any{"nif": "B123"}}

	merged, _ := Merge([]PageResult{page(1, p1), page(2, p2)})
	if got := merged.Cliente["nif"]; got != "B123" {
		t.Errorf("nif = %v, want B123 (null must not win)", got)
	}
}

func TestMergeTotalsLastWins(t *testing.T) {
	p1 := map[string]any{"totales": map[string]any{"total_factura": 100.0}}
	p2 := map[string]any{"totales": map[string]any{"total_factura": 150.0}}

	merged, _ := Merge([]PageResult{page(1, p1), page(2, p2)})
	if got := merged.Totales["total_factura"]; got != 150.0 {
		t.Errorf("total_factura = %v, want 150", got)
	}

	// A later null must not erase an earlier value.
	p3 := map[string]any{"totales": map[string]any{"total_factura": nil}}
	merged, _ = Merge([]PageResult{page(1, p2), page(2, p3)})
	if got := merged.Totales["total_factura"]; got != 150.0 {
		t.Errorf("total_factura = %v, want 150 after trailing null", got)
	}
}

func TestMergeTotalsAreNumericOrNull(t *testing.T) {
	p1 := map[string]any{"totales": map[string]any{
		"base_imponible": "150.00",
		"iva_total":      "no-lo-se",
	}}
	merged, _ := Merge([]PageResult{page(1, p1)})

	if got := merged.Totales["base_imponible"]; got != 150.0 {
		t.Errorf("base_imponible = %v (%T), want 150.0", got, got)
	}
	if got := merged.Totales["iva_total"]; got != nil {
		t.Errorf("iva_total = %v, want null for an unparseable string", got)
	}
}

func TestMergeLineItemOrderPreserved(t *testing.T) {
	p1 := map[string]any{"articulos": []any{
		map[string]any{"articulo": "a1"},
		map[string]any{"articulo": "a2"},
	}}
	p2 := map[string]any{"articulos": []any{
		map[string]any{"articulo": "b1"},
	}}

	merged, _ := Merge([]PageResult{page(1, p1), page(2, p2)})
	if len(merged.Articulos) != 3 {
		t.Fatalf("got %d items, want 3", len(merged.Articulos))
	}
	want := []string{"a1", "a2", "b1"}
	for i, w := range want {
		if merged.Articulos[i]["articulo"] != w {
			t.Errorf("item %d = %v, want %s", i, merged.Articulos[i]["articulo"], w)
		}
	}
}

func TestMergeSkipsNonObjectItemsAndMissingArrays(t *testing.T) {
	p1 := map[string]any{"articulos": []any{"not-an-object", 42.0, map[string]any{"articulo": "ok"}}}
	p2 := map[string]any{"empresa": map[string]any{"nombre": "ACME"}} // no articulos at all

	merged, _ := Merge([]PageResult{page(1, p1), page(2, p2)})
	if len(merged.Articulos) != 1 {
		t.Fatalf("got %d items, want 1", len(merged.Articulos))
	}
	if merged.Articulos[0]["articulo"] != "ok" {
		t.Errorf("unexpected surviving item: %v", merged.Articulos[0])
	}
}

func TestMergeAbsentPageIsTransparent(t *testing.T) {
	p2 := map[string]any{
		"factura": map[string]any{"numero": "F-77"},
		"articulos": []any{
			map[string]any{"articulo": "x"},
		},
	}
	merged, ok := Merge([]PageResult{
		{Page: 1, Err: "P1: model returned garbage"},
		page(2, p2),
	})
	if !ok {
		t.Fatal("one failed page must not suppress the merge")
	}
	if merged.Factura["numero"] != "F-77" {
		t.Errorf("numero = %v, want F-77", merged.Factura["numero"])
	}
	if len(merged.Articulos) != 1 {
		t.Errorf("got %d items, want 1", len(merged.Articulos))
	}
}
