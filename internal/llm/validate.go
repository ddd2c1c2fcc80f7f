package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns the merged-record schema as a generic
// map: five sections always present, string-or-null header fields,
// number-or-null totals, open-ended line items.
func BuildInvoiceJSONSchema() map[string]any {
	str := func() map[string]any { return map[string]any{"type": []string{"string", "null"}} }
	num := func() map[string]any { return map[string]any{"type": []string{"number", "null"}} }
	section := func(props map[string]any) map[string]any {
		return map[string]any{"type": "object", "properties": props}
	}

	return map[string]any{
		"type":     "object",
		"required": []string{"empresa", "cliente", "factura", "articulos", "totales"},
		"properties": map[string]any{
			"empresa": section(map[string]any{
				"nombre": str(), "direccion": str(), "cif": str(), "email": str(), "website": str(),
			}),
			"cliente": section(map[string]any{
				"nombre": str(), "direccion": str(), "nif": str(), "numero_cliente": str(),
			}),
			"factura": section(map[string]any{
				"numero": str(), "fecha_emision": str(), "fecha_vencimiento": str(), "forma_pago": str(),
			}),
			"articulos": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
			"totales": section(map[string]any{
				"base_imponible": num(), "iva_porcentaje": num(), "iva_total": num(), "total_factura": num(),
			}),
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
