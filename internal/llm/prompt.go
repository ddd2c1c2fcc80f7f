package llm

import "strings"

// PageSchemaLiteral is the exact schema contract sent to the model for
// every page. All leaf values are nullable; dates are YYYY-MM-DD
// strings; numeric fields are JSON numbers with a dot decimal
// separator.
const PageSchemaLiteral = `{"empresa":{"nombre":"string|null","direccion":"string|null","cif":"string|null","email":"string|null","website":"string|null"},` +
	`"cliente":{"nombre":"string|null","direccion":"string|null","nif":"string|null","numero_cliente":"string|null"},` +
	`"factura":{"numero":"string|null","fecha_emision":"string(YYYY-MM-DD)|null","fecha_vencimiento":"string(YYYY-MM-DD)|null","forma_pago":"string|null"},` +
	`"articulos":[{"articulo":"string|null","descripcion":"string|null","cantidad":"number|null","precio":"number|null","importe":"number|null","lote":"string|null","caducidad":"string(YYYY-MM-DD)|null"}],` +
	`"totales":{"base_imponible":"number|null","iva_porcentaje":"number|null","iva_total":"number|null","total_factura":"number|null"}}`

// BuildPagePrompt composes the per-page extraction prompt: JSON-only
// output, the literal schema, and the page's OCR text.
func BuildPagePrompt(pageText string) string {
	var b strings.Builder
	b.WriteString("Analiza el texto OCR de UNA PÁGINA de factura. ")
	b.WriteString("Devuelve **únicamente** un objeto JSON válido que siga **estrictamente** el esquema. ")
	b.WriteString("**No incluyas NADA más.** ")
	b.WriteString(`Usa comillas dobles (" ") para claves y strings. Usa comas (,) correctamente. `)
	b.WriteString("Si un campo falta, usa `null`. ")
	b.WriteString("Extrae solo artículos de esta página. ")
	b.WriteString("Normaliza fechas a YYYY-MM-DD. ")
	b.WriteString("Convierte números a tipo number (float/int) usando punto (.) decimal. ")
	b.WriteString("Verifica la sintaxis JSON. ")
	b.WriteString("Esquema: ")
	b.WriteString(PageSchemaLiteral)
	b.WriteString("\nTexto OCR:\n-------------------------\n")
	b.WriteString(pageText)
	b.WriteString("\n-------------------------\nJSON extraído:")
	return b.String()
}
