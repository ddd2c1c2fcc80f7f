package invoice

// Section is one of the header/total blocks of a record. Values are
// scalars or nil; header sections hold strings, totales holds numbers.
type Section map[string]any

// LineItem is an open-ended field → scalar mapping. The canonical
// fields are articulo, descripcion, cantidad, precio, importe, lote and
// caducidad, but pages may add or omit fields freely; nothing is
// enforced at this level.
type LineItem map[string]any

// Record is the merged invoice-level record. All five sections are
// always present in the JSON form, even when every sub-field is null
// and Articulos is empty.
type Record struct {
	Empresa   Section    `json:"empresa"`
	Cliente   Section    `json:"cliente"`
	Factura   Section    `json:"factura"`
	Articulos []LineItem `json:"articulos"`
	Totales   Section    `json:"totales"`
}

// Section keys of the fixed extraction schema.
const (
	SectionEmpresa   = "empresa"
	SectionCliente   = "cliente"
	SectionFactura   = "factura"
	SectionArticulos = "articulos"
	SectionTotales   = "totales"
)

// SchemaKeys enumerates the sub-fields of every header/total section.
// The merge backfills each of these with an explicit null when no page
// provided a value; keys are never omitted from the merged output.
var SchemaKeys = map[string][]string{
	SectionEmpresa: {"nombre", "direccion", "cif", "email", "website"},
	SectionCliente: {"nombre", "direccion", "nif", "numero_cliente"},
	SectionFactura: {"numero", "fecha_emision", "fecha_vencimiento", "forma_pago"},
	SectionTotales: {"base_imponible", "iva_porcentaje", "iva_total", "total_factura"},
}

// NewEmptyRecord returns a record with all five sections present and
// empty.
func NewEmptyRecord() *Record {
	return &Record{
		Empresa:   Section{},
		Cliente:   Section{},
		Factura:   Section{},
		Articulos: []LineItem{},
		Totales:   Section{},
	}
}

// Section returns the named header/total section of the record.
func (r *Record) Section(name string) Section {
	switch name {
	case SectionEmpresa:
		return r.Empresa
	case SectionCliente:
		return r.Cliente
	case SectionFactura:
		return r.Factura
	case SectionTotales:
		return r.Totales
	}
	return nil
}

// PageResult is the outcome of structured extraction for one page:
// either a partial record-shaped object, or an absence marker plus the
// error that produced it. It lives only for the duration of a request.
type PageResult struct {
	Page   int            // 1-based
	Record map[string]any // nil when extraction failed
	Err    string         // empty when Record is set
}
