package dian_test

import (
	"encoding/json"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-api/internal/domain/dian"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

const testInvoiceID = "3f2a9c1e-7b4d-4e8a-9f00-1234567890ab"

func buildSource() dian.InvoiceSource {
	return dian.InvoiceSource{
		Invoice: &entity.Invoice{
			ID:            testInvoiceID,
			CompanyID:     "company-1",
			DocumentType:  entity.DocumentTypeInvoice,
			PaymentMethod: "Tarjeta de Crédito",
			PaymentForm:   entity.PaymentFormCash,
			Status:        entity.InvoiceStatusFinalized,
		},
		Customer: &entity.Customer{
			ID:                   "customer-1",
			IdentificationType:   "CC",
			IdentificationNumber: "1020304050",
			FirstName:            " Ana ",
			LastName:             "Gómez",
			Email:                "ana@example.com",
		},
		Company: &entity.Company{
			Name:    "Tienda SAS",
			NIT:     "800197268-4",
			Address: "Calle 1 # 2-3",
			Phone:   "6011234567",
			Email:   "ventas@tienda.co",
		},
	}
}

func buildItems() []*entity.InvoiceItem {
	return []*entity.InvoiceItem{
		{
			ID:          "item-1",
			ProductCode: "SKU-1",
			Description: "Camisa",
			Quantity:    decimal.NewNullDecimal(decimal.NewFromInt(2)),
			UnitPrice:   decimal.NewNullDecimal(decimal.RequireFromString("50000")),
			TaxRate:     decimal.NewNullDecimal(decimal.NewFromInt(5)),
		},
		{
			ID:          "item-2",
			Description: "Servicio sin montos",
		},
	}
}

func activeRange() *entity.NumberingRange {
	return &entity.NumberingRange{ExternalID: 8, DocumentType: entity.DocumentTypeInvoice, Prefix: "SETP", IsActive: true}
}

// Escenario A: sin reference_code → "INV-" + primeros 8 caracteres del id.
func TestMap_ReferenceCodePorDefecto(t *testing.T) {
	doc := dian.MapInvoiceToFiscalDocument(buildSource(), buildItems(), activeRange(), 0)
	assert.Equal(t, "INV-3f2a9c1e", doc.ReferenceCode)
}

func TestMap_ReferenceCodeIDNoASCII(t *testing.T) {
	src := buildSource()
	src.Invoice.ID = "ñandú-añejo-001"
	doc := dian.MapInvoiceToFiscalDocument(src, buildItems(), activeRange(), 0)
	assert.Equal(t, "INV-ñandú-añ", doc.ReferenceCode)
	assert.True(t, utf8.ValidString(doc.ReferenceCode))
}

func TestMap_ReferenceCodeExplicito(t *testing.T) {
	src := buildSource()
	src.Invoice.ReferenceCode = "POS-0001"
	doc := dian.MapInvoiceToFiscalDocument(src, buildItems(), activeRange(), 0)
	assert.Equal(t, "POS-0001", doc.ReferenceCode)
}

// Escenario B: cliente sin municipio fiscal → 980.
func TestMap_MunicipioPorDefecto(t *testing.T) {
	doc := dian.MapInvoiceToFiscalDocument(buildSource(), buildItems(), activeRange(), 0)
	assert.Equal(t, "980", doc.Customer.MunicipalityID)

	doc = dian.MapInvoiceToFiscalDocument(buildSource(), buildItems(), activeRange(), 149)
	assert.Equal(t, "149", doc.Customer.MunicipalityID)
}

func TestMap_MedioDePago(t *testing.T) {
	src := buildSource()
	doc := dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)
	assert.Equal(t, "48", doc.PaymentMethodCode, "etiqueta traducida por tabla")

	src.Invoice.PaymentMethodCode = "47"
	doc = dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)
	assert.Equal(t, "47", doc.PaymentMethodCode, "el código explícito tiene prioridad")

	src.Invoice.PaymentMethodCode = ""
	src.Invoice.PaymentMethod = "trueque"
	doc = dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)
	assert.Equal(t, "10", doc.PaymentMethodCode, "etiqueta desconocida → efectivo")
}

func TestMap_EstablecimientoSedeEmpresaVacio(t *testing.T) {
	src := buildSource()
	src.Branch = &entity.Branch{Name: "Sede Norte", Phone: "6019999999"}
	src.Company.Email = ""
	doc := dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)

	assert.Equal(t, "Sede Norte", doc.Establishment.Name)
	assert.Equal(t, "6019999999", doc.Establishment.PhoneNumber)
	assert.Equal(t, "Calle 1 # 2-3", doc.Establishment.Address, "cae a la empresa")
	assert.Equal(t, "", doc.Establishment.Email, "sin valor en sede ni empresa → vacío, nunca null")

	raw, err := doc.Payload()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"email":""`)
}

func TestMap_NombreCliente(t *testing.T) {
	doc := dian.MapInvoiceToFiscalDocument(buildSource(), nil, activeRange(), 0)
	assert.Equal(t, "Ana Gómez", doc.Customer.Names)

	src := buildSource()
	src.Customer.FirstName = "  "
	src.Customer.LastName = ""
	doc = dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)
	assert.Equal(t, "Customer", doc.Customer.Names)
}

func TestMap_ClienteNIT(t *testing.T) {
	src := buildSource()
	src.Customer.IdentificationType = "NIT"
	src.Customer.IdentificationNumber = "800.197.268"
	src.Customer.CompanyName = "DIAN"
	doc := dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)

	assert.Equal(t, "800197268", doc.Customer.Identification)
	assert.Equal(t, "4", doc.Customer.DV)
	assert.Equal(t, "6", doc.Customer.IdentificationDocumentID)
	assert.Equal(t, "1", doc.Customer.LegalOrganizationID)
}

func TestMap_LineasNormalizadas(t *testing.T) {
	doc := dian.MapInvoiceToFiscalDocument(buildSource(), buildItems(), activeRange(), 0)
	require.Len(t, doc.Items, 2)

	first := doc.Items[0]
	assert.Equal(t, "SKU-1", first.CodeReference)
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, first.Price.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "5.00", first.TaxRate)

	second := doc.Items[1]
	assert.Equal(t, "item-2", second.CodeReference, "sin código de producto se usa el id de la línea")
	assert.True(t, second.Quantity.IsZero())
	assert.True(t, second.DiscountRate.IsZero())
	assert.True(t, second.Price.IsZero())
	assert.Equal(t, "19.00", second.TaxRate, "tarifa general con dos decimales")
	assert.Equal(t, 70, second.UnitMeasureID)
}

func TestMap_NumerosComoNumerosJSON(t *testing.T) {
	doc := dian.MapInvoiceToFiscalDocument(buildSource(), buildItems(), activeRange(), 0)
	raw, err := doc.Payload()
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	items := generic["items"].([]any)
	line := items[0].(map[string]any)
	assert.IsType(t, float64(0), line["quantity"])
	assert.Equal(t, "5.00", line["tax_rate"], "tax_rate viaja como string de punto fijo")
	assert.EqualValues(t, 8, generic["numbering_range_id"])
}

func TestMap_FechaVencimientoSoloCredito(t *testing.T) {
	src := buildSource()
	due := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	src.Invoice.DueDate = &due
	doc := dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)
	assert.Empty(t, doc.PaymentDueDate)

	src.Invoice.PaymentForm = entity.PaymentFormCredit
	doc = dian.MapInvoiceToFiscalDocument(src, nil, activeRange(), 0)
	assert.Equal(t, "2026-11-30", doc.PaymentDueDate)
}

// El mapper es puro: mismas entradas → mismos bytes, y no modifica sus entradas.
func TestMap_DeterministaBytes(t *testing.T) {
	src := buildSource()
	items := buildItems()

	raw1, err := dian.MapInvoiceToFiscalDocument(src, items, activeRange(), 0).Payload()
	require.NoError(t, err)
	raw2, err := dian.MapInvoiceToFiscalDocument(src, items, activeRange(), 0).Payload()
	require.NoError(t, err)

	assert.Equal(t, raw1, raw2)
	assert.Equal(t, "", src.Invoice.ReferenceCode, "no debe escribir en la factura")
	assert.False(t, items[1].Quantity.Valid, "no debe escribir en las líneas")
}

func TestMap_EntradasNil(t *testing.T) {
	doc := dian.MapInvoiceToFiscalDocument(dian.InvoiceSource{}, []*entity.InvoiceItem{nil}, nil, 0)
	assert.Equal(t, "INV-", doc.ReferenceCode)
	assert.Equal(t, "Customer", doc.Customer.Names)
	assert.Empty(t, doc.Items)
	assert.Equal(t, int64(0), doc.NumberingRangeID)
}
