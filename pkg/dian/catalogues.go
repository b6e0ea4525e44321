// Package dian contiene catálogos y validaciones alineados al Anexo Técnico
// de Factura Electrónica de Venta DIAN (Colombia) v1.9, y los ids paramétricos
// que exige el proveedor fiscal en el documento JSON.
package dian

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// Tabla 13 - Medios de Pago (Anexo 1.9 - 13.3.4.2) - códigos de uso frecuente
// =============================================================================

const (
	PaymentMethodEfectivo       = "10" // Efectivo
	PaymentMethodCheque         = "20" // Cheque
	PaymentMethodConsignacion   = "42" // Consignación
	PaymentMethodTransferencia  = "47" // Transferencia Débito Bancaria
	PaymentMethodTarjetaCredito = "48" // Tarjeta Crédito
	PaymentMethodTarjetaDebito  = "49" // Tarjeta Débito
	PaymentMethodBonos          = "71" // Bonos
	PaymentMethodVales          = "72" // Vales
)

// DefaultPaymentMethodCode se usa cuando la etiqueta no está en la tabla.
const DefaultPaymentMethodCode = PaymentMethodEfectivo

// paymentMethodLabels etiquetas normalizadas (minúsculas, sin tildes) → código DIAN.
var paymentMethodLabels = map[string]string{
	"efectivo":               PaymentMethodEfectivo,
	"contado":                PaymentMethodEfectivo,
	"cash":                   PaymentMethodEfectivo,
	"cheque":                 PaymentMethodCheque,
	"consignacion":           PaymentMethodConsignacion,
	"consignacion bancaria":  PaymentMethodConsignacion,
	"transferencia":          PaymentMethodTransferencia,
	"transferencia bancaria": PaymentMethodTransferencia,
	"bank transfer":          PaymentMethodTransferencia,
	"tarjeta credito":        PaymentMethodTarjetaCredito,
	"tarjeta de credito":     PaymentMethodTarjetaCredito,
	"credit card":            PaymentMethodTarjetaCredito,
	"tarjeta debito":         PaymentMethodTarjetaDebito,
	"tarjeta de debito":      PaymentMethodTarjetaDebito,
	"debit card":             PaymentMethodTarjetaDebito,
	"bonos":                  PaymentMethodBonos,
	"vales":                  PaymentMethodVales,
}

// PaymentMethodCodeFromLabel traduce la etiqueta humana del medio de pago a su código DIAN.
// La comparación ignora mayúsculas, tildes y espacios repetidos. ok=false si no hay match.
func PaymentMethodCodeFromLabel(label string) (code string, ok bool) {
	code, ok = paymentMethodLabels[NormalizeLabel(label)]
	return code, ok
}

// NormalizeLabel pasa a minúsculas, quita diacríticos y colapsa espacios.
// Ej: "  Tarjeta  de Crédito " → "tarjeta de credito".
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// =============================================================================
// Tabla 3 - Tipos de identificación (Anexo 1.9 - 13.2.1) y su id en el proveedor
// =============================================================================

const (
	IdentificationTypeCC   = "CC"  // Cédula de ciudadanía
	IdentificationTypeNIT  = "NIT" // NIT - requiere dígito de verificación
	IdentificationTypeCE   = "CE"  // Cédula de extranjería
	IdentificationTypeTI   = "TI"  // Tarjeta de identidad
	IdentificationTypePA   = "PA"  // Pasaporte
	IdentificationTypePEP  = "PEP" // Permiso especial de permanencia
	IdentificationTypeNITE = "NITE" // NIT de otro país
)

// identificationDocumentIDs tipo de identificación → identification_document_id del proveedor.
var identificationDocumentIDs = map[string]string{
	IdentificationTypeTI:   "2",
	IdentificationTypeCC:   "3",
	IdentificationTypeCE:   "5",
	IdentificationTypeNIT:  "6",
	IdentificationTypePA:   "7",
	IdentificationTypePEP:  "9",
	IdentificationTypeNITE: "10",
}

// IdentificationDocumentID devuelve el id del proveedor para el tipo; por defecto cédula ("3").
func IdentificationDocumentID(identificationType string) string {
	if id, ok := identificationDocumentIDs[strings.ToUpper(strings.TrimSpace(identificationType))]; ok {
		return id
	}
	return identificationDocumentIDs[IdentificationTypeCC]
}

// IsNIT indica si el tipo de identificación corresponde a persona jurídica colombiana.
func IsNIT(identificationType string) bool {
	return strings.EqualFold(strings.TrimSpace(identificationType), IdentificationTypeNIT)
}

// =============================================================================
// Organización jurídica y tributos (ids paramétricos del proveedor)
// =============================================================================

const (
	LegalOrganizationJuridica = "1" // Persona jurídica
	LegalOrganizationNatural  = "2" // Persona natural

	CustomerTributeIVA      = "18" // Responsable de IVA
	CustomerTributeNoAplica = "21" // No aplica (ZZ)

	ItemTributeIVA = 1 // IVA en la línea
)

// =============================================================================
// Valores por defecto del documento
// =============================================================================

const (
	// DefaultMunicipalityID municipio del proveedor usado cuando el cliente no tiene
	// municipio fiscal registrado (jurisdicción por defecto de la organización).
	DefaultMunicipalityID = 980
	// DefaultUnitMeasureID unidad de medida "unidad" (Tabla 6: código 94).
	DefaultUnitMeasureID = 70
	// DefaultStandardCodeID estándar de adopción del contribuyente.
	DefaultStandardCodeID = 1
	// DefaultTaxRatePercent tarifa general de IVA en Colombia.
	DefaultTaxRatePercent = 19
	// DefaultCustomerName reemplaza un nombre vacío: el campo es obligatorio.
	DefaultCustomerName = "Customer"
	// ReferenceCodePrefix prefijo del código de referencia generado.
	ReferenceCodePrefix = "INV-"
)
