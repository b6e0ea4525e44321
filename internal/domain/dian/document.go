package dian

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SchemaVersion versión del esquema JSON de documento fiscal del proveedor.
const SchemaVersion = "v1"

// FiscalDocumentV1 cuerpo de POST /v1/bills/validate.
// El orden de los campos fija el orden de serialización: el payload es reproducible byte a byte.
type FiscalDocumentV1 struct {
	Document          string          `json:"document"`
	NumberingRangeID  int64           `json:"numbering_range_id"`
	ReferenceCode     string          `json:"reference_code"`
	Observation       string          `json:"observation"`
	PaymentForm       string          `json:"payment_form"`
	PaymentDueDate    string          `json:"payment_due_date,omitempty"`
	PaymentMethodCode string          `json:"payment_method_code"`
	Establishment     EstablishmentV1 `json:"establishment"`
	Customer          CustomerV1      `json:"customer"`
	Items             []ItemV1        `json:"items"`
}

// EstablishmentV1 datos de contacto del emisor (sede o empresa).
type EstablishmentV1 struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// CustomerV1 adquiriente. Ningún campo de texto se envía como null.
type CustomerV1 struct {
	Identification           string `json:"identification"`
	DV                       string `json:"dv,omitempty"`
	Company                  string `json:"company"`
	TradeName                string `json:"trade_name"`
	Names                    string `json:"names"`
	Address                  string `json:"address"`
	Email                    string `json:"email"`
	Phone                    string `json:"phone"`
	LegalOrganizationID      string `json:"legal_organization_id"`
	TributeID                string `json:"tribute_id"`
	IdentificationDocumentID string `json:"identification_document_id"`
	MunicipalityID           string `json:"municipality_id"`
}

// ItemV1 línea del documento. TaxRate es string de punto fijo ("19.00"), no float.
type ItemV1 struct {
	CodeReference  string `json:"code_reference"`
	Name           string `json:"name"`
	Quantity       Number `json:"quantity"`
	DiscountRate   Number `json:"discount_rate"`
	Price          Number `json:"price"`
	TaxRate        string `json:"tax_rate"`
	UnitMeasureID  int    `json:"unit_measure_id"`
	StandardCodeID int    `json:"standard_code_id"`
	IsExcluded     int    `json:"is_excluded"`
	TributeID      int    `json:"tribute_id"`
}

// Number decimal que se serializa como número JSON (sin comillas).
type Number struct {
	decimal.Decimal
}

// MarshalJSON implementa json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// Payload serializa el documento tal como se envía y se guarda en request_payload.
func (d FiscalDocumentV1) Payload() (json.RawMessage, error) {
	return json.Marshal(d)
}
