package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la factura local.
const (
	InvoiceStatusDraft     = "draft"     // En edición, aún no se puede enviar
	InvoiceStatusFinalized = "finalized" // Cerrada localmente, lista para envío fiscal
	InvoiceStatusValidated = "validated" // Validada por la autoridad fiscal (inmutable)
)

// Tipos de documento fiscal (Anexo Técnico DIAN, tabla 13.1.3).
const (
	DocumentTypeInvoice = "01" // Factura electrónica de venta
)

// Formas de pago.
const (
	PaymentFormCash   = "1" // Contado
	PaymentFormCredit = "2" // Crédito
)

// Invoice representa la cabecera de una factura de venta.
// El pipeline fiscal solo escribe CUFE, QRPayload, FiscalNumber, ValidatedAt y Status.
type Invoice struct {
	ID                string
	CompanyID         string
	BranchID          string // opcional: sede que emite
	CustomerID        string
	DocumentType      string
	ReferenceCode     string // opcional; si va vacío el mapper genera uno determinístico
	PaymentMethodCode string // código DIAN explícito (10, 47, 48...)
	PaymentMethod     string // etiqueta humana ("Efectivo", "Tarjeta débito"...)
	PaymentForm       string // 1=Contado, 2=Crédito
	DueDate           *time.Time
	Notes             string
	Status            string
	IssuedAt          time.Time

	CUFE         string // Código Único de Factura Electrónica devuelto por la autoridad
	QRPayload    string // Contenido del QR devuelto por la autoridad
	FiscalNumber string // Número asignado por el rango de numeración (prefijo + consecutivo)
	ValidatedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsValidated indica si la factura ya tiene respuesta fiscal definitiva.
func (i *Invoice) IsValidated() bool {
	return i.Status == InvoiceStatusValidated
}

// InvoiceItem representa una línea de la factura.
// Los montos son anulables: el origen de datos puede no tenerlos diligenciados.
type InvoiceItem struct {
	ID            string
	InvoiceID     string
	ProductCode   string
	Description   string
	Quantity      decimal.NullDecimal
	DiscountRate  decimal.NullDecimal // porcentaje (0-100)
	UnitPrice     decimal.NullDecimal
	TaxRate       decimal.NullDecimal // porcentaje (19, 5, 0)
	UnitMeasureID int                 // id de unidad de medida del proveedor; 0 = unidad
	IsExcluded    bool                // excluido de IVA
	Position      int
}
