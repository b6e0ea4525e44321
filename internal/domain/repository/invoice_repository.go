package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// FiscalResult datos devueltos por la autoridad que se copian a la factura.
type FiscalResult struct {
	CUFE         string
	QRPayload    string
	FiscalNumber string
	ValidatedAt  time.Time
}

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
// El pipeline fiscal solo lee la factura y registra el resultado de la validación.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetItemsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
	// MarkValidated guarda CUFE, QR, número fiscal y fecha, y pasa la factura a "validated".
	MarkValidated(ctx context.Context, invoiceID string, res FiscalResult) error
}
