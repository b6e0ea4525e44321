package billing

import (
	"context"
	"time"

	domdian "github.com/jhoicas/facturador-api/internal/domain/dian"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

// TokenProvider entrega un token bearer vigente del proveedor fiscal (caché de credenciales).
type TokenProvider interface {
	GetValidToken(ctx context.Context, creds entity.Credentials) (string, error)
}

// DocumentSubmitter envía el documento mapeado al proveedor. Una llamada por invocación.
type DocumentSubmitter interface {
	Submit(ctx context.Context, environment, token string, doc domdian.FiscalDocumentV1) (*domdian.SubmissionResult, error)
}

// SubmissionTxRunner ejecuta la aceptación de un envío en una sola transacción:
// el job pasa a "accepted" y la factura recibe los identificadores fiscales, o nada cambia.
type SubmissionTxRunner interface {
	RunAcceptance(ctx context.Context, fn func(
		jobRepo repository.SubmissionJobRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// Metrics puerto de observabilidad del pipeline. Puede ser nil.
type Metrics interface {
	ObserveSubmission(outcome string, duration time.Duration)
	ObserveRetrySweep(recovered, retried int)
}

// Locker exclusión entre instancias del barrido de reintentos.
// release libera el lock; ok=false si otra instancia lo tiene.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// InvoicePDFGenerator genera la representación gráfica de una factura validada.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc InvoicePDFData) ([]byte, error)
}

// InvoicePDFData datos ya cargados para la representación gráfica.
type InvoicePDFData struct {
	Invoice  *entity.Invoice
	Company  *entity.Company
	Branch   *entity.Branch
	Customer *entity.Customer
	Items    []*entity.InvoiceItem
}
