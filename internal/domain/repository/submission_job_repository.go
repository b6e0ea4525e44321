package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// SubmissionJobRepository define el puerto de persistencia de los jobs de envío.
// Las transiciones son actualizaciones condicionales sobre el estado actual: si el job no
// está en el estado esperado devuelven domain.ErrConflict.
type SubmissionJobRepository interface {
	// CreateProcessing inserta un job en "processing". Debe ser atómico respecto a otros
	// jobs "processing" de la misma factura: si ya existe uno devuelve domain.ErrSubmissionInProgress.
	CreateProcessing(ctx context.Context, job *entity.SubmissionJob) error
	// ClaimFailed pasa un job "failed" a "processing" (nuevo intento sobre el mismo job).
	// Mismo contrato de exclusividad que CreateProcessing.
	ClaimFailed(ctx context.Context, jobID string, now time.Time) (*entity.SubmissionJob, error)
	SaveRequestPayload(ctx context.Context, jobID string, payload json.RawMessage, now time.Time) error
	// MarkFailed incrementa attempt_count, guarda el error y programa next_retry_at.
	// Devuelve el job actualizado.
	MarkFailed(ctx context.Context, jobID, errMsg string, nextRetryAt, now time.Time) (*entity.SubmissionJob, error)
	// MarkAcceptedNotPersisted deja en failed un job cuyo documento la autoridad ya aceptó:
	// guarda la aceptación en response_payload y limpia next_retry_at, de modo que el
	// barrido no lo reintenta. Aplica a jobs en processing o failed.
	MarkAcceptedNotPersisted(ctx context.Context, jobID, errMsg string, pending json.RawMessage, now time.Time) (*entity.SubmissionJob, error)
	MarkAccepted(ctx context.Context, jobID string, response json.RawMessage, processedAt time.Time) error

	GetByID(ctx context.Context, id string) (*entity.SubmissionJob, error)
	// GetLatestByInvoice devuelve el job más reciente de la factura o nil, nil.
	GetLatestByInvoice(ctx context.Context, invoiceID string) (*entity.SubmissionJob, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.SubmissionJob, error)
	// ListDueRetries devuelve jobs "failed" con next_retry_at <= now y attempt_count < maxAttempts.
	// Los jobs sin next_retry_at quedan fuera.
	ListDueRetries(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*entity.SubmissionJob, error)
	// ListStaleProcessing devuelve jobs "processing" sin actualización desde before.
	ListStaleProcessing(ctx context.Context, before time.Time, limit int) ([]*entity.SubmissionJob, error)
}

// AuditEventRepository define el puerto append-only de eventos de auditoría.
// No expone actualización ni borrado.
type AuditEventRepository interface {
	Append(ctx context.Context, event *entity.AuditEvent) error
	ListByJob(ctx context.Context, jobID string) ([]*entity.AuditEvent, error)
}
