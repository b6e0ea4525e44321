package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

// AuditRecorder agrega eventos al historial de un job. Un fallo al escribir se registra en
// el log y se descarta: la auditoría nunca cambia el resultado del envío.
type AuditRecorder struct {
	repo repository.AuditEventRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewAuditRecorder construye el registrador de auditoría.
func NewAuditRecorder(repo repository.AuditEventRepository, log zerolog.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, log: log, now: time.Now}
}

// Record inserta un evento append-only.
func (r *AuditRecorder) Record(ctx context.Context, jobID, eventType, code, message string, meta entity.EventMetadata) {
	ev := &entity.AuditEvent{
		ID:           uuid.New().String(),
		JobID:        jobID,
		EventType:    eventType,
		EventCode:    code,
		EventMessage: message,
		Metadata:     meta,
		CreatedAt:    r.now().UTC(),
	}
	if err := r.repo.Append(ctx, ev); err != nil {
		r.log.Error().Err(err).
			Str("job_id", jobID).
			Str("event_type", eventType).
			Str("event_code", code).
			Msg("no se pudo registrar el evento de auditoría")
	}
}
