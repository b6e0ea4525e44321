package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

var _ repository.AuditEventRepository = (*AuditEventRepo)(nil)

// AuditEventRepo historial append-only de los jobs (submission_audit_events).
type AuditEventRepo struct {
	db Querier
}

// NewAuditEventRepository construye el repositorio.
func NewAuditEventRepository(db Querier) *AuditEventRepo {
	return &AuditEventRepo{db: db}
}

func (r *AuditEventRepo) Append(ctx context.Context, ev *entity.AuditEvent) error {
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	const q = `
		INSERT INTO submission_audit_events (id, job_id, event_type, event_code, event_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.Exec(ctx, q, ev.ID, ev.JobID, ev.EventType, ev.EventCode, ev.EventMessage, meta, ev.CreatedAt); err != nil {
		return fmt.Errorf("insert audit_event: %w", err)
	}
	return nil
}

// ListByJob devuelve los eventos en orden de creación.
func (r *AuditEventRepo) ListByJob(ctx context.Context, jobID string) ([]*entity.AuditEvent, error) {
	const q = `
		SELECT id, job_id, event_type, event_code, event_message, metadata, created_at
		FROM submission_audit_events WHERE job_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("list audit_events: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEvent
	for rows.Next() {
		var (
			ev   entity.AuditEvent
			meta []byte
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.EventType, &ev.EventCode, &ev.EventMessage, &meta, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit_event: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}
