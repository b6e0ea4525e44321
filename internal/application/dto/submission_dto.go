package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// SubmitInvoiceResponse respuesta de POST /api/invoices/:id/submit.
// JobID está presente siempre que se creó o reutilizó un job, también en fallos.
type SubmitInvoiceResponse struct {
	Success bool                  `json:"success"`
	JobID   string                `json:"job_id,omitempty"`
	Data    *SubmissionResultData `json:"data,omitempty"`
	Error   *ErrorResponse        `json:"error,omitempty"`
}

// SubmissionResultData identificadores devueltos por la autoridad fiscal.
type SubmissionResultData struct {
	CUFE           string `json:"cufe"`
	QRPayload      string `json:"qr_payload"`
	DocumentNumber string `json:"document_number"`
	Message        string `json:"message,omitempty"`
}

// SubmissionJobResponse job de envío en respuestas.
type SubmissionJobResponse struct {
	ID              string          `json:"id"`
	InvoiceID       string          `json:"invoice_id"`
	Status          string          `json:"status"`
	AttemptCount    int             `json:"attempt_count"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	NextRetryAt     *time.Time      `json:"next_retry_at,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AuditEventResponse evento del historial de un job.
type AuditEventResponse struct {
	ID        string               `json:"id"`
	EventType string               `json:"event_type"`
	EventCode string               `json:"event_code"`
	Message   string               `json:"message"`
	Metadata  entity.EventMetadata `json:"metadata"`
	CreatedAt time.Time            `json:"created_at"`
}

// SubmissionJobDetailResponse respuesta de GET /api/submissions/:id.
type SubmissionJobDetailResponse struct {
	SubmissionJobResponse
	Events []AuditEventResponse `json:"events"`
}

// ToSubmissionJobResponse convierte la entidad.
// Los payloads solo se incluyen si includePayloads es true (vista de detalle).
func ToSubmissionJobResponse(j *entity.SubmissionJob, includePayloads bool) SubmissionJobResponse {
	out := SubmissionJobResponse{
		ID:           j.ID,
		InvoiceID:    j.InvoiceID,
		Status:       j.Status,
		AttemptCount: j.AttemptCount,
		ErrorMessage: j.ErrorMessage,
		NextRetryAt:  j.NextRetryAt,
		ProcessedAt:  j.ProcessedAt,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	if includePayloads {
		out.RequestPayload = j.RequestPayload
		out.ResponsePayload = j.ResponsePayload
	}
	return out
}

// ToAuditEventResponses convierte el historial conservando el orden.
func ToAuditEventResponses(events []*entity.AuditEvent) []AuditEventResponse {
	out := make([]AuditEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, AuditEventResponse{
			ID:        ev.ID,
			EventType: ev.EventType,
			EventCode: ev.EventCode,
			Message:   ev.EventMessage,
			Metadata:  ev.Metadata,
			CreatedAt: ev.CreatedAt,
		})
	}
	return out
}
