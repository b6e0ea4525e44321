package entity

import (
	"encoding/json"
	"time"
)

// Estados del job de envío fiscal.
//
//	processing → accepted   (terminal, inmutable)
//	processing → failed     (reintentable: failed → processing con una nueva invocación)
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusAccepted   = "accepted"
	JobStatusFailed     = "failed"
)

// EmptyPayload es el placeholder de request_payload mientras el documento no se ha mapeado.
var EmptyPayload = json.RawMessage(`{}`)

// SubmissionJob es la unidad de trabajo de un envío fiscal y evidencia permanente:
// nunca se borra.
type SubmissionJob struct {
	ID              string
	InvoiceID       string
	CompanyID       string
	Status          string
	RequestPayload  json.RawMessage
	ResponsePayload json.RawMessage
	ErrorMessage    string
	AttemptCount    int
	NextRetryAt     *time.Time // solo significativo con Status == failed
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal indica si el job ya no admite transiciones.
func (j *SubmissionJob) IsTerminal() bool {
	return j.Status == JobStatusAccepted
}
