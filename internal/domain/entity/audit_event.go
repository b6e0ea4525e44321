package entity

import "time"

// Tipos de evento de auditoría.
const (
	EventTypeProcessing = "processing"
	EventTypeValidated  = "validated"
	EventTypeError      = "error"
)

// Códigos de evento de auditoría.
const (
	EventCodeSubmissionStarted = "SUBMISSION_STARTED"
	EventCodeValidated         = "VALIDATED"
	EventCodePreparationError  = "PREPARATION_ERROR"
	EventCodeAuthError         = "AUTH_ERROR"
	EventCodeSubmissionError   = "SUBMISSION_ERROR"
	EventCodeTransportError    = "TRANSPORT_ERROR"
	EventCodeInterrupted       = "INTERRUPTED"

	// aceptado por la autoridad sin registro local; no se reenvía
	EventCodeAcceptedNotPersisted  = "ACCEPTED_NOT_PERSISTED"
	EventCodeReconciliationStarted = "RECONCILIATION_STARTED"
)

// AuditEvent es un registro inmutable asociado a un SubmissionJob.
// El stream de eventos de un job permite reconstruir su historia completa.
type AuditEvent struct {
	ID           string
	JobID        string
	EventType    string
	EventCode    string
	EventMessage string
	Metadata     EventMetadata
	CreatedAt    time.Time
}

// EventMetadata datos estructurados del evento (se persiste como JSONB).
type EventMetadata struct {
	DocumentNumber string     `json:"document_number,omitempty"`
	CUFE           string     `json:"cufe,omitempty"`
	Attempt        int        `json:"attempt,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	Environment    string     `json:"environment,omitempty"`
	StatusCode     int        `json:"status_code,omitempty"`
}
