package dian

import (
	"encoding/json"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain"
)

// SubmissionResult identificadores devueltos por la autoridad al aceptar el documento.
type SubmissionResult struct {
	CUFE           string
	QRPayload      string
	DocumentNumber string
	Message        string
	Raw            json.RawMessage // cuerpo completo de la respuesta (response_payload)
}

// SubmissionError fallo de un envío: mensaje crudo del transporte o motivo de rechazo.
// No decide si el error es reintentable; solo registra su origen (ErrTransport si no hubo
// respuesta HTTP, ErrSubmissionRejected si la autoridad respondió con error).
type SubmissionError struct {
	StatusCode int // 0 si no hubo respuesta HTTP
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("envío fiscal: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "envío fiscal: " + e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// NewTransportError construye un SubmissionError sin respuesta HTTP.
func NewTransportError(msg string) *SubmissionError {
	return &SubmissionError{Message: msg, Err: domain.ErrTransport}
}

// NewRejectionError construye un SubmissionError con la respuesta de la autoridad.
func NewRejectionError(statusCode int, msg string) *SubmissionError {
	return &SubmissionError{StatusCode: statusCode, Message: msg, Err: domain.ErrSubmissionRejected}
}

// AuthError fallo al obtener el token del proveedor. No se reintenta automáticamente.
type AuthError struct {
	Environment string
	StatusCode  int
	Message     string
}

func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("autenticación fiscal (%s): HTTP %d: %s", e.Environment, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("autenticación fiscal (%s): %s", e.Environment, e.Message)
}

func (e *AuthError) Unwrap() error { return domain.ErrAuthentication }

// PendingAcceptance aceptación de la autoridad que no se pudo registrar localmente. Se
// guarda como response_payload del job fallido para completar el registro sin reenviar.
type PendingAcceptance struct {
	CUFE           string          `json:"cufe"`
	QRPayload      string          `json:"qr_payload,omitempty"`
	DocumentNumber string          `json:"document_number"`
	Message        string          `json:"message,omitempty"`
	Response       json.RawMessage `json:"provider_response,omitempty"`
}

// NewPendingAcceptance copia los identificadores del resultado aceptado.
func NewPendingAcceptance(res *SubmissionResult) PendingAcceptance {
	return PendingAcceptance{
		CUFE:           res.CUFE,
		QRPayload:      res.QRPayload,
		DocumentNumber: res.DocumentNumber,
		Message:        res.Message,
		Response:       res.Raw,
	}
}

// Result reconstruye el resultado del envío a partir de la aceptación guardada.
func (p *PendingAcceptance) Result() *SubmissionResult {
	return &SubmissionResult{
		CUFE:           p.CUFE,
		QRPayload:      p.QRPayload,
		DocumentNumber: p.DocumentNumber,
		Message:        p.Message,
		Raw:            p.Response,
	}
}

// DecodePendingAcceptance lee una aceptación pendiente de un response_payload. Devuelve
// false si el payload está vacío o no trae CUFE.
func DecodePendingAcceptance(raw json.RawMessage) (*PendingAcceptance, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var p PendingAcceptance
	if err := json.Unmarshal(raw, &p); err != nil || p.CUFE == "" {
		return nil, false
	}
	return &p, true
}
