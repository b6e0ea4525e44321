package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores del flujo de envío fiscal. Cada uno pertenece a una Kind (ver KindOf).
var (
	ErrNotConfigured         = errors.New("facturación electrónica no configurada")
	ErrNumberingRangeMissing = errors.New("no hay rango de numeración activo para el tipo de documento")
	ErrSubmissionInProgress  = errors.New("ya existe un envío en proceso para la factura")
	ErrAlreadyValidated      = errors.New("la factura ya fue validada por la autoridad fiscal")
	ErrAuthentication        = errors.New("autenticación con el proveedor fiscal fallida")
	ErrSubmissionRejected    = errors.New("documento rechazado por la autoridad fiscal")
	ErrTransport             = errors.New("fallo de comunicación con el proveedor fiscal")
)

// Kind clasifica un error para que el caller lo trate de forma distinta.
type Kind string

const (
	KindConfiguration  Kind = "configuration"
	KindAuthentication Kind = "authentication"
	KindSubmission     Kind = "submission"
	KindTransport      Kind = "transport"
	KindConflict       Kind = "conflict"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindInternal       Kind = "internal"
)

// KindOf devuelve la Kind del primer error conocido en la cadena de err.
// Un error no clasificado es KindInternal; nil devuelve "".
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNumberingRangeMissing):
		return KindConfiguration
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrSubmissionRejected):
		return KindSubmission
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrSubmissionInProgress), errors.Is(err, ErrAlreadyValidated), errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized):
		return KindForbidden
	default:
		return KindInternal
	}
}
