package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-api/internal/application/dto"
	"github.com/jhoicas/facturador-api/internal/domain"
)

// errorStatus traduce un error de la capa de aplicación a status HTTP y cuerpo de error.
// Los errores internos no exponen su mensaje.
func errorStatus(err error) (int, dto.ErrorResponse) {
	switch domain.KindOf(err) {
	case domain.KindConfiguration:
		if errors.Is(err, domain.ErrNumberingRangeMissing) {
			return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "NUMBERING_RANGE_MISSING", Message: err.Error()}
		}
		return fiber.StatusPreconditionFailed, dto.ErrorResponse{Code: "NOT_CONFIGURED", Message: err.Error()}
	case domain.KindAuthentication:
		return fiber.StatusBadGateway, dto.ErrorResponse{Code: "AUTH_ERROR", Message: err.Error()}
	case domain.KindSubmission:
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "SUBMISSION_REJECTED", Message: err.Error()}
	case domain.KindTransport:
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "TRANSPORT_ERROR", Message: err.Error()}
	case domain.KindConflict:
		switch {
		case errors.Is(err, domain.ErrSubmissionInProgress):
			return fiber.StatusConflict, dto.ErrorResponse{Code: "SUBMISSION_IN_PROGRESS", Message: err.Error()}
		case errors.Is(err, domain.ErrAlreadyValidated):
			return fiber.StatusConflict, dto.ErrorResponse{Code: "ALREADY_VALIDATED", Message: err.Error()}
		}
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case domain.KindInvalidInput:
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case domain.KindNotFound:
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case domain.KindForbidden:
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	}
}
