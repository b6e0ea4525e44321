package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-api/internal/application/dto"
)

// InvoicePDFService lo implementa *billing.PDFUseCase.
type InvoicePDFService interface {
	DownloadInvoicePDF(ctx context.Context, companyID, invoiceID string) ([]byte, string, error)
}

// InvoiceHandler expone la representación gráfica de facturas validadas (protegido).
type InvoiceHandler struct {
	pdf InvoicePDFService
	log zerolog.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(pdf InvoicePDFService, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{pdf: pdf, log: log}
}

// DownloadPDF devuelve el PDF de la factura.
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	pdfBytes, filename, err := h.pdf.DownloadInvoicePDF(c.Context(), companyID, id)
	if err != nil {
		status, body := errorStatus(err)
		if status == fiber.StatusConflict {
			body = dto.ErrorResponse{Code: "NOT_VALIDATED", Message: "la factura aún no ha sido validada"}
		}
		if status >= fiber.StatusInternalServerError {
			h.log.Error().Err(err).Str("invoice_id", id).Msg("generar PDF")
		}
		return c.Status(status).JSON(body)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}
