package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-api/internal/application/billing"
	"github.com/jhoicas/facturador-api/internal/application/dto"
	"github.com/jhoicas/facturador-api/internal/domain"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// SubmissionService operaciones de envío fiscal que expone el handler.
// Lo implementa *billing.SubmissionManager.
type SubmissionService interface {
	SubmitInvoice(ctx context.Context, companyID, invoiceID string) (*billing.SubmissionOutcome, error)
	GetJob(ctx context.Context, companyID, jobID string) (*billing.JobDetail, error)
	ListInvoiceJobs(ctx context.Context, companyID, invoiceID string) ([]*entity.SubmissionJob, error)
}

// SubmissionHandler maneja el envío de facturas a la autoridad fiscal (protegido).
type SubmissionHandler struct {
	svc SubmissionService
	log zerolog.Logger
}

// NewSubmissionHandler construye el handler.
func NewSubmissionHandler(svc SubmissionService, log zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, log: log}
}

// Submit envía la factura y espera el resultado.
// POST /api/invoices/:id/submit
func (h *SubmissionHandler) Submit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	invoiceID := c.Params("id")

	out, err := h.svc.SubmitInvoice(c.Context(), companyID, invoiceID)
	if err != nil {
		status, body := errorStatus(err)
		resp := dto.SubmitInvoiceResponse{Success: false, Error: &body}
		if out != nil {
			resp.JobID = out.JobID
		}
		h.logFailure(err, status).
			Str("invoice_id", invoiceID).
			Str("job_id", resp.JobID).
			Msg("envío fiscal fallido")
		return c.Status(status).JSON(resp)
	}

	resp := dto.SubmitInvoiceResponse{Success: true, JobID: out.JobID}
	if out.Result != nil {
		resp.Data = &dto.SubmissionResultData{
			CUFE:           out.Result.CUFE,
			QRPayload:      out.Result.QRPayload,
			DocumentNumber: out.Result.DocumentNumber,
			Message:        out.Result.Message,
		}
	}
	return c.JSON(resp)
}

// ListByInvoice historial de jobs de una factura, el más reciente primero.
// GET /api/invoices/:id/submissions
func (h *SubmissionHandler) ListByInvoice(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	jobs, err := h.svc.ListInvoiceJobs(c.Context(), companyID, c.Params("id"))
	if err != nil {
		status, body := errorStatus(err)
		h.logFailure(err, status).Msg("listar envíos")
		return c.Status(status).JSON(body)
	}
	out := make([]dto.SubmissionJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, dto.ToSubmissionJobResponse(j, false))
	}
	return c.JSON(out)
}

// GetByID detalle de un job con payloads y eventos de auditoría.
// GET /api/submissions/:id
func (h *SubmissionHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	detail, err := h.svc.GetJob(c.Context(), companyID, c.Params("id"))
	if err != nil {
		status, body := errorStatus(err)
		h.logFailure(err, status).Msg("consultar envío")
		return c.Status(status).JSON(body)
	}
	return c.JSON(dto.SubmissionJobDetailResponse{
		SubmissionJobResponse: dto.ToSubmissionJobResponse(detail.Job, true),
		Events:                dto.ToAuditEventResponses(detail.Events),
	})
}

func (h *SubmissionHandler) logFailure(err error, status int) *zerolog.Event {
	ev := h.log.Warn()
	if status >= fiber.StatusInternalServerError && domain.KindOf(err) == domain.KindInternal {
		ev = h.log.Error()
	}
	return ev.Err(err).Int("status", status)
}
