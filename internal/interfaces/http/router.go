package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Submissions    SubmissionService
	InvoicePDF     InvoicePDFService
	MetricsHandler http.Handler // nil: sin /metrics
	JWTSecret      string
	JWTIssuer      string
	Log            zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	canSubmit := RequireRole(jwt.RoleAdmin, jwt.RoleBilling)

	submissionHandler := NewSubmissionHandler(deps.Submissions, deps.Log.With().Str("handler", "submission").Logger())
	invoiceHandler := NewInvoiceHandler(deps.InvoicePDF, deps.Log.With().Str("handler", "invoice").Logger())

	invoices := protected.Group("/invoices")
	invoices.Post("/:id/submit", canSubmit, submissionHandler.Submit)
	invoices.Get("/:id/submissions", submissionHandler.ListByInvoice)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)

	submissions := protected.Group("/submissions")
	submissions.Get("/:id", submissionHandler.GetByID)
}
