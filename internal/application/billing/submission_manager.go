package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-api/internal/domain"
	domdian "github.com/jhoicas/facturador-api/internal/domain/dian"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

// DefaultRetryBackoff tiempo hasta el próximo reintento sugerido tras un fallo.
const DefaultRetryBackoff = 5 * time.Minute

// SubmissionConfig parámetros del envío fiscal.
type SubmissionConfig struct {
	Credentials  entity.Credentials
	Timeout      time.Duration // límite de la llamada al proveedor; 0 = sin límite propio
	RetryBackoff time.Duration // 0 = DefaultRetryBackoff
}

// SubmissionRepos repositorios que usa el SubmissionManager.
type SubmissionRepos struct {
	Invoices       repository.InvoiceRepository
	Companies      repository.CompanyRepository
	Customers      repository.CustomerRepository
	Ranges         repository.NumberingRangeRepository
	Municipalities repository.MunicipalityResolver
	Jobs           repository.SubmissionJobRepository
	Events         repository.AuditEventRepository
}

// SubmissionOutcome resultado de SubmitInvoice. JobID está presente en todo camino que
// llegó a crear (o reclamar) un job, también cuando se devuelve error.
type SubmissionOutcome struct {
	JobID  string
	Job    *entity.SubmissionJob
	Result *domdian.SubmissionResult // solo en éxito
}

// JobDetail job con su historial de auditoría en orden de creación.
type JobDetail struct {
	Job    *entity.SubmissionJob
	Events []*entity.AuditEvent
}

// SubmissionManager orquesta el ciclo de vida del envío fiscal de una factura:
//
//	validar → rango de numeración → job processing → mapear → token → enviar → accepted|failed
//
// Es el único lugar donde un error se convierte en transición de estado. Se ejecuta de forma
// síncrona dentro del request; una vez el job está en processing ya no depende de la
// cancelación del caller.
type SubmissionManager struct {
	repos     SubmissionRepos
	tokens    TokenProvider
	submitter DocumentSubmitter
	tx        SubmissionTxRunner
	audit     *AuditRecorder
	metrics   Metrics
	cfg       SubmissionConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewSubmissionManager construye el orquestador. metrics puede ser nil.
func NewSubmissionManager(
	repos SubmissionRepos,
	tokens TokenProvider,
	submitter DocumentSubmitter,
	tx SubmissionTxRunner,
	audit *AuditRecorder,
	metrics Metrics,
	cfg SubmissionConfig,
	log zerolog.Logger,
) *SubmissionManager {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Credentials.Environment == "" {
		cfg.Credentials.Environment = entity.EnvironmentSandbox
	}
	return &SubmissionManager{
		repos:     repos,
		tokens:    tokens,
		submitter: submitter,
		tx:        tx,
		audit:     audit,
		metrics:   metrics,
		cfg:       cfg,
		log:       log.With().Str("component", "submission_manager").Logger(),
		now:       time.Now,
	}
}

// SubmitInvoice envía la factura a la autoridad fiscal.
//
// Errores sin job: domain.ErrInvalidInput, domain.ErrNotConfigured, domain.ErrNotFound,
// domain.ErrForbidden, domain.ErrAlreadyValidated, domain.ErrNumberingRangeMissing,
// domain.ErrSubmissionInProgress. Con job (outcome.JobID presente): fallo de preparación,
// autenticación, rechazo o transporte; el job queda en failed.
//
// Si el último job guarda una aceptación que no se pudo registrar, no se reenvía el
// documento: solo se completa el registro local con el CUFE y el número guardados.
func (m *SubmissionManager) SubmitInvoice(ctx context.Context, companyID, invoiceID string) (*SubmissionOutcome, error) {
	start := m.now()
	companyID = strings.TrimSpace(companyID)
	invoiceID = strings.TrimSpace(invoiceID)
	if companyID == "" || invoiceID == "" {
		return nil, fmt.Errorf("%w: empresa y factura son requeridas", domain.ErrInvalidInput)
	}
	if !m.cfg.Credentials.Configured() {
		m.observe("rejected", domain.ErrNotConfigured, start)
		return nil, domain.ErrNotConfigured
	}

	inv, rng, err := m.checkPreconditions(ctx, companyID, invoiceID)
	if err != nil {
		m.observe("rejected", err, start)
		return nil, err
	}

	job, pending, err := m.claimJob(ctx, inv)
	if err != nil {
		m.observe("rejected", err, start)
		return nil, err
	}

	// el job ya está en processing: debe terminar en accepted o failed aunque el caller se vaya
	ctx = context.WithoutCancel(ctx)
	out := &SubmissionOutcome{JobID: job.ID, Job: job}
	env := m.cfg.Credentials.Environment
	attempt := job.AttemptCount + 1

	if pending != nil {
		m.audit.Record(ctx, job.ID, entity.EventTypeProcessing, entity.EventCodeReconciliationStarted,
			fmt.Sprintf("registro de la aceptación previa de la factura %s (CUFE %s)", inv.ID, pending.CUFE),
			entity.EventMetadata{CUFE: pending.CUFE, DocumentNumber: pending.DocumentNumber, Attempt: attempt, Environment: env})
		return m.accept(ctx, out, inv, pending.Result(), start)
	}

	m.audit.Record(ctx, job.ID, entity.EventTypeProcessing, entity.EventCodeSubmissionStarted,
		fmt.Sprintf("envío de la factura %s iniciado (intento %d)", inv.ID, attempt),
		entity.EventMetadata{Attempt: attempt, Environment: env})

	doc, err := m.prepareDocument(ctx, inv, rng)
	if err != nil {
		return m.fail(ctx, out, start, entity.EventCodePreparationError, err)
	}
	payload, err := doc.Payload()
	if err != nil {
		return m.fail(ctx, out, start, entity.EventCodePreparationError, fmt.Errorf("serializar documento: %w", err))
	}
	if err := m.repos.Jobs.SaveRequestPayload(ctx, job.ID, payload, m.now()); err != nil {
		return m.fail(ctx, out, start, entity.EventCodePreparationError, fmt.Errorf("guardar request_payload: %w", err))
	}
	job.RequestPayload = payload

	token, err := m.tokens.GetValidToken(ctx, m.cfg.Credentials)
	if err != nil {
		return m.fail(ctx, out, start, entity.EventCodeAuthError, err)
	}

	submitCtx, cancel := m.submitContext(ctx)
	res, err := m.submitter.Submit(submitCtx, env, token, doc)
	cancel()
	if err != nil {
		code := entity.EventCodeSubmissionError
		if errors.Is(err, domain.ErrTransport) {
			code = entity.EventCodeTransportError
		}
		return m.fail(ctx, out, start, code, err)
	}

	return m.accept(ctx, out, inv, res, start)
}

func (m *SubmissionManager) checkPreconditions(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, *entity.NumberingRange, error) {
	inv, err := m.repos.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("envío: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, nil, domain.ErrForbidden
	}
	if inv.IsValidated() {
		return nil, nil, domain.ErrAlreadyValidated
	}

	docType := inv.DocumentType
	if docType == "" {
		docType = entity.DocumentTypeInvoice
	}
	rng, err := m.repos.Ranges.GetActive(ctx, companyID, docType)
	if err != nil {
		return nil, nil, fmt.Errorf("envío: obtener rango de numeración: %w", err)
	}
	if rng == nil {
		return nil, nil, fmt.Errorf("%w (tipo de documento %s)", domain.ErrNumberingRangeMissing, docType)
	}
	return inv, rng, nil
}

// claimJob reutiliza el último job fallido de la factura o crea uno nuevo, siempre en
// processing. La exclusividad por factura la garantiza el repositorio. Si el job reclamado
// guarda una aceptación sin registrar, la devuelve.
func (m *SubmissionManager) claimJob(ctx context.Context, inv *entity.Invoice) (*entity.SubmissionJob, *domdian.PendingAcceptance, error) {
	now := m.now().UTC()
	latest, err := m.repos.Jobs.GetLatestByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("envío: obtener último job: %w", err)
	}
	if latest != nil {
		switch latest.Status {
		case entity.JobStatusProcessing, entity.JobStatusPending:
			return nil, nil, domain.ErrSubmissionInProgress
		case entity.JobStatusAccepted:
			return nil, nil, domain.ErrAlreadyValidated
		case entity.JobStatusFailed:
			job, err := m.repos.Jobs.ClaimFailed(ctx, latest.ID, now)
			if errors.Is(err, domain.ErrConflict) {
				return nil, nil, domain.ErrSubmissionInProgress
			}
			if err != nil {
				return nil, nil, fmt.Errorf("envío: reclamar job %s: %w", latest.ID, err)
			}
			pending, _ := domdian.DecodePendingAcceptance(job.ResponsePayload)
			return job, pending, nil
		}
	}

	job := &entity.SubmissionJob{
		ID:             uuid.New().String(),
		InvoiceID:      inv.ID,
		CompanyID:      inv.CompanyID,
		Status:         entity.JobStatusProcessing,
		RequestPayload: entity.EmptyPayload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.repos.Jobs.CreateProcessing(ctx, job); err != nil {
		if errors.Is(err, domain.ErrSubmissionInProgress) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("envío: crear job: %w", err)
	}
	return job, nil, nil
}

// prepareDocument carga los datos relacionados y mapea el documento. Los datos opcionales
// ausentes no son error: el mapper aplica los valores por defecto.
func (m *SubmissionManager) prepareDocument(ctx context.Context, inv *entity.Invoice, rng *entity.NumberingRange) (domdian.FiscalDocumentV1, error) {
	items, err := m.repos.Invoices.GetItemsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return domdian.FiscalDocumentV1{}, fmt.Errorf("obtener líneas: %w", err)
	}
	src := domdian.InvoiceSource{Invoice: inv}

	if inv.CustomerID != "" {
		if src.Customer, err = m.repos.Customers.GetByID(ctx, inv.CustomerID); err != nil {
			return domdian.FiscalDocumentV1{}, fmt.Errorf("obtener cliente: %w", err)
		}
	}
	if src.Company, err = m.repos.Companies.GetByID(ctx, inv.CompanyID); err != nil {
		return domdian.FiscalDocumentV1{}, fmt.Errorf("obtener empresa: %w", err)
	}
	if inv.BranchID != "" {
		if src.Branch, err = m.repos.Companies.GetBranchByID(ctx, inv.BranchID); err != nil {
			return domdian.FiscalDocumentV1{}, fmt.Errorf("obtener sede: %w", err)
		}
	}

	return domdian.MapInvoiceToFiscalDocument(src, items, rng, m.resolveMunicipality(ctx, src.Customer)), nil
}

// resolveMunicipality devuelve 0 (el mapper usa el municipio por defecto) si no hay código
// o si la consulta falla.
func (m *SubmissionManager) resolveMunicipality(ctx context.Context, c *entity.Customer) int {
	if c == nil || strings.TrimSpace(c.MunicipalityCode) == "" || m.repos.Municipalities == nil {
		return 0
	}
	id, ok, err := m.repos.Municipalities.ResolveMunicipalityID(ctx, strings.TrimSpace(c.MunicipalityCode))
	if err != nil {
		m.log.Warn().Err(err).Str("municipality_code", c.MunicipalityCode).Msg("no se pudo resolver el municipio, se usa el valor por defecto")
		return 0
	}
	if !ok {
		return 0
	}
	return id
}

func (m *SubmissionManager) submitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, m.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// fail pasa el job a failed, programa el próximo reintento y audita el error. El evento se
// registra aunque el job no se haya podido actualizar.
func (m *SubmissionManager) fail(ctx context.Context, out *SubmissionOutcome, start time.Time, code string, cause error) (*SubmissionOutcome, error) {
	now := m.now().UTC()
	next := now.Add(m.cfg.RetryBackoff)
	meta := entity.EventMetadata{
		Environment: m.cfg.Credentials.Environment,
		StatusCode:  statusCodeOf(cause),
	}

	job, err := m.repos.Jobs.MarkFailed(ctx, out.JobID, cause.Error(), next, now)
	if err != nil {
		m.log.Error().Err(err).Str("job_id", out.JobID).Msg("no se pudo marcar el job como fallido")
		meta.Attempt = out.Job.AttemptCount + 1
		m.audit.Record(ctx, out.JobID, entity.EventTypeError, code, cause.Error(), meta)
		m.observe("failed", cause, start)
		return out, errors.Join(cause, fmt.Errorf("envío: marcar job fallido: %w", err))
	}
	out.Job = job

	meta.Attempt = job.AttemptCount
	meta.NextRetryAt = &next
	m.audit.Record(ctx, out.JobID, entity.EventTypeError, code, cause.Error(), meta)

	m.log.Warn().Err(cause).
		Str("job_id", out.JobID).
		Str("invoice_id", job.InvoiceID).
		Str("event_code", code).
		Int("attempt_count", job.AttemptCount).
		Time("next_retry_at", next).
		Msg("envío fiscal fallido")
	m.observe("failed", cause, start)
	return out, cause
}

// accept registra la aceptación: job accepted + factura validada en una transacción.
func (m *SubmissionManager) accept(ctx context.Context, out *SubmissionOutcome, inv *entity.Invoice, res *domdian.SubmissionResult, start time.Time) (*SubmissionOutcome, error) {
	processedAt := m.now().UTC()
	response := res.Raw
	if len(response) == 0 {
		response = entity.EmptyPayload
	}

	err := m.tx.RunAcceptance(ctx, func(jobRepo repository.SubmissionJobRepository, invoiceRepo repository.InvoiceRepository) error {
		if err := jobRepo.MarkAccepted(ctx, out.JobID, response, processedAt); err != nil {
			return fmt.Errorf("marcar job aceptado: %w", err)
		}
		return invoiceRepo.MarkValidated(ctx, inv.ID, repository.FiscalResult{
			CUFE:         res.CUFE,
			QRPayload:    res.QRPayload,
			FiscalNumber: res.DocumentNumber,
			ValidatedAt:  processedAt,
		})
	})
	if err != nil {
		return m.acceptedNotPersisted(ctx, out, res, start, err)
	}

	job := out.Job
	job.Status = entity.JobStatusAccepted
	job.ResponsePayload = response
	job.ProcessedAt = &processedAt
	job.ErrorMessage = ""
	job.NextRetryAt = nil
	job.UpdatedAt = processedAt
	out.Result = res

	m.audit.Record(ctx, out.JobID, entity.EventTypeValidated, entity.EventCodeValidated,
		firstNonEmpty(res.Message, "documento validado por la autoridad fiscal"),
		entity.EventMetadata{
			DocumentNumber: res.DocumentNumber,
			CUFE:           res.CUFE,
			Attempt:        job.AttemptCount + 1,
			Environment:    m.cfg.Credentials.Environment,
		})

	m.log.Info().
		Str("job_id", out.JobID).
		Str("invoice_id", inv.ID).
		Str("document_number", res.DocumentNumber).
		Msg("factura validada por la autoridad fiscal")
	m.observe("accepted", nil, start)
	return out, nil
}

// acceptedNotPersisted deja el job en failed sin próximo reintento y con la aceptación en
// response_payload. Un nuevo SubmitInvoice sobre la factura solo completa el registro.
func (m *SubmissionManager) acceptedNotPersisted(ctx context.Context, out *SubmissionOutcome, res *domdian.SubmissionResult, start time.Time, txErr error) (*SubmissionOutcome, error) {
	now := m.now().UTC()
	cause := fmt.Errorf("documento aceptado (CUFE %s) pero no se pudo registrar: %w", res.CUFE, txErr)
	meta := entity.EventMetadata{
		DocumentNumber: res.DocumentNumber,
		CUFE:           res.CUFE,
		Attempt:        out.Job.AttemptCount + 1,
		Environment:    m.cfg.Credentials.Environment,
	}

	pending, err := json.Marshal(domdian.NewPendingAcceptance(res))
	if err == nil {
		var job *entity.SubmissionJob
		if job, err = m.repos.Jobs.MarkAcceptedNotPersisted(ctx, out.JobID, cause.Error(), pending, now); err == nil {
			out.Job = job
			meta.Attempt = job.AttemptCount
		}
	}
	// el CUFE queda en la auditoría también si el job no se pudo actualizar
	m.audit.Record(ctx, out.JobID, entity.EventTypeError, entity.EventCodeAcceptedNotPersisted, cause.Error(), meta)
	if err != nil {
		m.log.Error().Err(err).Str("job_id", out.JobID).Str("cufe", res.CUFE).Msg("no se pudo guardar la aceptación pendiente")
		cause = errors.Join(cause, fmt.Errorf("envío: guardar aceptación pendiente: %w", err))
	}

	m.log.Error().Err(txErr).
		Str("job_id", out.JobID).
		Str("cufe", res.CUFE).
		Str("document_number", res.DocumentNumber).
		Msg("documento aceptado sin registro local")
	m.observe("failed", cause, start)
	return out, cause
}

// GetJob devuelve el job con su historial. El job debe pertenecer a la empresa.
func (m *SubmissionManager) GetJob(ctx context.Context, companyID, jobID string) (*JobDetail, error) {
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: empresa y job son requeridos", domain.ErrInvalidInput)
	}
	job, err := m.repos.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("obtener job: %w", err)
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	if job.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	events, err := m.repos.Events.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("obtener eventos: %w", err)
	}
	return &JobDetail{Job: job, Events: events}, nil
}

// ListInvoiceJobs devuelve los jobs de la factura, el más reciente primero.
func (m *SubmissionManager) ListInvoiceJobs(ctx context.Context, companyID, invoiceID string) ([]*entity.SubmissionJob, error) {
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(invoiceID) == "" {
		return nil, fmt.Errorf("%w: empresa y factura son requeridas", domain.ErrInvalidInput)
	}
	inv, err := m.repos.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return m.repos.Jobs.ListByInvoice(ctx, invoiceID)
}

// RecoverInterrupted pasa a failed los jobs que siguen en processing desde antes de
// staleBefore (proceso caído a mitad de un envío). Devuelve cuántos recuperó.
func (m *SubmissionManager) RecoverInterrupted(ctx context.Context, staleBefore time.Time, limit int) (int, error) {
	stale, err := m.repos.Jobs.ListStaleProcessing(ctx, staleBefore, limit)
	if err != nil {
		return 0, fmt.Errorf("listar jobs interrumpidos: %w", err)
	}
	recovered := 0
	for _, j := range stale {
		now := m.now().UTC()
		next := now.Add(m.cfg.RetryBackoff)
		msg := "envío interrumpido antes de recibir respuesta"
		updated, err := m.repos.Jobs.MarkFailed(ctx, j.ID, msg, next, now)
		if errors.Is(err, domain.ErrConflict) {
			continue // terminó mientras tanto
		}
		if err != nil {
			m.log.Error().Err(err).Str("job_id", j.ID).Msg("no se pudo recuperar job interrumpido")
			continue
		}
		m.audit.Record(ctx, j.ID, entity.EventTypeError, entity.EventCodeInterrupted, msg,
			entity.EventMetadata{Attempt: updated.AttemptCount, NextRetryAt: &next, Environment: m.cfg.Credentials.Environment})
		recovered++
	}
	return recovered, nil
}

func (m *SubmissionManager) observe(outcome string, err error, start time.Time) {
	if m.metrics == nil {
		return
	}
	if err != nil {
		outcome = outcome + "_" + string(domain.KindOf(err))
	}
	m.metrics.ObserveSubmission(outcome, m.now().Sub(start))
}

func statusCodeOf(err error) int {
	var subErr *domdian.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.StatusCode
	}
	var authErr *domdian.AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
