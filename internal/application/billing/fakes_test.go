package billing

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/facturador-api/internal/domain"
	domdian "github.com/jhoicas/facturador-api/internal/domain/dian"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

// ── Repositorios en memoria ───────────────────────────────────────────────────

type memInvoices struct {
	mu        sync.Mutex
	invoices  map[string]*entity.Invoice
	items     map[string][]*entity.InvoiceItem
	markErr   error
	itemsErr  error
	validated []repository.FiscalResult
}

func newMemInvoices() *memInvoices {
	return &memInvoices{invoices: map[string]*entity.Invoice{}, items: map[string][]*entity.InvoiceItem{}}
}

func (r *memInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoices) GetItemsByInvoiceID(_ context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	if r.itemsErr != nil {
		return nil, r.itemsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[invoiceID], nil
}

func (r *memInvoices) MarkValidated(_ context.Context, invoiceID string, res repository.FiscalResult) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return domain.ErrNotFound
	}
	inv.CUFE = res.CUFE
	inv.QRPayload = res.QRPayload
	inv.FiscalNumber = res.FiscalNumber
	at := res.ValidatedAt
	inv.ValidatedAt = &at
	inv.Status = entity.InvoiceStatusValidated
	r.validated = append(r.validated, res)
	return nil
}

type memCompanies struct {
	companies map[string]*entity.Company
	branches  map[string]*entity.Branch
}

func (r *memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return r.companies[id], nil
}

func (r *memCompanies) GetBranchByID(_ context.Context, id string) (*entity.Branch, error) {
	return r.branches[id], nil
}

type memCustomers struct {
	customers map[string]*entity.Customer
}

func (r *memCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.customers[id], nil
}

type memRanges struct {
	active map[string]*entity.NumberingRange // clave: companyID|documentType
}

func (r *memRanges) GetActive(_ context.Context, companyID, documentType string) (*entity.NumberingRange, error) {
	return r.active[companyID+"|"+documentType], nil
}

type memMunicipalities struct {
	ids map[string]int
	err error
}

func (r *memMunicipalities) ResolveMunicipalityID(_ context.Context, code string) (int, bool, error) {
	if r.err != nil {
		return 0, false, r.err
	}
	id, ok := r.ids[code]
	return id, ok, nil
}

// memJobs reproduce el contrato de exclusividad del índice único parcial.
type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*entity.SubmissionJob
	seq  int
	// orden de inserción para desempatar created_at iguales
	order map[string]int
	// error forzado en MarkAcceptedNotPersisted
	pendingErr error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*entity.SubmissionJob{}, order: map[string]int{}}
}

func (r *memJobs) processingExists(invoiceID, exceptID string) bool {
	for _, j := range r.jobs {
		if j.InvoiceID == invoiceID && j.ID != exceptID && j.Status == entity.JobStatusProcessing {
			return true
		}
	}
	return false
}

func (r *memJobs) CreateProcessing(_ context.Context, job *entity.SubmissionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.processingExists(job.InvoiceID, "") {
		return domain.ErrSubmissionInProgress
	}
	cp := *job
	r.jobs[job.ID] = &cp
	r.seq++
	r.order[job.ID] = r.seq
	return nil
}

func (r *memJobs) ClaimFailed(_ context.Context, jobID string, now time.Time) (*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.Status != entity.JobStatusFailed {
		return nil, domain.ErrConflict
	}
	if r.processingExists(j.InvoiceID, jobID) {
		return nil, domain.ErrSubmissionInProgress
	}
	j.Status = entity.JobStatusProcessing
	j.UpdatedAt = now
	cp := *j
	return &cp, nil
}

func (r *memJobs) SaveRequestPayload(_ context.Context, jobID string, payload json.RawMessage, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.Status != entity.JobStatusProcessing {
		return domain.ErrConflict
	}
	j.RequestPayload = append(json.RawMessage(nil), payload...)
	j.UpdatedAt = now
	return nil
}

func (r *memJobs) MarkFailed(_ context.Context, jobID, errMsg string, nextRetryAt, now time.Time) (*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.Status != entity.JobStatusProcessing {
		return nil, domain.ErrConflict
	}
	j.Status = entity.JobStatusFailed
	j.ErrorMessage = errMsg
	j.AttemptCount++
	next := nextRetryAt
	j.NextRetryAt = &next
	j.UpdatedAt = now
	cp := *j
	return &cp, nil
}

func (r *memJobs) MarkAcceptedNotPersisted(_ context.Context, jobID, errMsg string, pending json.RawMessage, now time.Time) (*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingErr != nil {
		return nil, r.pendingErr
	}
	j, ok := r.jobs[jobID]
	if !ok || (j.Status != entity.JobStatusProcessing && j.Status != entity.JobStatusFailed) {
		return nil, domain.ErrConflict
	}
	j.Status = entity.JobStatusFailed
	j.ErrorMessage = errMsg
	j.AttemptCount++
	j.ResponsePayload = pending
	j.NextRetryAt = nil
	j.UpdatedAt = now
	cp := *j
	return &cp, nil
}

func (r *memJobs) MarkAccepted(_ context.Context, jobID string, response json.RawMessage, processedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.Status != entity.JobStatusProcessing {
		return domain.ErrConflict
	}
	j.Status = entity.JobStatusAccepted
	j.ResponsePayload = response
	at := processedAt
	j.ProcessedAt = &at
	j.ErrorMessage = ""
	j.NextRetryAt = nil
	j.UpdatedAt = processedAt
	return nil
}

func (r *memJobs) GetByID(_ context.Context, id string) (*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *memJobs) sorted(filter func(*entity.SubmissionJob) bool) []*entity.SubmissionJob {
	var out []*entity.SubmissionJob
	for _, j := range r.jobs {
		if filter(j) {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return r.order[out[a].ID] > r.order[out[b].ID] })
	return out
}

func (r *memJobs) GetLatestByInvoice(_ context.Context, invoiceID string) (*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sorted(func(j *entity.SubmissionJob) bool { return j.InvoiceID == invoiceID })
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *memJobs) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(j *entity.SubmissionJob) bool { return j.InvoiceID == invoiceID }), nil
}

func (r *memJobs) ListDueRetries(_ context.Context, now time.Time, maxAttempts, limit int) ([]*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(j *entity.SubmissionJob) bool {
		return j.Status == entity.JobStatusFailed && j.NextRetryAt != nil && !j.NextRetryAt.After(now) && j.AttemptCount < maxAttempts
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobs) ListStaleProcessing(_ context.Context, before time.Time, limit int) ([]*entity.SubmissionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(j *entity.SubmissionJob) bool {
		return j.Status == entity.JobStatusProcessing && j.UpdatedAt.Before(before)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobs) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

type memEvents struct {
	mu     sync.Mutex
	events []*entity.AuditEvent
	err    error
}

func (r *memEvents) Append(_ context.Context, ev *entity.AuditEvent) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ev
	r.events = append(r.events, &cp)
	return nil
}

func (r *memEvents) ListByJob(_ context.Context, jobID string) ([]*entity.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AuditEvent
	for _, ev := range r.events {
		if ev.JobID == jobID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *memEvents) types(jobID string) []string {
	evs, _ := r.ListByJob(context.Background(), jobID)
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.EventType+"/"+ev.EventCode)
	}
	return out
}

// memTx ejecuta fn sobre los mismos repositorios en memoria.
type memTx struct {
	jobs     *memJobs
	invoices *memInvoices
}

// Ante error restaura los jobs como lo haría un rollback.
func (t *memTx) RunAcceptance(_ context.Context, fn func(repository.SubmissionJobRepository, repository.InvoiceRepository) error) error {
	t.jobs.mu.Lock()
	snapshot := make(map[string]entity.SubmissionJob, len(t.jobs.jobs))
	for id, j := range t.jobs.jobs {
		snapshot[id] = *j
	}
	t.jobs.mu.Unlock()

	err := fn(t.jobs, t.invoices)
	if err != nil {
		t.jobs.mu.Lock()
		for id, j := range snapshot {
			restored := j
			t.jobs.jobs[id] = &restored
		}
		t.jobs.mu.Unlock()
	}
	return err
}

// ── Proveedor ─────────────────────────────────────────────────────────────────

type fakeTokens struct {
	mu     sync.Mutex
	calls  int
	err    error
	onCall func()
}

func (f *fakeTokens) GetValidToken(_ context.Context, _ entity.Credentials) (string, error) {
	f.mu.Lock()
	f.calls++
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return "", f.err
	}
	return "tok", nil
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	docs    []domdian.FiscalDocumentV1
	ctxErrs []error
	results []submitResult // se consumen en orden; el último se repite
	block   chan struct{}  // si no es nil, Submit espera hasta que se cierre
	entered chan struct{}
}

type submitResult struct {
	res *domdian.SubmissionResult
	err error
}

func (f *fakeSubmitter) Submit(ctx context.Context, _, _ string, doc domdian.FiscalDocumentV1) (*domdian.SubmissionResult, error) {
	f.mu.Lock()
	f.calls++
	f.docs = append(f.docs, doc)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	var r submitResult
	if len(f.results) > 0 {
		r = f.results[0]
		if len(f.results) > 1 {
			f.results = f.results[1:]
		}
	}
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return r.res, r.err
}

func okResult() submitResult {
	return submitResult{res: &domdian.SubmissionResult{
		CUFE:           "cufe-123",
		QRPayload:      "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey=cufe-123",
		DocumentNumber: "SETP990000001",
		Message:        "Documento validado",
		Raw:            json.RawMessage(`{"status":"Created"}`),
	}}
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes []string
	sweeps   [][2]int
}

func (m *fakeMetrics) ObserveSubmission(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *fakeMetrics) ObserveRetrySweep(recovered, retried int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps = append(m.sweeps, [2]int{recovered, retried})
}

type fakeLocker struct {
	held     bool
	released int
	err      error
}

func (l *fakeLocker) TryLock(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.released++
		return nil
	}, true, nil
}

var errBoom = errors.New("boom")
