package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/facturador-api/internal/domain"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

var _ repository.SubmissionJobRepository = (*SubmissionJobRepo)(nil)

// SubmissionJobRepo implementa SubmissionJobRepository. La exclusividad por factura la da el
// índice único parcial ux_submission_jobs_processing.
type SubmissionJobRepo struct {
	db Querier
}

// NewSubmissionJobRepository construye el repositorio (pool o tx).
func NewSubmissionJobRepository(db Querier) *SubmissionJobRepo {
	return &SubmissionJobRepo{db: db}
}

const jobColumns = `
	id, invoice_id, company_id, status, request_payload, response_payload, error_message,
	attempt_count, next_retry_at, processed_at, created_at, updated_at`

func (r *SubmissionJobRepo) CreateProcessing(ctx context.Context, job *entity.SubmissionJob) error {
	payload := job.RequestPayload
	if len(payload) == 0 {
		payload = entity.EmptyPayload
	}
	const q = `
		INSERT INTO submission_jobs
			(id, invoice_id, company_id, status, request_payload, error_message, attempt_count, created_at, updated_at)
		VALUES ($1, $2, $3, 'processing', $4, '', $5, $6, $7)`
	_, err := r.db.Exec(ctx, q,
		job.ID, job.InvoiceID, job.CompanyID, []byte(payload), job.AttemptCount, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSubmissionInProgress
		}
		return fmt.Errorf("insert submission_job: %w", err)
	}
	job.Status = entity.JobStatusProcessing
	return nil
}

func (r *SubmissionJobRepo) ClaimFailed(ctx context.Context, jobID string, now time.Time) (*entity.SubmissionJob, error) {
	q := `
		UPDATE submission_jobs SET status = 'processing', updated_at = $2
		WHERE id = $1 AND status = 'failed'
		RETURNING` + jobColumns
	job, err := scanJob(r.db.QueryRow(ctx, q, jobID, now))
	switch {
	case err == nil:
		return job, nil
	case isNoRows(err):
		return nil, domain.ErrConflict
	case isUniqueViolation(err):
		return nil, domain.ErrSubmissionInProgress
	default:
		return nil, fmt.Errorf("claim submission_job: %w", err)
	}
}

func (r *SubmissionJobRepo) SaveRequestPayload(ctx context.Context, jobID string, payload json.RawMessage, now time.Time) error {
	const q = `
		UPDATE submission_jobs SET request_payload = $2, updated_at = $3
		WHERE id = $1 AND status = 'processing'`
	tag, err := r.db.Exec(ctx, q, jobID, []byte(payload), now)
	if err != nil {
		return fmt.Errorf("save request_payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *SubmissionJobRepo) MarkFailed(ctx context.Context, jobID, errMsg string, nextRetryAt, now time.Time) (*entity.SubmissionJob, error) {
	q := `
		UPDATE submission_jobs
		SET status = 'failed', error_message = $2, attempt_count = attempt_count + 1,
		    next_retry_at = $3, updated_at = $4
		WHERE id = $1 AND status = 'processing'
		RETURNING` + jobColumns
	job, err := scanJob(r.db.QueryRow(ctx, q, jobID, errMsg, nextRetryAt, now))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("mark submission_job failed: %w", err)
	}
	return job, nil
}

func (r *SubmissionJobRepo) MarkAcceptedNotPersisted(ctx context.Context, jobID, errMsg string, pending json.RawMessage, now time.Time) (*entity.SubmissionJob, error) {
	q := `
		UPDATE submission_jobs
		SET status = 'failed', error_message = $2, attempt_count = attempt_count + 1,
		    response_payload = $3, next_retry_at = NULL, updated_at = $4
		WHERE id = $1 AND status IN ('processing', 'failed')
		RETURNING` + jobColumns
	job, err := scanJob(r.db.QueryRow(ctx, q, jobID, errMsg, []byte(pending), now))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("mark submission_job accepted-not-persisted: %w", err)
	}
	return job, nil
}

func (r *SubmissionJobRepo) MarkAccepted(ctx context.Context, jobID string, response json.RawMessage, processedAt time.Time) error {
	const q = `
		UPDATE submission_jobs
		SET status = 'accepted', response_payload = $2, processed_at = $3,
		    error_message = '', next_retry_at = NULL, updated_at = $3
		WHERE id = $1 AND status = 'processing'`
	tag, err := r.db.Exec(ctx, q, jobID, []byte(response), processedAt)
	if err != nil {
		return fmt.Errorf("mark submission_job accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *SubmissionJobRepo) GetByID(ctx context.Context, id string) (*entity.SubmissionJob, error) {
	job, err := scanJob(r.db.QueryRow(ctx, `SELECT`+jobColumns+` FROM submission_jobs WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission_job: %w", err)
	}
	return job, nil
}

func (r *SubmissionJobRepo) GetLatestByInvoice(ctx context.Context, invoiceID string) (*entity.SubmissionJob, error) {
	q := `SELECT` + jobColumns + `
		FROM submission_jobs WHERE invoice_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`
	job, err := scanJob(r.db.QueryRow(ctx, q, invoiceID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest submission_job: %w", err)
	}
	return job, nil
}

func (r *SubmissionJobRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.SubmissionJob, error) {
	q := `SELECT` + jobColumns + `
		FROM submission_jobs WHERE invoice_id = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, invoiceID)
}

func (r *SubmissionJobRepo) ListDueRetries(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*entity.SubmissionJob, error) {
	q := `SELECT` + jobColumns + `
		FROM submission_jobs
		WHERE status = 'failed' AND next_retry_at <= $1 AND attempt_count < $2
		ORDER BY next_retry_at
		LIMIT $3`
	return r.list(ctx, q, now, maxAttempts, limit)
}

func (r *SubmissionJobRepo) ListStaleProcessing(ctx context.Context, before time.Time, limit int) ([]*entity.SubmissionJob, error) {
	q := `SELECT` + jobColumns + `
		FROM submission_jobs
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`
	return r.list(ctx, q, before, limit)
}

func (r *SubmissionJobRepo) list(ctx context.Context, q string, args ...any) ([]*entity.SubmissionJob, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submission_jobs: %w", err)
	}
	defer rows.Close()

	var out []*entity.SubmissionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission_job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(row scanner) (*entity.SubmissionJob, error) {
	var (
		j                 entity.SubmissionJob
		request, response []byte
	)
	err := row.Scan(
		&j.ID, &j.InvoiceID, &j.CompanyID, &j.Status, &request, &response, &j.ErrorMessage,
		&j.AttemptCount, &j.NextRetryAt, &j.ProcessedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.RequestPayload = json.RawMessage(request)
	if response != nil {
		j.ResponsePayload = json.RawMessage(response)
	}
	return &j, nil
}
