package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturador-api/internal/application/billing"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

var _ billing.SubmissionTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunAcceptance inicia una transacción, ejecuta fn con repos de jobs y facturas atados a la
// tx y hace Commit o Rollback.
func (r *TxRunner) RunAcceptance(ctx context.Context, fn func(
	jobRepo repository.SubmissionJobRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewSubmissionJobRepository(tx), NewInvoiceRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
