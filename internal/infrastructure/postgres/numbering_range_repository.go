package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

var _ repository.NumberingRangeRepository = (*NumberingRangeRepo)(nil)

// NumberingRangeRepo implementa NumberingRangeRepository sobre PostgreSQL.
type NumberingRangeRepo struct {
	db Querier
}

// NewNumberingRangeRepository construye el repositorio.
func NewNumberingRangeRepository(db Querier) *NumberingRangeRepo {
	return &NumberingRangeRepo{db: db}
}

const numberingRangeColumns = `
	id, company_id, external_id, document_type, prefix, resolution_number,
	range_from, range_to, date_from, date_to, is_active, created_at, updated_at`

// GetActive es la precondición del envío fiscal.
// Devuelve nil, nil si no hay rango activo y vigente para el tipo de documento.
func (r *NumberingRangeRepo) GetActive(ctx context.Context, companyID, documentType string) (*entity.NumberingRange, error) {
	q := `SELECT` + numberingRangeColumns + `
		FROM numbering_ranges
		WHERE company_id    = $1
		  AND document_type = $2
		  AND is_active     = true
		  AND date_from    <= CURRENT_DATE
		  AND date_to      >= CURRENT_DATE
		ORDER BY date_from DESC
		LIMIT 1`
	rng, err := scanNumberingRange(r.db.QueryRow(ctx, q, companyID, documentType))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active numbering_range: %w", err)
	}
	return rng, nil
}

func scanNumberingRange(row scanner) (*entity.NumberingRange, error) {
	var n entity.NumberingRange
	err := row.Scan(
		&n.ID, &n.CompanyID, &n.ExternalID, &n.DocumentType, &n.Prefix, &n.ResolutionNumber,
		&n.RangeFrom, &n.RangeTo, &n.DateFrom, &n.DateTo, &n.IsActive, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
