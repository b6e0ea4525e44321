package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	db Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas y sedes.
func NewCompanyRepository(db Querier) *CompanyRepo {
	return &CompanyRepo{db: db}
}

// GetByID obtiene una empresa por ID. nil, nil si no existe.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	const q = `
		SELECT id, name, nit, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''),
		       status, created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	err := r.db.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.Name, &c.NIT, &c.Address, &c.Phone, &c.Email, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// GetBranchByID obtiene una sede por ID. nil, nil si no existe.
func (r *CompanyRepo) GetBranchByID(ctx context.Context, id string) (*entity.Branch, error) {
	const q = `
		SELECT id, company_id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''),
		       created_at, updated_at
		FROM branches WHERE id = $1`
	var b entity.Branch
	err := r.db.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.CompanyID, &b.Name, &b.Address, &b.Phone, &b.Email, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}
