package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

var (
	_ repository.CustomerRepository   = (*CustomerRepo)(nil)
	_ repository.MunicipalityResolver = (*MunicipalityRepo)(nil)
)

// CustomerRepo implementa repository.CustomerRepository.
type CustomerRepo struct {
	db Querier
}

// NewCustomerRepository construye el repositorio.
func NewCustomerRepository(db Querier) *CustomerRepo {
	return &CustomerRepo{db: db}
}

// GetByID obtiene un cliente. nil, nil si no existe.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	const q = `
		SELECT id, company_id, identification_type, identification_number,
		       COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(company_name, ''),
		       COALESCE(trade_name, ''), COALESCE(address, ''), COALESCE(email, ''),
		       COALESCE(phone, ''), COALESCE(municipality_code, ''), created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.db.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.CompanyID, &c.IdentificationType, &c.IdentificationNumber,
		&c.FirstName, &c.LastName, &c.CompanyName, &c.TradeName, &c.Address, &c.Email,
		&c.Phone, &c.MunicipalityCode, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// MunicipalityRepo resuelve códigos DANE contra la tabla municipalities.
type MunicipalityRepo struct {
	db Querier
}

// NewMunicipalityRepository construye el resolvedor.
func NewMunicipalityRepository(db Querier) *MunicipalityRepo {
	return &MunicipalityRepo{db: db}
}

// ResolveMunicipalityID devuelve ok=false si el código no está registrado.
func (r *MunicipalityRepo) ResolveMunicipalityID(ctx context.Context, daneCode string) (int, bool, error) {
	var id int
	err := r.db.QueryRow(ctx, `SELECT provider_id FROM municipalities WHERE dane_code = $1`, daneCode).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolve municipality %s: %w", daneCode, err)
	}
	return id, true, nil
}
