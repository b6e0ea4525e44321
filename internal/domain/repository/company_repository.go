package repository

import (
	"context"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// CompanyRepository define el puerto de lectura de Company y sus sedes (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetBranchByID(ctx context.Context, id string) (*entity.Branch, error)
}
