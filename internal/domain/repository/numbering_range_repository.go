package repository

import (
	"context"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// NumberingRangeRepository define el puerto de persistencia para rangos de numeración DIAN.
type NumberingRangeRepository interface {
	// GetActive devuelve el rango activo y vigente para la empresa y tipo de documento.
	// Es la precondición crítica del envío: devuelve nil, nil si no existe.
	GetActive(ctx context.Context, companyID, documentType string) (*entity.NumberingRange, error)
}
