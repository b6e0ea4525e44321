package repository

import (
	"context"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// CustomerRepository define el puerto de lectura de Customer (facturación).
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}

// MunicipalityResolver traduce un código DANE al id numérico de municipio del proveedor fiscal.
// Devuelve ok=false si el código no está registrado.
type MunicipalityResolver interface {
	ResolveMunicipalityID(ctx context.Context, daneCode string) (id int, ok bool, err error)
}
