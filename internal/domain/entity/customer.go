package entity

import "time"

// Customer representa un cliente de la empresa (adquiriente en la factura).
type Customer struct {
	ID                   string
	CompanyID            string
	IdentificationType   string // CC, NIT, CE, PA, TI... (ver pkg/dian)
	IdentificationNumber string
	FirstName            string
	LastName             string
	CompanyName          string // razón social (personas jurídicas)
	TradeName            string
	Address              string
	Email                string
	Phone                string
	MunicipalityCode     string // código DANE; vacío = sin municipio fiscal registrado
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
