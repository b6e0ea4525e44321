package entity

import "time"

// NumberingRange representa un rango de numeración autorizado por la DIAN
// (resolución de facturación) para una empresa y un tipo de documento.
// Solo uno puede estar activo por (empresa, tipo de documento).
type NumberingRange struct {
	ID               string
	CompanyID        string
	ExternalID       int64  // id del rango en el proveedor fiscal (numbering_range_id)
	DocumentType     string // ver DocumentType*
	Prefix           string // prefijo autorizado (ej: "SETP", "FE")
	ResolutionNumber string
	RangeFrom        int64
	RangeTo          int64
	DateFrom         time.Time
	DateTo           time.Time
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
