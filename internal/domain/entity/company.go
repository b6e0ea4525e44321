package entity

import "time"

// Company representa una organización/tenant del sistema (multi-tenant, enfoque Colombia).
type Company struct {
	ID        string
	Name      string
	NIT       string // NIT colombiano (con o sin dígito de verificación)
	Address   string
	Phone     string
	Email     string
	Status    string // active, suspended, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Branch es una sede de la empresa. Sus datos de contacto reemplazan los de la
// empresa en el documento fiscal cuando no están vacíos.
type Branch struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
