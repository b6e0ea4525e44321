package entity

import "time"

// Ambientes del proveedor fiscal.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// Credentials credenciales del proveedor fiscal (OAuth2 password grant).
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Environment  string
}

// Configured indica si están todas las credenciales necesarias para autenticarse.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// CachedToken token bearer vigente para un ambiente. Solo vive en memoria.
type CachedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ValidAt indica si el token sigue vigente en el instante now (expiración estrictamente futura).
func (t CachedToken) ValidAt(now time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now)
}
