// Package dian implementa el cliente HTTP del proveedor de facturación electrónica
// que valida documentos ante la DIAN (Colombia): autenticación OAuth2, caché de token
// y envío del documento JSON.
package dian

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	baseURLSandbox    = "https://api-sandbox.factus.com.co"
	baseURLProduction = "https://api.factus.com.co"

	pathToken    = "/oauth/token"
	pathValidate = "/v1/bills/validate"

	// maxResponseBytes límite de lectura de respuestas del proveedor (1 MB).
	maxResponseBytes = 1 << 20
)

// ClientConfig configuración común de los clientes HTTP del proveedor.
type ClientConfig struct {
	// BaseURL reemplaza la URL por ambiente (útil en pruebas). Vacío = URL oficial.
	BaseURL string
	// Timeout máximo por llamada.
	Timeout time.Duration
	// RatePerSecond ritmo máximo de envíos; 0 = sin límite.
	RatePerSecond float64
	Burst         int
}

func (c ClientConfig) baseURL(environment string) (string, error) {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/"), nil
	}
	switch environment {
	case entity.EnvironmentProduction:
		return baseURLProduction, nil
	case entity.EnvironmentSandbox, "":
		return baseURLSandbox, nil
	default:
		return "", fmt.Errorf("ambiente desconocido %q (usar sandbox|production)", environment)
	}
}

func (c ClientConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

// tokenResponse respuesta de POST /oauth/token.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
	Message      string `json:"message"`
}

// validateResponseV1 respuesta de POST /v1/bills/validate.
type validateResponseV1 struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Bill struct {
			Number string `json:"number"`
			CUFE   string `json:"cufe"`
			QR     string `json:"qr"`
		} `json:"bill"`
		Errors map[string]json.RawMessage `json:"errors"`
	} `json:"data"`
}

// rejectionMessage compone el mensaje de rechazo: message + errores por campo ordenados.
func (r *validateResponseV1) rejectionMessage() string {
	parts := make([]string, 0, len(r.Data.Errors)+1)
	if r.Message != "" {
		parts = append(parts, r.Message)
	}
	keys := make([]string, 0, len(r.Data.Errors))
	for k := range r.Data.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+flattenErrorValue(r.Data.Errors[k]))
	}
	return strings.Join(parts, "; ")
}

// flattenErrorValue acepta "msg" o ["msg1","msg2"].
func flattenErrorValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return string(raw)
}
