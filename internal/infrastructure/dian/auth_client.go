package dian

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domdian "github.com/jhoicas/facturador-api/internal/domain/dian"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// Authenticator intercambia credenciales por un token bearer y su vigencia.
type Authenticator interface {
	Authenticate(ctx context.Context, creds entity.Credentials) (accessToken string, expiresIn time.Duration, err error)
}

// AuthClient implementa Authenticator con el grant OAuth2 "password" del proveedor.
type AuthClient struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewAuthClient construye el cliente de autenticación.
func NewAuthClient(cfg ClientConfig) *AuthClient {
	return &AuthClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.timeout()},
	}
}

// Authenticate llama POST /oauth/token. Cualquier fallo es un *domdian.AuthError.
func (c *AuthClient) Authenticate(ctx context.Context, creds entity.Credentials) (string, time.Duration, error) {
	authErr := func(status int, msg string) error {
		return &domdian.AuthError{Environment: creds.Environment, StatusCode: status, Message: msg}
	}
	if !creds.Configured() {
		return "", 0, authErr(0, "credenciales incompletas")
	}
	base, err := c.cfg.baseURL(creds.Environment)
	if err != nil {
		return "", 0, authErr(0, err.Error())
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+pathToken, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, authErr(0, "crear request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, authErr(0, "llamada HTTP fallida: "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, authErr(resp.StatusCode, "leer respuesta: "+err.Error())
	}

	var body tokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", 0, authErr(resp.StatusCode, fmt.Sprintf("respuesta no JSON: %s", truncate(string(raw), 200)))
	}
	if resp.StatusCode != http.StatusOK || body.AccessToken == "" {
		msg := firstNonEmpty(body.ErrorDesc, body.Message, body.Error, "token vacío")
		return "", 0, authErr(resp.StatusCode, msg)
	}
	return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
