package dian

import (
	"context"
	"sync"
	"time"

	domdian "github.com/jhoicas/facturador-api/internal/domain/dian"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

// RefreshObserver recibe cada intento de renovación de token (métricas).
type RefreshObserver interface {
	ObserveTokenRefresh(environment string, err error)
}

// TokenCache guarda un token bearer por ambiente durante la vida del proceso.
// Se construye una vez en main y se inyecta por referencia.
//
// El lock solo cubre lecturas y escrituras del mapa: dos callers pueden renovar a la vez
// un token vencido (re-autenticar dos veces es inofensivo) y gana la última escritura.
type TokenCache struct {
	auth     Authenticator
	observer RefreshObserver
	now      func() time.Time

	mu     sync.RWMutex
	tokens map[string]entity.CachedToken
}

// NewTokenCache construye la caché. observer puede ser nil.
func NewTokenCache(auth Authenticator, observer RefreshObserver) *TokenCache {
	return &TokenCache{
		auth:     auth,
		observer: observer,
		now:      time.Now,
		tokens:   make(map[string]entity.CachedToken),
	}
}

// GetValidToken devuelve el token vigente del ambiente de creds, autenticando si no hay
// uno o si ya venció. Falla con *domdian.AuthError (domain.ErrAuthentication).
func (c *TokenCache) GetValidToken(ctx context.Context, creds entity.Credentials) (string, error) {
	if !creds.Configured() {
		return "", &domdian.AuthError{Environment: creds.Environment, Message: "credenciales no configuradas"}
	}
	env := creds.Environment

	c.mu.RLock()
	cached, ok := c.tokens[env]
	c.mu.RUnlock()
	if ok && cached.ValidAt(c.now()) {
		return cached.AccessToken, nil
	}

	token, expiresIn, err := c.auth.Authenticate(ctx, creds)
	if c.observer != nil {
		c.observer.ObserveTokenRefresh(env, err)
	}
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.tokens[env] = entity.CachedToken{AccessToken: token, ExpiresAt: c.now().Add(expiresIn)}
	c.mu.Unlock()
	return token, nil
}

// Cached devuelve el token guardado para el ambiente (vigente o no).
func (c *TokenCache) Cached(environment string) (entity.CachedToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tokens[environment]
	return t, ok
}
