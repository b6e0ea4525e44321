package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles con acceso a la API de facturación.
const (
	RoleAdmin    = "admin"
	RoleBilling  = "facturador"
	RoleReadOnly = "consulta"
)

// ErrInvalidToken token mal formado, vencido, con firma incorrecta o de otro emisor.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Claims incluye los claims estándar JWT más la empresa (tenant) y el rol del usuario.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// CanSubmit indica si el rol puede disparar envíos fiscales.
func (c *Claims) CanSubmit() bool {
	return c.Role == RoleAdmin || c.Role == RoleBilling
}

// Generate firma un token HS256 para userID/companyID/role con vigencia ttl.
func Generate(secret, issuer, userID, companyID, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma, vencimiento y emisor (si issuer no es vacío) y devuelve los claims.
func Parse(secret, issuer, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.CompanyID == "" {
		return nil, fmt.Errorf("%w: claims incompletos", ErrInvalidToken)
	}
	return claims, nil
}
