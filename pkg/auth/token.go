package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/adsparkhq/adspark-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ParseIdentityToken validates a provider-issued JWT and returns typed claims.
// Tokens with a missing uid or email are rejected even when the signature
// verifies, since every downstream operation keys on those fields.
func ParseIdentityToken(cfg config.IdentityConfig, tokenString string) (*IdentityClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("identity jwt secret is required")
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(claims.UID) == "" {
		return nil, fmt.Errorf("identity token missing uid claim")
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, fmt.Errorf("identity token missing email claim")
	}

	return claims, nil
}

// MintIdentityToken issues a signed JWT in the provider's format. Production
// tokens come from the provider; this exists for local development and tests.
func MintIdentityToken(cfg config.IdentityConfig, now time.Time, ttl time.Duration, claims IdentityClaims) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("identity jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("identity issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}
	if strings.TrimSpace(claims.UID) == "" {
		return "", fmt.Errorf("uid is required")
	}
	if strings.TrimSpace(claims.Email) == "" {
		return "", fmt.Errorf("email is required")
	}

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   claims.UID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
