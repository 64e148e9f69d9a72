package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims represents the typed JWT minted by the external identity
// provider. The uid is the provider's stable subject for the account; the
// profile fields are the snapshot taken at sign-in.
type IdentityClaims struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}
