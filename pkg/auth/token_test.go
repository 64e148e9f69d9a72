package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/adsparkhq/adspark-backend/pkg/config"
)

func TestMintAndParseIdentityToken(t *testing.T) {
	cfg := config.IdentityConfig{
		JWTSecret: "secret",
		Issuer:    "adspark-identity",
	}
	now := time.Now().UTC()

	token, err := MintIdentityToken(cfg, now, 30*time.Minute, IdentityClaims{
		UID:     "uid-123",
		Email:   "creator@example.com",
		Name:    "Creator",
		Picture: "https://cdn.example.com/p.png",
	})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}

	claims, err := ParseIdentityToken(cfg, token)
	if err != nil {
		t.Fatalf("parse identity token: %v", err)
	}

	if claims.UID != "uid-123" {
		t.Fatalf("expected uid uid-123, got %s", claims.UID)
	}
	if claims.Email != "creator@example.com" {
		t.Fatalf("unexpected email %s", claims.Email)
	}
	if claims.Name != "Creator" {
		t.Fatalf("unexpected name %s", claims.Name)
	}
	if claims.Picture != "https://cdn.example.com/p.png" {
		t.Fatalf("unexpected picture %s", claims.Picture)
	}

	// RegisteredClaims is embedded, so access fields directly.
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseIdentityTokenInvalidSignature(t *testing.T) {
	cfg := config.IdentityConfig{
		JWTSecret: "secret",
		Issuer:    "adspark-identity",
	}
	token, err := MintIdentityToken(cfg, time.Now(), 10*time.Minute, IdentityClaims{
		UID:   "uid-1",
		Email: "a@example.com",
	})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}

	if _, err := ParseIdentityToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseIdentityTokenExpired(t *testing.T) {
	cfg := config.IdentityConfig{
		JWTSecret: "secret",
		Issuer:    "adspark-identity",
	}
	token, err := MintIdentityToken(cfg, time.Now().Add(-time.Hour), 15*time.Minute, IdentityClaims{
		UID:   "uid-1",
		Email: "a@example.com",
	})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}

	_, err = ParseIdentityToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseIdentityTokenWrongIssuer(t *testing.T) {
	mintCfg := config.IdentityConfig{
		JWTSecret: "secret",
		Issuer:    "someone-else",
	}
	token, err := MintIdentityToken(mintCfg, time.Now(), 10*time.Minute, IdentityClaims{
		UID:   "uid-1",
		Email: "a@example.com",
	})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}

	parseCfg := config.IdentityConfig{
		JWTSecret: "secret",
		Issuer:    "adspark-identity",
	}
	if _, err := ParseIdentityToken(parseCfg, token); err == nil {
		t.Fatal("expected issuer validation error")
	}
}

func TestParseIdentityTokenMissingClaims(t *testing.T) {
	cfg := config.IdentityConfig{
		JWTSecret: "secret",
		Issuer:    "adspark-identity",
	}
	if _, err := MintIdentityToken(cfg, time.Now(), time.Minute, IdentityClaims{Email: "a@example.com"}); err == nil {
		t.Fatal("expected missing uid error")
	}
	if _, err := MintIdentityToken(cfg, time.Now(), time.Minute, IdentityClaims{UID: "uid-1"}); err == nil {
		t.Fatal("expected missing email error")
	}
}
