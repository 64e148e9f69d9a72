package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/adsparkhq/adspark-backend/internal/users"
	pkgauth "github.com/adsparkhq/adspark-backend/pkg/auth"
	"github.com/adsparkhq/adspark-backend/pkg/config"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type stubUsersService struct {
	user       *models.User
	identities []users.Identity
}

func (s *stubUsersService) EnsureUser(ctx context.Context, identity users.Identity) (*models.User, error) {
	s.identities = append(s.identities, identity)
	return s.user, nil
}

func identityConfig() config.IdentityConfig {
	return config.IdentityConfig{JWTSecret: "test-secret", Issuer: "adspark-identity"}
}

func mintToken(t *testing.T, cfg config.IdentityConfig) string {
	t.Helper()
	token, err := pkgauth.MintIdentityToken(cfg, time.Now(), time.Hour, pkgauth.IdentityClaims{
		UID:   "uid-123",
		Email: "maker@example.com",
		Name:  "Maker",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsUserContext(t *testing.T) {
	cfg := identityConfig()
	svc := &stubUsersService{user: &models.User{ID: uuid.New(), Email: "maker@example.com"}}
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})

	var seen *models.User
	handler := Auth(cfg, svc, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if seen == nil || seen.Email != "maker@example.com" {
		t.Fatalf("user not seeded: %+v", seen)
	}
	if len(svc.identities) != 1 || svc.identities[0].UID != "uid-123" {
		t.Fatalf("identity not forwarded: %+v", svc.identities)
	}
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	cfg := identityConfig()
	svc := &stubUsersService{user: &models.User{ID: uuid.New()}}
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})
	handler := Auth(cfg, svc, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d", rec.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	cfg := identityConfig()
	other := config.IdentityConfig{JWTSecret: "other-secret", Issuer: cfg.Issuer}
	svc := &stubUsersService{user: &models.User{ID: uuid.New()}}
	handler := Auth(cfg, svc, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, other))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret status = %d", rec.Code)
	}
}
