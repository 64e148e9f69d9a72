package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adsparkhq/adspark-backend/internal/users"
	"github.com/adsparkhq/adspark-backend/pkg/config"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type stubUsers struct{}

func (stubUsers) EnsureUser(ctx context.Context, identity users.Identity) (*models.User, error) {
	return &models.User{}, nil
}

func testDeps() Deps {
	return Deps{
		Config: &config.Config{
			App:      config.AppConfig{Env: "test", Port: "8080"},
			Identity: config.IdentityConfig{JWTSecret: "secret", Issuer: "adspark-identity"},
		},
		Logger: logger.New(logger.Options{ServiceName: "routes-test"}),
		Users:  stubUsers{},
	}
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-AdSpark-Env") != "test" {
		t.Fatal("env header missing")
	}
}

func TestRouterProtectsAuthedRoutes(t *testing.T) {
	router := NewRouter(testDeps())

	for _, path := range []string{"/api/v1/me", "/api/v1/ads", "/api/v1/billing/plans"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, rec.Code)
		}
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
