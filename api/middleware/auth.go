package middleware

import (
	"net/http"
	"strings"

	"github.com/adsparkhq/adspark-backend/api/responses"
	"github.com/adsparkhq/adspark-backend/internal/users"
	pkgauth "github.com/adsparkhq/adspark-backend/pkg/auth"
	"github.com/adsparkhq/adspark-backend/pkg/config"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

// Auth verifies the provider-issued bearer token and resolves it to a local
// user row. Identity comes exclusively from the verified claims; nothing in
// the request body or query names the caller.
func Auth(cfg config.IdentityConfig, usersSvc users.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseIdentityToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			user, err := usersSvc.EnsureUser(r.Context(), users.Identity{
				UID:     claims.UID,
				Email:   claims.Email,
				Name:    claims.Name,
				Picture: claims.Picture,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user"))
				return
			}

			ctx := WithUser(r.Context(), user)
			if logg != nil {
				ctx = logg.WithUserID(ctx, user.ID.String())
				ctx = logg.WithField(ctx, "user_email", user.Email)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
