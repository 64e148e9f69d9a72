package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/adsparkhq/adspark-backend/api/responses"
	"github.com/adsparkhq/adspark-backend/pkg/config"
	"github.com/adsparkhq/adspark-backend/pkg/db"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AdSpark-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes each wired dependency in order. Nil dependencies are
// skipped so single-purpose deployments stay ready without the full stack.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, pubsubP, bigqueryP db.Pinger) http.HandlerFunc {
	type check struct {
		name string
		dep  db.Pinger
	}
	checks := []check{
		{"database", dbP},
		{"redis", redisP},
		{"pubsub", pubsubP},
		{"bigquery", bigqueryP},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AdSpark-Env", cfg.App.Env)

		statuses := map[string]string{}
		for _, c := range checks {
			if c.dep == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			err := c.dep.Ping(ctx)
			cancel()
			if err != nil {
				statuses[c.name] = "unavailable"
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, c.name+" unavailable").
					WithDetails(map[string]any{"checks": statuses})
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
			statuses[c.name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": statuses})
	}
}
