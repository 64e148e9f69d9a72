package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsparkhq/adspark-backend/api/controllers"
	webhookcontrollers "github.com/adsparkhq/adspark-backend/api/controllers/webhooks"
	"github.com/adsparkhq/adspark-backend/api/middleware"
	"github.com/adsparkhq/adspark-backend/internal/billing"
	"github.com/adsparkhq/adspark-backend/internal/community"
	"github.com/adsparkhq/adspark-backend/internal/credits"
	"github.com/adsparkhq/adspark-backend/internal/generation"
	"github.com/adsparkhq/adspark-backend/internal/users"
	"github.com/adsparkhq/adspark-backend/pkg/config"
	"github.com/adsparkhq/adspark-backend/pkg/db"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/redis"
	"github.com/adsparkhq/adspark-backend/pkg/stripe"
)

// Deps carries everything the router wires into handlers. Optional fields
// (metrics, webhook stack, readiness probes) may be nil and their routes
// degrade accordingly.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Redis   *redis.Client
	Metrics http.Handler

	DBPinger       db.Pinger
	RedisPinger    db.Pinger
	PubSubPinger   db.Pinger
	BigQueryPinger db.Pinger

	Users      users.Service
	Credits    credits.Service
	Generation *generation.Service
	Community  *community.Service
	Billing    *billing.Service

	StripeClient *stripe.Client
	StripeGuard  *billing.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger, deps.PubSubPinger, deps.BigQueryPinger))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", stripeWebhookHandler(deps, logg))
	})

	// The feed is readable without credentials.
	r.Get("/api/v1/community/posts", controllers.CommunityPosts(deps.Community, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Identity, deps.Users, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/me", controllers.Me(deps.Credits, logg))
		r.Get("/me/credits", controllers.MyCredits(deps.Credits, logg))

		r.Route("/ads", func(r chi.Router) {
			r.Get("/", controllers.ListAds(deps.Community, logg))
			r.Get("/{adId}", controllers.GetAd(deps.Community, logg))
			r.Post("/generate-image", controllers.GenerateImage(deps.Generation, logg))
			r.Post("/generate-video", controllers.GenerateVideo(deps.Generation, logg))
		})

		r.Post("/community/posts/{postId}/like", controllers.LikePost(deps.Community, logg))

		r.Get("/billing/plans", controllers.BillingPlans(deps.Billing, logg))
	})

	return r
}

// stripeWebhookHandler passes untyped nils for an unconfigured webhook stack
// so the controller's nil checks fire instead of a nil-receiver call.
func stripeWebhookHandler(deps Deps, logg *logger.Logger) http.HandlerFunc {
	if deps.Billing == nil || deps.StripeClient == nil || deps.StripeGuard == nil {
		return webhookcontrollers.StripeWebhook(nil, nil, nil, logg)
	}
	return webhookcontrollers.StripeWebhook(deps.Billing, deps.StripeClient, deps.StripeGuard, logg)
}
