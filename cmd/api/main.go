package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adsparkhq/adspark-backend/api/routes"
	"github.com/adsparkhq/adspark-backend/internal/ads"
	"github.com/adsparkhq/adspark-backend/internal/analytics"
	"github.com/adsparkhq/adspark-backend/internal/billing"
	"github.com/adsparkhq/adspark-backend/internal/cleanup"
	"github.com/adsparkhq/adspark-backend/internal/community"
	"github.com/adsparkhq/adspark-backend/internal/credits"
	"github.com/adsparkhq/adspark-backend/internal/generation"
	"github.com/adsparkhq/adspark-backend/internal/users"
	"github.com/adsparkhq/adspark-backend/pkg/bigquery"
	"github.com/adsparkhq/adspark-backend/pkg/config"
	"github.com/adsparkhq/adspark-backend/pkg/db"
	"github.com/adsparkhq/adspark-backend/pkg/imagekit"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/metrics"
	"github.com/adsparkhq/adspark-backend/pkg/migrate"
	"github.com/adsparkhq/adspark-backend/pkg/openai"
	"github.com/adsparkhq/adspark-backend/pkg/pubsub"
	"github.com/adsparkhq/adspark-backend/pkg/redis"
	"github.com/adsparkhq/adspark-backend/pkg/replicate"
	"github.com/adsparkhq/adspark-backend/pkg/stripe"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	usersRepo := users.NewRepository(dbClient.DB())
	creditsRepo := credits.NewRepository(dbClient.DB())
	adsRepo := ads.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())

	usersSvc, err := users.NewService(dbClient, usersRepo, creditsRepo, cfg.Credits.SignupGrant)
	requireResource(ctx, logg, "users service", err)

	creditsSvc, err := credits.NewService(dbClient, creditsRepo)
	requireResource(ctx, logg, "credits service", err)

	communitySvc, err := community.NewService(adsRepo, logg)
	requireResource(ctx, logg, "community service", err)

	promptClient, err := openai.NewClient(cfg.Prompt)
	requireResource(ctx, logg, "prompt client", err)

	synthClient, err := replicate.NewClient(cfg.Replicate)
	requireResource(ctx, logg, "synthesis client", err)

	storageClient, err := imagekit.NewClient(cfg.ImageKit)
	requireResource(ctx, logg, "storage client", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	generationMetrics := metrics.NewGenerationMetrics(registry)

	generationOpts := []generation.Option{
		generation.WithMetrics(generationMetrics),
	}

	// Pub/Sub and BigQuery are optional; without them the pipelines skip
	// cleanup events and analytics rather than failing requests.
	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer pubsubClient.Close()

		cleanupPublisher, pubErr := cleanup.NewPublisher(pubsubClient.CleanupPublisher(), logg)
		requireResource(ctx, logg, "cleanup publisher", pubErr)
		generationOpts = append(generationOpts, generation.WithCleanupQueue(cleanupPublisher))
	} else {
		logg.Warn(ctx, "gcp project not configured, asset cleanup events disabled")
	}

	var bigqueryClient *bigquery.Client
	var analyticsRecorder *analytics.Recorder
	if cfg.GCP.ProjectID != "" && cfg.BigQuery.Dataset != "" {
		bigqueryClient, err = bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		defer bigqueryClient.Close()

		writer, writerErr := analytics.NewWriter(bigqueryClient, analytics.Config{
			GenerationEventsTable: cfg.BigQuery.GenerationEventsTable,
		})
		requireResource(ctx, logg, "analytics writer", writerErr)
		analyticsRecorder = analytics.NewRecorder(writer, logg)
		generationOpts = append(generationOpts, generation.WithAnalytics(analyticsRecorder))
	} else {
		logg.Warn(ctx, "bigquery not configured, generation analytics disabled")
	}

	generationSvc, err := generation.NewService(generation.Config{
		ImageModel:  cfg.Replicate.ImageModel,
		VideoModel:  cfg.Replicate.VideoModel,
		ImageFolder: cfg.ImageKit.ImageFolder,
		VideoFolder: cfg.ImageKit.VideoFolder,
		ImageCost:   cfg.Credits.ImageCost,
		AvatarCost:  cfg.Credits.AvatarImageCost,
		VideoCost:   cfg.Credits.VideoCost,
	}, adsRepo, creditsSvc, promptClient, synthClient, storageClient, logg, generationOpts...)
	requireResource(ctx, logg, "generation service", err)

	billingSvc, err := billing.NewService(billingRepo, creditsSvc, usersRepo, logg,
		billing.WithMetrics(generationMetrics),
		billing.WithAnalytics(analyticsRecorder),
	)
	requireResource(ctx, logg, "billing service", err)

	// The webhook stack is optional so local stacks without Stripe keys
	// still boot; the webhook route then rejects deliveries.
	var stripeClient *stripe.Client
	var stripeGuard *billing.IdempotencyGuard
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		requireResource(ctx, logg, "stripe", err)

		stripeGuard, err = billing.NewIdempotencyGuard(redisClient, billing.WebhookDedupeTTL, "stripe-webhook")
		requireResource(ctx, logg, "stripe webhook guard", err)
	} else {
		logg.Warn(ctx, "stripe not configured, checkout fulfillment disabled")
	}

	deps := routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		DBPinger:       dbClient,
		RedisPinger:    redisClient,
		PubSubPinger:   pinger(pubsubClient),
		BigQueryPinger: pinger(bigqueryClient),
		Users:          usersSvc,
		Credits:        creditsSvc,
		Generation:     generationSvc,
		Community:      communitySvc,
		Billing:        billingSvc,
		StripeClient:   stripeClient,
		StripeGuard:    stripeGuard,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

type contextPinger interface {
	Ping(ctx context.Context) error
}

// pinger keeps a nil concrete client from becoming a non-nil interface.
func pinger[T contextPinger](client T) db.Pinger {
	var zero T
	if any(client) == any(zero) {
		return nil
	}
	return client
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
