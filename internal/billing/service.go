package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/adsparkhq/adspark-backend/internal/analytics"
	"github.com/adsparkhq/adspark-backend/internal/credits"
	"github.com/adsparkhq/adspark-backend/internal/users"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/metrics"
)

// Session metadata keys the checkout page attaches for fulfillment.
const (
	metadataUserID  = "user_id"
	metadataPriceID = "price_id"
)

// grantReasonPurchase labels credit grants from fulfilled checkouts.
const grantReasonPurchase = "purchase"

// Plan is the purchasable credit plan projection shown on the upgrade page.
type Plan struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Credits       int             `json:"credits"`
	PriceAmount   decimal.Decimal `json:"price_amount"`
	CurrencyCode  string          `json:"currency_code"`
	StripePriceID string          `json:"stripe_price_id"`
	Features      []string        `json:"features"`
}

type creditGranter interface {
	Grant(ctx context.Context, input credits.GrantInput) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type grantRecorder interface {
	CreditsGranted(ctx context.Context, userEmail, reason string, amount int)
}

// Service serves the plan catalog and fulfills completed checkouts.
type Service struct {
	repo    Repository
	ledger  creditGranter
	users   userFinder
	events  grantRecorder
	metrics *metrics.GenerationMetrics
	logg    *logger.Logger
}

// Option configures optional service behavior.
type Option func(*Service)

// WithAnalytics records fulfilled grants as analytics events.
func WithAnalytics(recorder *analytics.Recorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.events = recorder
		}
	}
}

// WithMetrics enables the credits-granted counter.
func WithMetrics(gm *metrics.GenerationMetrics) Option {
	return func(s *Service) { s.metrics = gm }
}

// NewService wires the billing service.
func NewService(repo Repository, ledger creditGranter, userRepo users.Repository, logg *logger.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("billing repository is required")
	}
	if ledger == nil {
		return nil, errors.New("credit ledger is required")
	}
	if userRepo == nil {
		return nil, errors.New("users repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	svc := &Service{repo: repo, ledger: ledger, users: userRepo, logg: logg}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Plans lists the active catalog.
func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list billing plans")
	}
	plans := make([]Plan, 0, len(rows))
	for _, row := range rows {
		features := []string(row.Features)
		if features == nil {
			features = []string{}
		}
		plans = append(plans, Plan{
			ID:            row.ID,
			Name:          row.Name,
			Credits:       row.Credits,
			PriceAmount:   row.PriceAmount,
			CurrencyCode:  row.CurrencyCode,
			StripePriceID: row.StripePriceID,
			Features:      features,
		})
	}
	return plans, nil
}

// HandleEvent fulfills checkout.session.completed by granting the purchased
// plan's credits. Other event types are acknowledged without action.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
	}

	userID, err := sessionUserID(&session)
	if err != nil {
		return err
	}
	priceID := strings.TrimSpace(session.Metadata[metadataPriceID])
	if priceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing price id metadata")
	}

	plan, err := s.repo.FindByStripePriceID(ctx, priceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown billing plan price id")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve billing plan")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "checkout session references unknown user")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve user")
	}

	metadata, _ := json.Marshal(map[string]string{
		"stripe_event_id":   event.ID,
		"stripe_session_id": session.ID,
		"plan_id":           plan.ID,
	})
	if err := s.ledger.Grant(ctx, credits.GrantInput{
		UserID:   user.ID,
		Amount:   plan.Credits,
		Type:     enums.CreditEventTypePurchaseGrant,
		Metadata: metadata,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant purchased credits")
	}

	s.metrics.AddCreditsGranted(grantReasonPurchase, plan.Credits)
	if s.events != nil {
		s.events.CreditsGranted(ctx, user.Email, grantReasonPurchase, plan.Credits)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"plan_id": plan.ID,
		"credits": plan.Credits,
	})
	s.logg.Info(logCtx, "checkout fulfilled")
	return nil
}

func sessionUserID(session *stripe.CheckoutSession) (uuid.UUID, error) {
	raw := strings.TrimSpace(session.Metadata[metadataUserID])
	if raw == "" {
		raw = strings.TrimSpace(session.ClientReferenceID)
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing user reference")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse checkout user id")
	}
	return userID, nil
}
