package credits

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines credit balance operations. Every balance change records a
// matching event in the ledger inside the same transaction.
type Service interface {
	Debit(ctx context.Context, input DebitInput) error
	Grant(ctx context.Context, input GrantInput) error
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditEvent, error)
}

type service struct {
	tx   txRunner
	repo Repository
}

// DebitInput captures a single debit against a user's balance.
type DebitInput struct {
	UserID   uuid.UUID
	Amount   int
	Type     enums.CreditEventType
	AdJobID  *string
	Metadata json.RawMessage
}

// GrantInput captures a single grant to a user's balance.
type GrantInput struct {
	UserID   uuid.UUID
	Amount   int
	Type     enums.CreditEventType
	Metadata json.RawMessage
}

// NewService wires a credits service with the provided tx runner and repository.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

// Debit removes credits from the user's balance with a conditional decrement.
// The decrement and its ledger event commit atomically; losing the balance
// race surfaces as an insufficient-credits error with no state change.
func (s *service) Debit(ctx context.Context, input DebitInput) error {
	if input.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if input.Amount <= 0 {
		return fmt.Errorf("debit amount must be positive")
	}
	if !input.Type.IsValid() || input.Type.IsGrant() {
		return fmt.Errorf("invalid debit event type %q", input.Type)
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.DecrementBalance(ctx, input.UserID, input.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "credit balance below required amount").
				WithDetails(map[string]any{"required": input.Amount})
		}

		return repo.CreateEvent(ctx, &models.CreditEvent{
			UserID:   input.UserID,
			Type:     input.Type,
			Amount:   -input.Amount,
			AdJobID:  input.AdJobID,
			Metadata: input.Metadata,
		})
	})
}

// Grant adds credits to the user's balance and records the event.
func (s *service) Grant(ctx context.Context, input GrantInput) error {
	if input.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if input.Amount <= 0 {
		return fmt.Errorf("grant amount must be positive")
	}
	if !input.Type.IsValid() || !input.Type.IsGrant() {
		return fmt.Errorf("invalid grant event type %q", input.Type)
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.IncrementBalance(ctx, input.UserID, input.Amount); err != nil {
			return err
		}

		return repo.CreateEvent(ctx, &models.CreditEvent{
			UserID:   input.UserID,
			Type:     input.Type,
			Amount:   input.Amount,
			Metadata: input.Metadata,
		})
	})
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("user id is required")
	}
	return s.repo.GetBalance(ctx, userID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditEvent, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListEventsByUser(ctx, userID, limit)
}
