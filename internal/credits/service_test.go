package credits

import (
	"context"
	"testing"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCreditsRepo struct {
	balances map[uuid.UUID]int
	events   []*models.CreditEvent
}

func newStubCreditsRepo() *stubCreditsRepo {
	return &stubCreditsRepo{balances: map[uuid.UUID]int{}}
}

func (s *stubCreditsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCreditsRepo) DecrementBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	balance, ok := s.balances[userID]
	if !ok || balance < amount {
		return false, nil
	}
	s.balances[userID] = balance - amount
	return true, nil
}

func (s *stubCreditsRepo) IncrementBalance(ctx context.Context, userID uuid.UUID, amount int) error {
	s.balances[userID] += amount
	return nil
}

func (s *stubCreditsRepo) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.balances[userID], nil
}

func (s *stubCreditsRepo) CreateEvent(ctx context.Context, event *models.CreditEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubCreditsRepo) ListEventsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditEvent, error) {
	events := []models.CreditEvent{}
	for _, event := range s.events {
		if event.UserID == userID {
			events = append(events, *event)
		}
	}
	return events, nil
}

func TestDebitRecordsNegativeEvent(t *testing.T) {
	repo := newStubCreditsRepo()
	userID := uuid.New()
	repo.balances[userID] = 10

	svc, err := NewService(stubTxRunner{}, repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	jobID := "1700000000000"
	if err := svc.Debit(context.Background(), DebitInput{
		UserID:  userID,
		Amount:  2,
		Type:    enums.CreditEventTypeImageDebit,
		AdJobID: &jobID,
	}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if repo.balances[userID] != 8 {
		t.Fatalf("expected balance 8, got %d", repo.balances[userID])
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	event := repo.events[0]
	if event.Amount != -2 {
		t.Fatalf("expected amount -2, got %d", event.Amount)
	}
	if event.AdJobID == nil || *event.AdJobID != jobID {
		t.Fatalf("expected job id on event")
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	repo := newStubCreditsRepo()
	userID := uuid.New()
	repo.balances[userID] = 3

	svc, err := NewService(stubTxRunner{}, repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Debit(context.Background(), DebitInput{
		UserID: userID,
		Amount: 4,
		Type:   enums.CreditEventTypeVideoDebit,
	})
	if err == nil {
		t.Fatal("expected insufficient credits error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientCredits {
		t.Fatalf("expected insufficient credits code, got %v", err)
	}
	if repo.balances[userID] != 3 {
		t.Fatalf("balance should be untouched, got %d", repo.balances[userID])
	}
	if len(repo.events) != 0 {
		t.Fatalf("no event should be recorded, got %d", len(repo.events))
	}
}

func TestDebitRejectsGrantType(t *testing.T) {
	svc, err := NewService(stubTxRunner{}, newStubCreditsRepo())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Debit(context.Background(), DebitInput{
		UserID: uuid.New(),
		Amount: 2,
		Type:   enums.CreditEventTypeSignupGrant,
	}); err == nil {
		t.Fatal("expected invalid type error")
	}
}

func TestGrantRecordsPositiveEvent(t *testing.T) {
	repo := newStubCreditsRepo()
	userID := uuid.New()

	svc, err := NewService(stubTxRunner{}, repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Grant(context.Background(), GrantInput{
		UserID: userID,
		Amount: 150,
		Type:   enums.CreditEventTypePurchaseGrant,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if repo.balances[userID] != 150 {
		t.Fatalf("expected balance 150, got %d", repo.balances[userID])
	}
	if len(repo.events) != 1 || repo.events[0].Amount != 150 {
		t.Fatalf("expected positive grant event")
	}
}

func TestGrantRejectsDebitType(t *testing.T) {
	svc, err := NewService(stubTxRunner{}, newStubCreditsRepo())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Grant(context.Background(), GrantInput{
		UserID: uuid.New(),
		Amount: 5,
		Type:   enums.CreditEventTypeImageDebit,
	}); err == nil {
		t.Fatal("expected invalid type error")
	}
}
