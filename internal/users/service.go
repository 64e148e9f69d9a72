package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adsparkhq/adspark-backend/internal/credits"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Identity is the provider-verified profile presented on each request.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// Service resolves provider identities to local user rows.
type Service interface {
	EnsureUser(ctx context.Context, identity Identity) (*models.User, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	creditsRepo credits.Repository
	signupGrant int
	now         func() time.Time
}

// NewService wires the users service. signupGrant is the credit balance a
// brand-new user starts with.
func NewService(tx txRunner, repo Repository, creditsRepo credits.Repository, signupGrant int) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if creditsRepo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if signupGrant < 0 {
		return nil, fmt.Errorf("signup grant must not be negative")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		creditsRepo: creditsRepo,
		signupGrant: signupGrant,
		now:         time.Now,
	}, nil
}

// EnsureUser returns the user for the given identity, creating the row with
// the signup grant on first sight. Existing users get their profile snapshot
// and last-seen time refreshed.
func (s *service) EnsureUser(ctx context.Context, identity Identity) (*models.User, error) {
	uid := strings.TrimSpace(identity.UID)
	email := strings.TrimSpace(identity.Email)
	if uid == "" {
		return nil, fmt.Errorf("identity uid is required")
	}
	if email == "" {
		return nil, fmt.Errorf("identity email is required")
	}

	user, err := s.repo.FindByExternalUID(ctx, uid)
	switch {
	case err == nil:
		return s.refresh(ctx, user, identity)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.create(ctx, uid, email, identity)
	default:
		return nil, err
	}
}

func (s *service) refresh(ctx context.Context, user *models.User, identity Identity) (*models.User, error) {
	displayName := displayNameFor(identity)
	photoURL := photoURLFor(identity)
	seenAt := s.now().UTC()

	if err := s.repo.UpdateProfile(ctx, user.ID, displayName, photoURL, seenAt); err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	user.PhotoURL = photoURL
	user.LastSeenAt = &seenAt
	return user, nil
}

func (s *service) create(ctx context.Context, uid, email string, identity Identity) (*models.User, error) {
	seenAt := s.now().UTC()
	user := &models.User{
		ExternalUID: uid,
		Email:       email,
		DisplayName: displayNameFor(identity),
		PhotoURL:    photoURLFor(identity),
		Credits:     s.signupGrant,
		LastSeenAt:  &seenAt,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		if s.signupGrant == 0 {
			return nil
		}
		metadata, _ := json.Marshal(map[string]string{"reason": "signup"})
		return s.creditsRepo.WithTx(tx).CreateEvent(ctx, &models.CreditEvent{
			UserID:   user.ID,
			Type:     enums.CreditEventTypeSignupGrant,
			Amount:   s.signupGrant,
			Metadata: metadata,
		})
	})
	if err == nil {
		return user, nil
	}

	// Two first-sight requests can race on the unique uid; the loser adopts
	// the winner's row.
	if existing, findErr := s.repo.FindByExternalUID(ctx, uid); findErr == nil {
		return s.refresh(ctx, existing, identity)
	}
	return nil, err
}

func displayNameFor(identity Identity) string {
	if name := strings.TrimSpace(identity.Name); name != "" {
		return name
	}
	email := strings.TrimSpace(identity.Email)
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return "Anonymous"
}

func photoURLFor(identity Identity) *string {
	picture := strings.TrimSpace(identity.Picture)
	if picture == "" {
		return nil
	}
	return &picture
}
