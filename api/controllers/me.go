package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adsparkhq/adspark-backend/api/middleware"
	"github.com/adsparkhq/adspark-backend/api/responses"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

const defaultHistoryLimit = 50

type balanceReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditEvent, error)
}

type profileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    *string   `json:"photo_url"`
	Credits     int       `json:"credits"`
	CreatedAt   time.Time `json:"created_at"`
}

type creditEventResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    int       `json:"amount"`
	AdID      *string   `json:"ad_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Me returns the caller's profile with a fresh balance read.
func Me(credits balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		balance, err := credits.Balance(r.Context(), user.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profileResponse{
			ID:          user.ID.String(),
			Email:       user.Email,
			DisplayName: user.DisplayName,
			PhotoURL:    user.PhotoURL,
			Credits:     balance,
			CreatedAt:   user.CreatedAt,
		})
	}
}

// MyCredits lists the caller's recent credit ledger entries.
func MyCredits(credits balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}

		events, err := credits.History(r.Context(), user.ID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]creditEventResponse, 0, len(events))
		for _, event := range events {
			out = append(out, creditEventResponse{
				ID:        event.ID.String(),
				Type:      string(event.Type),
				Amount:    event.Amount,
				AdID:      event.AdJobID,
				CreatedAt: event.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
