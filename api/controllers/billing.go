package controllers

import (
	"context"
	"net/http"

	"github.com/adsparkhq/adspark-backend/api/responses"
	"github.com/adsparkhq/adspark-backend/internal/billing"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type planCatalog interface {
	Plans(ctx context.Context) ([]billing.Plan, error)
}

// BillingPlans lists the purchasable credit plans.
func BillingPlans(svc planCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.Plans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plans)
	}
}
