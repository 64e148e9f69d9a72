package billing

import (
	"context"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository reads the billing plan catalog. Plans are seeded by migration
// and treated as read-only at runtime.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.BillingPlan, error)
	FindByStripePriceID(ctx context.Context, priceID string) (*models.BillingPlan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.PlanStatusActive).
		Order("credits ASC").
		Find(&plans).Error
	return plans, err
}

func (r *repository) FindByStripePriceID(ctx context.Context, priceID string) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}
