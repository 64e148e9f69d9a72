package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/adsparkhq/adspark-backend/pkg/enums"
)

// BillingPlan captures a purchasable credit top-up plan shown on the upgrade
// page. Rows are seeded by migration and treated as a read-only catalog.
type BillingPlan struct {
	ID            string           `gorm:"column:id;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Status        enums.PlanStatus `gorm:"column:status;type:text;not null"`
	Credits       int              `gorm:"column:credits;not null"`
	PriceAmount   decimal.Decimal  `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode  string           `gorm:"column:currency_code;not null;default:'USD'"`
	StripePriceID string           `gorm:"column:stripe_price_id;not null;uniqueIndex"`
	Features      pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
