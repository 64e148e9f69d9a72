package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/adsparkhq/adspark-backend/pkg/enums"
)

// CreditEvent records an immutable credit lifecycle event for a user. Grants
// carry a positive amount, debits a negative one; the users.credits column is
// the materialized sum.
type CreditEvent struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.CreditEventType `gorm:"column:type;type:text;not null"`
	Amount    int                   `gorm:"column:amount;not null"`
	AdJobID   *string               `gorm:"column:ad_job_id"`
	Metadata  json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}
