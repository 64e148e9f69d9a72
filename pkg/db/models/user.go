package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Identity itself lives with
// the external provider; this row carries the credit balance and the profile
// snapshot captured at sign-in.
type User struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalUID string     `gorm:"column:external_uid;not null;uniqueIndex"`
	Email       string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	DisplayName string     `gorm:"column:display_name;not null;default:''"`
	PhotoURL    *string    `gorm:"column:photo_url"`
	Credits     int        `gorm:"column:credits;not null;default:20"`
	LastSeenAt  *time.Time `gorm:"column:last_seen_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
