package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/adsparkhq/adspark-backend/pkg/enums"
)

// AdJob tracks one requested ad-image generation and its optional follow-on
// video stage. The primary key is minted from the request timestamp in
// milliseconds, so ordering by id descending yields newest first.
type AdJob struct {
	ID                 string             `gorm:"column:id;primaryKey"`
	OwnerEmail         string             `gorm:"column:owner_email;not null;index"`
	Status             enums.AdStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	VideoStatus        *enums.VideoStatus `gorm:"column:video_status;type:text"`
	Description        string             `gorm:"column:description;not null;default:''"`
	Size               string             `gorm:"column:size;not null;default:''"`
	SourceImageURL     string             `gorm:"column:source_image_url;not null;default:''"`
	FinalImageURL      string             `gorm:"column:final_image_url;not null;default:''"`
	VideoURL           string             `gorm:"column:video_url;not null;default:''"`
	ImageToVideoPrompt string             `gorm:"column:image_to_video_prompt;not null;default:''"`

	// Community-facing fields, default-populated at creation and mutated
	// only by community interactions.
	UserName   string         `gorm:"column:user_name;not null;default:''"`
	UserAvatar *string        `gorm:"column:user_avatar"`
	Category   string         `gorm:"column:category;not null;default:'other';index"`
	Style      string         `gorm:"column:style;not null;default:'modern';index"`
	Tags       pq.StringArray `gorm:"column:tags;type:text[];default:ARRAY[]::text[]"`
	Likes      int            `gorm:"column:likes;not null;default:0"`
	Comments   int            `gorm:"column:comments;not null;default:0"`
	IsPublic   bool           `gorm:"column:is_public;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
