package ads

import (
	"context"
	"strconv"
	"time"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	"github.com/adsparkhq/adspark-backend/pkg/pagination"
	"gorm.io/gorm"
)

// FilterAll disables a feed filter dimension when passed as its value.
const FilterAll = "all"

// NewJobID mints a job id from the request time in milliseconds. Ids sort
// chronologically as strings of equal length, which the feed relies on.
func NewJobID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// FeedFilter narrows the public feed. Empty or "all" values match everything.
type FeedFilter struct {
	Category string
	Style    string
}

// Repository manages persistence for ad jobs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.AdJob) error
	FindByID(ctx context.Context, id string) (*models.AdJob, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]models.AdJob, error)
	ListPublic(ctx context.Context, filter FeedFilter, params pagination.Params) ([]models.AdJob, int64, error)
	Complete(ctx context.Context, id, finalImageURL, sourceImageURL, videoPrompt string) error
	Delete(ctx context.Context, id string) error
	MarkVideoPending(ctx context.Context, id string) (bool, error)
	CompleteVideo(ctx context.Context, id, videoURL string) error
	ResetVideoStatus(ctx context.Context, id string) error
	ListStaleVideoPending(ctx context.Context, before time.Time) ([]models.AdJob, error)
	IncrementLikes(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an ad job repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.AdJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.AdJob, error) {
	var job models.AdJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerEmail string) ([]models.AdJob, error) {
	var jobs []models.AdJob
	err := r.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("id DESC").
		Find(&jobs).Error
	return jobs, err
}

// ListPublic pages through completed public jobs, newest first. A filter value
// of "all" (or empty) skips that dimension entirely.
func (r *repository) ListPublic(ctx context.Context, filter FeedFilter, params pagination.Params) ([]models.AdJob, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AdJob{}).
		Where("is_public = ?", true).
		Where("status = ?", enums.AdStatusCompleted)

	if filter.Category != "" && filter.Category != FilterAll {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Style != "" && filter.Style != FilterAll {
		query = query.Where("style = ?", filter.Style)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Ids are creation-millis, so id order is creation order everywhere.
	var jobs []models.AdJob
	err := query.
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&jobs).Error
	return jobs, total, err
}

// Complete flips the job into its terminal image state and records the asset
// URLs alongside the cached video prompt.
func (r *repository) Complete(ctx context.Context, id, finalImageURL, sourceImageURL, videoPrompt string) error {
	return r.db.WithContext(ctx).
		Model(&models.AdJob{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":                enums.AdStatusCompleted,
			"final_image_url":       finalImageURL,
			"source_image_url":      sourceImageURL,
			"image_to_video_prompt": videoPrompt,
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.AdJob{}, "id = ?", id).Error
}

// MarkVideoPending claims the video stage. The guard requires a completed
// image stage and no in-flight video, so concurrent requests for the same job
// resolve to a single winner.
func (r *repository) MarkVideoPending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdJob{}).
		Where("id = ? AND status = ? AND (video_status IS NULL OR video_status <> ?)", id, enums.AdStatusCompleted, enums.VideoStatusPending).
		UpdateColumns(map[string]any{
			"video_status": enums.VideoStatusPending,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CompleteVideo(ctx context.Context, id, videoURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.AdJob{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"video_status": enums.VideoStatusCompleted,
			"video_url":    videoURL,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// ResetVideoStatus clears a claimed video stage so the job can be retried.
// The video URL goes with it: a rolled-back job must not advertise a video
// it was never charged for.
func (r *repository) ResetVideoStatus(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.AdJob{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"video_status": gorm.Expr("NULL"),
			"video_url":    "",
			"updated_at":   time.Now().UTC(),
		}).Error
}

// ListStaleVideoPending returns jobs whose video stage was claimed before the
// cutoff and never resolved.
func (r *repository) ListStaleVideoPending(ctx context.Context, before time.Time) ([]models.AdJob, error) {
	var jobs []models.AdJob
	err := r.db.WithContext(ctx).
		Where("video_status = ? AND updated_at < ?", enums.VideoStatusPending, before).
		Find(&jobs).Error
	return jobs, err
}

func (r *repository) IncrementLikes(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdJob{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
