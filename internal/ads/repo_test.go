package ads

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	"github.com/adsparkhq/adspark-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAdsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	adJobs := `
CREATE TABLE IF NOT EXISTS ad_jobs (
  id TEXT PRIMARY KEY,
  owner_email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  video_status TEXT,
  description TEXT NOT NULL DEFAULT '',
  size TEXT NOT NULL DEFAULT '',
  source_image_url TEXT NOT NULL DEFAULT '',
  final_image_url TEXT NOT NULL DEFAULT '',
  video_url TEXT NOT NULL DEFAULT '',
  image_to_video_prompt TEXT NOT NULL DEFAULT '',
  user_name TEXT NOT NULL DEFAULT '',
  user_avatar TEXT,
  category TEXT NOT NULL DEFAULT 'other',
  style TEXT NOT NULL DEFAULT 'modern',
  tags TEXT DEFAULT '{}',
  likes INTEGER NOT NULL DEFAULT 0,
  comments INTEGER NOT NULL DEFAULT 0,
  is_public BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(adJobs).Error)

	t.Cleanup(func() {
		_ = db.Exec("DROP TABLE ad_jobs").Error
	})
	return db
}

func seedJob(t *testing.T, db *gorm.DB, job *models.AdJob) *models.AdJob {
	t.Helper()
	if job.ID == "" {
		job.ID = NewJobID(time.Now())
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestNewJobID(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123", NewJobID(at))

	id, err := strconv.ParseInt(NewJobID(time.Now()), 10, 64)
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestCreateAndFindJob(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	job := seedJob(t, db, &models.AdJob{
		ID:          "1700000000001",
		OwnerEmail:  "maker@example.com",
		Status:      enums.AdStatusPending,
		Description: "glossy sneaker on a pedestal",
		UserName:    "Maker",
		Category:    "fashion",
		Style:       "modern",
		Tags:        []string{"sneaker", "studio"},
	})

	found, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "maker@example.com", found.OwnerEmail)
	assert.Equal(t, enums.AdStatusPending, found.Status)
	assert.Nil(t, found.VideoStatus)
	assert.Equal(t, []string{"sneaker", "studio"}, []string(found.Tags))

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListByOwnerNewestFirst(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedJob(t, db, &models.AdJob{ID: "1700000000001", OwnerEmail: "a@example.com"})
	seedJob(t, db, &models.AdJob{ID: "1700000000003", OwnerEmail: "a@example.com"})
	seedJob(t, db, &models.AdJob{ID: "1700000000002", OwnerEmail: "b@example.com"})

	jobs, err := repo.ListByOwner(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "1700000000003", jobs[0].ID)
	assert.Equal(t, "1700000000001", jobs[1].ID)
}

func TestListPublicFiltersAndPaging(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedJob(t, db, &models.AdJob{
			ID:         NewJobID(base.Add(time.Duration(i) * time.Second)),
			OwnerEmail: "a@example.com",
			Status:     enums.AdStatusCompleted,
			IsPublic:   true,
			Category:   "fashion",
			Style:      "modern",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}
	// Not eligible for the feed: still pending, or private.
	seedJob(t, db, &models.AdJob{
		ID: "1690000000001", OwnerEmail: "a@example.com",
		Status: enums.AdStatusPending, IsPublic: true, Category: "fashion",
	})
	seedJob(t, db, &models.AdJob{
		ID: "1690000000002", OwnerEmail: "a@example.com",
		Status: enums.AdStatusCompleted, IsPublic: false, Category: "fashion",
	})
	seedJob(t, db, &models.AdJob{
		ID: "1690000000003", OwnerEmail: "a@example.com",
		Status: enums.AdStatusCompleted, IsPublic: true, Category: "food", Style: "retro",
		CreatedAt: base.Add(-time.Hour),
	})

	jobs, total, err := repo.ListPublic(ctx, FeedFilter{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, jobs, 2)
	assert.Greater(t, jobs[0].ID, jobs[1].ID)
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))

	jobs, total, err = repo.ListPublic(ctx, FeedFilter{Category: "fashion"}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, jobs, 3)

	// "all" disables the dimension rather than matching a literal category.
	jobs, total, err = repo.ListPublic(ctx, FeedFilter{Category: FilterAll, Style: FilterAll}, pagination.Params{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, jobs, 1)

	jobs, total, err = repo.ListPublic(ctx, FeedFilter{Style: "retro"}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, "food", jobs[0].Category)
}

func TestCompleteAndDelete(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	job := seedJob(t, db, &models.AdJob{ID: "1700000000001", OwnerEmail: "a@example.com"})

	err := repo.Complete(ctx, job.ID,
		"https://ik.example/final.png?tr=w-auto,h-auto,q-100,f-auto",
		"https://ik.example/source.png",
		"pan slowly across the product")
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AdStatusCompleted, found.Status)
	assert.Contains(t, found.FinalImageURL, "final.png")
	assert.Equal(t, "https://ik.example/source.png", found.SourceImageURL)
	assert.Equal(t, "pan slowly across the product", found.ImageToVideoPrompt)

	require.NoError(t, repo.Delete(ctx, job.ID))
	_, err = repo.FindByID(ctx, job.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkVideoPendingGuards(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pendingImage := seedJob(t, db, &models.AdJob{ID: "1700000000001", OwnerEmail: "a@example.com", Status: enums.AdStatusPending})
	completed := seedJob(t, db, &models.AdJob{ID: "1700000000002", OwnerEmail: "a@example.com", Status: enums.AdStatusCompleted})

	ok, err := repo.MarkVideoPending(ctx, pendingImage.ID)
	require.NoError(t, err)
	assert.False(t, ok, "image stage must be completed first")

	ok, err = repo.MarkVideoPending(ctx, completed.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second claim while the first is in flight loses.
	ok, err = repo.MarkVideoPending(ctx, completed.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.CompleteVideo(ctx, completed.ID, "https://ik.example/clip.mp4?tr=q-100,f-auto"))

	found, err := repo.FindByID(ctx, completed.ID)
	require.NoError(t, err)
	require.NotNil(t, found.VideoStatus)
	assert.Equal(t, enums.VideoStatusCompleted, *found.VideoStatus)
	assert.Contains(t, found.VideoURL, "clip.mp4")

	// A finished video can be regenerated.
	ok, err = repo.MarkVideoPending(ctx, completed.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Rollback clears the claim and the stale video URL together.
	require.NoError(t, repo.ResetVideoStatus(ctx, completed.ID))
	found, err = repo.FindByID(ctx, completed.ID)
	require.NoError(t, err)
	assert.Nil(t, found.VideoStatus)
	assert.Empty(t, found.VideoURL)
}

func TestListStaleVideoPending(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stale := seedJob(t, db, &models.AdJob{ID: "1700000000001", OwnerEmail: "a@example.com", Status: enums.AdStatusCompleted})
	fresh := seedJob(t, db, &models.AdJob{ID: "1700000000002", OwnerEmail: "a@example.com", Status: enums.AdStatusCompleted})

	ok, err := repo.MarkVideoPending(ctx, stale.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.MarkVideoPending(ctx, fresh.ID)
	require.NoError(t, err)
	require.True(t, ok)

	past := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.AdJob{}).Where("id = ?", stale.ID).UpdateColumn("updated_at", past).Error)

	jobs, err := repo.ListStaleVideoPending(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, stale.ID, jobs[0].ID)
}

func TestIncrementLikes(t *testing.T) {
	db := setupAdsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	job := seedJob(t, db, &models.AdJob{ID: "1700000000001", OwnerEmail: "a@example.com"})

	ok, err := repo.IncrementLikes(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementLikes(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Likes)

	ok, err = repo.IncrementLikes(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
