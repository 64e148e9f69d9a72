package community

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/adsparkhq/adspark-backend/internal/ads"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/pagination"
)

// Post is the community-facing projection of an ad job.
type Post struct {
	ID            string    `json:"id"`
	UserName      string    `json:"user_name"`
	UserAvatar    *string   `json:"user_avatar"`
	Category      string    `json:"category"`
	Style         string    `json:"style"`
	Tags          []string  `json:"tags"`
	Likes         int       `json:"likes"`
	Comments      int       `json:"comments"`
	IsPublic      bool      `json:"is_public"`
	Status        string    `json:"status"`
	VideoStatus   *string   `json:"video_status"`
	Description   string    `json:"description"`
	Size          string    `json:"size"`
	FinalImageURL string    `json:"final_image_url"`
	VideoURL      string    `json:"video_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	Posts      []Post          `json:"posts"`
	Pagination pagination.Page `json:"pagination"`
	HasMore    bool            `json:"has_more"`
}

// Service serves the public community surface.
type Service struct {
	jobs ads.Repository
	logg *logger.Logger
}

// NewService wires the community service.
func NewService(jobs ads.Repository, logg *logger.Logger) (*Service, error) {
	if jobs == nil {
		return nil, errors.New("ads repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{jobs: jobs, logg: logg}, nil
}

// Feed pages through completed public posts, newest first. A full page
// signals more content the same way the feed client expects.
func (s *Service) Feed(ctx context.Context, filter ads.FeedFilter, params pagination.Params) (*FeedPage, error) {
	params = pagination.Normalize(params)

	rows, total, err := s.jobs.ListPublic(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list public posts")
	}

	posts := make([]Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, toPost(row))
	}

	return &FeedPage{
		Posts:      posts,
		Pagination: pagination.BuildPage(params, total),
		HasMore:    len(posts) == params.Limit,
	}, nil
}

// Like bumps the like counter. Repeat likes from the same caller all count.
func (s *Service) Like(ctx context.Context, postID string) error {
	if postID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	ok, err := s.jobs.IncrementLikes(ctx, postID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment likes")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return nil
}

// ListMine returns every job owned by the given email, newest first,
// regardless of visibility or status.
func (s *Service) ListMine(ctx context.Context, ownerEmail string) ([]Post, error) {
	if ownerEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email is required")
	}
	rows, err := s.jobs.ListByOwner(ctx, ownerEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned ads")
	}
	posts := make([]Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, toPost(row))
	}
	return posts, nil
}

// GetMine fetches a single job for its owner. Jobs are addressable only by
// their owner; anyone else sees not found.
func (s *Service) GetMine(ctx context.Context, ownerEmail, id string) (*Post, error) {
	if ownerEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email is required")
	}
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ad id is required")
	}
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ad not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find ad")
	}
	if job.OwnerEmail != ownerEmail {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ad not found")
	}
	post := toPost(*job)
	return &post, nil
}

func toPost(job models.AdJob) Post {
	tags := []string(job.Tags)
	if tags == nil {
		tags = []string{}
	}
	var videoStatus *string
	if job.VideoStatus != nil {
		value := job.VideoStatus.String()
		videoStatus = &value
	}
	return Post{
		ID:            job.ID,
		UserName:      job.UserName,
		UserAvatar:    job.UserAvatar,
		Category:      job.Category,
		Style:         job.Style,
		Tags:          tags,
		Likes:         job.Likes,
		Comments:      job.Comments,
		IsPublic:      job.IsPublic,
		Status:        job.Status.String(),
		VideoStatus:   videoStatus,
		Description:   job.Description,
		Size:          job.Size,
		FinalImageURL: job.FinalImageURL,
		VideoURL:      job.VideoURL,
		CreatedAt:     job.CreatedAt,
	}
}
