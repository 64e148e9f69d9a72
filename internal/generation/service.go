package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/adsparkhq/adspark-backend/internal/ads"
	"github.com/adsparkhq/adspark-backend/internal/analytics"
	"github.com/adsparkhq/adspark-backend/internal/credits"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/adsparkhq/adspark-backend/pkg/enums"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/imagekit"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/metrics"
	"github.com/adsparkhq/adspark-backend/pkg/openai"
	"github.com/adsparkhq/adspark-backend/pkg/replicate"
)

// Generation kinds used for pricing, metrics, and analytics.
const (
	KindImage  = "image"
	KindAvatar = "avatar"
	KindVideo  = "video"
)

// Pipeline stages reported on failure.
const (
	stageSourceUpload = "source_upload"
	stagePrompt       = "prompt"
	stageSynthesis    = "synthesis"
	stageComplete     = "complete"
	stageDebit        = "debit"
	stageStore        = "store"
)

const maxAssetDownloadBytes int64 = 256 << 20

type promptClient interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (string, error)
}

type synthesisClient interface {
	RunAndWait(ctx context.Context, model string, input map[string]any) (*replicate.Prediction, error)
}

type assetStore interface {
	Upload(ctx context.Context, req imagekit.UploadRequest) (*imagekit.UploadResult, error)
}

type cleanupQueue interface {
	PublishOrphanedAssets(ctx context.Context, jobID, reason string, fileIDs []string) error
}

type creditLedger interface {
	Debit(ctx context.Context, input credits.DebitInput) error
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

// Config carries the models, storage folders, and pricing for the pipelines.
type Config struct {
	ImageModel  string
	VideoModel  string
	ImageFolder string
	VideoFolder string
	ImageCost   int
	AvatarCost  int
	VideoCost   int
}

// Service runs the image and video generation pipelines.
type Service struct {
	cfg        Config
	jobs       ads.Repository
	ledger     creditLedger
	prompt     promptClient
	synth      synthesisClient
	storage    assetStore
	cleanup    cleanupQueue
	events     *analytics.Recorder
	metrics    *metrics.GenerationMetrics
	httpClient *http.Client
	logg       *logger.Logger
	now        func() time.Time
}

// Option configures optional service behavior.
type Option func(*Service)

// WithHTTPClient overrides the client used to download synthesized assets.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithCleanupQueue enables orphaned-asset cleanup events on pipeline rollback.
func WithCleanupQueue(queue cleanupQueue) Option {
	return func(s *Service) { s.cleanup = queue }
}

// WithAnalytics enables fire-and-forget generation analytics.
func WithAnalytics(recorder *analytics.Recorder) Option {
	return func(s *Service) { s.events = recorder }
}

// WithMetrics enables prometheus generation metrics.
func WithMetrics(gm *metrics.GenerationMetrics) Option {
	return func(s *Service) { s.metrics = gm }
}

// NewService wires the generation pipelines.
func NewService(cfg Config, jobs ads.Repository, ledger creditLedger, prompt promptClient, synth synthesisClient, storage assetStore, logg *logger.Logger, opts ...Option) (*Service, error) {
	if jobs == nil {
		return nil, errors.New("ads repository is required")
	}
	if ledger == nil {
		return nil, errors.New("credit ledger is required")
	}
	if prompt == nil {
		return nil, errors.New("prompt client is required")
	}
	if synth == nil {
		return nil, errors.New("synthesis client is required")
	}
	if storage == nil {
		return nil, errors.New("asset storage is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.ImageModel == "" || cfg.VideoModel == "" {
		return nil, errors.New("synthesis models are required")
	}
	if cfg.ImageCost <= 0 || cfg.AvatarCost <= 0 || cfg.VideoCost <= 0 {
		return nil, errors.New("credit costs must be positive")
	}

	svc := &Service{
		cfg:        cfg,
		jobs:       jobs,
		ledger:     ledger,
		prompt:     prompt,
		synth:      synth,
		storage:    storage,
		logg:       logg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// GenerateImageInput describes one image generation request. Either ImageURL
// points at a pre-hosted product shot or FileData carries the uploaded bytes;
// a URL takes precedence when both are present.
type GenerateImageInput struct {
	User        *models.User
	Description string
	Size        string
	ImageURL    string
	FileName    string
	FileData    []byte
	AvatarURL   string
}

// GenerateImageResult is returned to the caller for status polling.
type GenerateImageResult struct {
	JobID         string `json:"ad_id"`
	FinalImageURL string `json:"final_image_url"`
}

// GenerateImage runs the full image pipeline synchronously: job creation,
// prompt synthesis, image synthesis, durable storage, completion, and the
// credit debit. Any failure after job creation deletes the job and enqueues
// cleanup of uploaded assets; credits only move on full success.
func (s *Service) GenerateImage(ctx context.Context, input GenerateImageInput) (*GenerateImageResult, error) {
	if input.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if strings.TrimSpace(input.ImageURL) == "" && len(input.FileData) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a product image file or url is required")
	}

	kind := KindImage
	cost := s.cfg.ImageCost
	avatarURL := strings.TrimSpace(input.AvatarURL)
	if avatarURL != "" {
		kind = KindAvatar
		cost = s.cfg.AvatarCost
	}
	start := s.now()
	ctx = s.logg.WithUserID(ctx, input.User.ID.String())

	// Optimistic pre-check; the atomic debit after completion settles it.
	balance, err := s.ledger.Balance(ctx, input.User.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read credit balance")
	}
	if balance < cost {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientCredits, "credit balance below required amount").
			WithDetails(map[string]any{"required": cost, "balance": balance})
	}

	jobID := ads.NewJobID(start)
	job := &models.AdJob{
		ID:          jobID,
		OwnerEmail:  input.User.Email,
		Status:      enums.AdStatusPending,
		Description: strings.TrimSpace(input.Description),
		Size:        strings.TrimSpace(input.Size),
		UserName:    communityName(input.User),
		UserAvatar:  input.User.PhotoURL,
		Category:    "other",
		Style:       "modern",
		Tags:        pq.StringArray{},
		IsPublic:    true,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ad job")
	}
	ctx = s.logg.WithAdID(ctx, jobID)
	s.events.JobCreated(ctx, jobID, input.User.Email, kind)

	var uploaded []string

	sourceURL := strings.TrimSpace(input.ImageURL)
	if sourceURL == "" {
		result, err := s.storage.Upload(ctx, imagekit.UploadRequest{
			FileName: sourceFileName(input.FileName, start),
			Folder:   s.cfg.ImageFolder,
			Data:     input.FileData,
		})
		if err != nil {
			return nil, s.failImage(ctx, jobID, input.User.Email, kind, stageSourceUpload, uploaded, err)
		}
		uploaded = append(uploaded, result.FileID)
		sourceURL = result.URL
	}

	instruction := showcasePrompt
	imageInputs := []string{sourceURL}
	if avatarURL != "" {
		instruction = avatarShowcasePrompt
		imageInputs = append(imageInputs, avatarURL)
	}

	content, err := s.prompt.Complete(ctx, openai.CompletionRequest{
		User:      instruction,
		ImageURLs: imageInputs,
	})
	if err != nil {
		return nil, s.failImage(ctx, jobID, input.User.Email, kind, stagePrompt, uploaded, err)
	}
	pair, err := parsePromptPair(content)
	if err != nil {
		return nil, s.failImage(ctx, jobID, input.User.Email, kind, stagePrompt, uploaded, err)
	}

	prediction, err := s.synth.RunAndWait(ctx, s.cfg.ImageModel, map[string]any{
		"prompt":      pair.TextToImage,
		"image_input": imageInputs,
	})
	if err != nil {
		return nil, s.failImage(ctx, jobID, input.User.Email, kind, stageSynthesis, uploaded, err)
	}
	synthURL, err := prediction.FirstOutput()
	if err != nil {
		return nil, s.failImage(ctx, jobID, input.User.Email, kind, stageSynthesis, uploaded, err)
	}

	// Persist the synthesized image in our own media library. Storage trouble
	// here is non-fatal: the synthesis URL still serves the asset.
	finalURL := synthURL
	if data, fetchErr := s.fetch(ctx, synthURL); fetchErr != nil {
		s.logg.Warn(ctx, "download of synthesized image failed, serving synthesis url")
	} else {
		stored, uploadErr := s.storage.Upload(ctx, imagekit.UploadRequest{
			FileName: fmt.Sprintf("generate-%d.png", s.now().UnixMilli()),
			Folder:   s.cfg.ImageFolder,
			Data:     data,
		})
		if uploadErr != nil {
			s.logg.Warn(ctx, "storing synthesized image failed, serving synthesis url")
		} else {
			uploaded = append(uploaded, stored.FileID)
			finalURL = imagekit.DeliveryURL(stored.URL, imagekit.ImageTransform)
		}
	}

	if err := s.jobs.Complete(ctx, jobID, finalURL, sourceURL, pair.ImageToVideo); err != nil {
		return nil, s.failImage(ctx, jobID, input.User.Email, kind, stageComplete, uploaded, err)
	}

	if err := s.ledger.Debit(ctx, credits.DebitInput{
		UserID:  input.User.ID,
		Amount:  cost,
		Type:    enums.CreditEventTypeImageDebit,
		AdJobID: &jobID,
	}); err != nil {
		return nil, s.failImage(ctx, jobID, input.User.Email, kind, stageDebit, uploaded, err)
	}

	s.metrics.ObserveDuration(kind, s.now().Sub(start))
	s.metrics.IncSuccess(kind)
	s.metrics.AddCreditsDebited(kind, cost)
	s.events.JobCompleted(ctx, jobID, input.User.Email, kind)
	s.events.CreditsDebited(ctx, jobID, input.User.Email, kind, cost)
	s.logg.Info(ctx, "image generation completed")

	return &GenerateImageResult{JobID: jobID, FinalImageURL: finalURL}, nil
}

// GenerateVideo runs the video stage for a completed job owned by the caller.
// Failures reset the video status so the stage can be retried; the image
// stage is never touched.
func (s *Service) GenerateVideo(ctx context.Context, user *models.User, jobID string) (string, error) {
	if user == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "ad id is required")
	}

	start := s.now()
	ctx = s.logg.WithAdID(s.logg.WithUserID(ctx, user.ID.String()), jobID)

	balance, err := s.ledger.Balance(ctx, user.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read credit balance")
	}
	if balance < s.cfg.VideoCost {
		return "", pkgerrors.New(pkgerrors.CodeInsufficientCredits, "credit balance below required amount").
			WithDetails(map[string]any{"required": s.cfg.VideoCost, "balance": balance})
	}

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "ad not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ad job")
	}
	if job.OwnerEmail != user.Email {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "ad belongs to another user")
	}
	if job.Status != enums.AdStatusCompleted {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "image generation has not completed")
	}
	if strings.TrimSpace(job.ImageToVideoPrompt) == "" {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "ad has no cached video prompt")
	}

	claimed, err := s.jobs.MarkVideoPending(ctx, jobID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim video stage")
	}
	if !claimed {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "video generation already in progress")
	}

	prediction, err := s.synth.RunAndWait(ctx, s.cfg.VideoModel, map[string]any{
		"image":  job.FinalImageURL,
		"prompt": job.ImageToVideoPrompt,
	})
	if err != nil {
		return "", s.failVideo(ctx, jobID, user.Email, stageSynthesis, err)
	}
	synthURL, err := prediction.FirstOutput()
	if err != nil {
		return "", s.failVideo(ctx, jobID, user.Email, stageSynthesis, err)
	}

	// Unlike the image stage, durable storage is required for video.
	data, err := s.fetch(ctx, synthURL)
	if err != nil {
		return "", s.failVideo(ctx, jobID, user.Email, stageStore, err)
	}
	stored, err := s.storage.Upload(ctx, imagekit.UploadRequest{
		FileName: fmt.Sprintf("veo_video_%d.mp4", s.now().UnixMilli()),
		Folder:   s.cfg.VideoFolder,
		Data:     data,
	})
	if err != nil {
		return "", s.failVideo(ctx, jobID, user.Email, stageStore, err)
	}
	finalURL := imagekit.DeliveryURL(stored.URL, imagekit.VideoTransform)

	if err := s.jobs.CompleteVideo(ctx, jobID, finalURL); err != nil {
		return "", s.failVideo(ctx, jobID, user.Email, stageComplete, err)
	}

	if err := s.ledger.Debit(ctx, credits.DebitInput{
		UserID:  user.ID,
		Amount:  s.cfg.VideoCost,
		Type:    enums.CreditEventTypeVideoDebit,
		AdJobID: &jobID,
	}); err != nil {
		return "", s.failVideo(ctx, jobID, user.Email, stageDebit, err)
	}

	s.metrics.ObserveDuration(KindVideo, s.now().Sub(start))
	s.metrics.IncSuccess(KindVideo)
	s.metrics.AddCreditsDebited(KindVideo, s.cfg.VideoCost)
	s.events.VideoCompleted(ctx, jobID, user.Email)
	s.events.CreditsDebited(ctx, jobID, user.Email, KindVideo, s.cfg.VideoCost)
	s.logg.Info(ctx, "video generation completed")

	return finalURL, nil
}

func (s *Service) failImage(ctx context.Context, jobID, userEmail, kind, stage string, uploaded []string, err error) error {
	logCtx := s.logg.WithField(ctx, "stage", stage)
	s.logg.Error(logCtx, "image generation failed", err)

	if delErr := s.jobs.Delete(ctx, jobID); delErr != nil {
		s.logg.Error(logCtx, "failed to delete ad job after pipeline failure", delErr)
	}
	if s.cleanup != nil && len(uploaded) > 0 {
		if pubErr := s.cleanup.PublishOrphanedAssets(ctx, jobID, stage, uploaded); pubErr != nil {
			s.logg.Error(logCtx, "failed to publish asset cleanup event", pubErr)
		}
	}

	s.metrics.IncFailure(kind, stage)
	s.events.JobFailed(ctx, jobID, userEmail, kind, stage)
	return publicError(err)
}

func (s *Service) failVideo(ctx context.Context, jobID, userEmail, stage string, err error) error {
	logCtx := s.logg.WithField(ctx, "stage", stage)
	s.logg.Error(logCtx, "video generation failed", err)

	if resetErr := s.jobs.ResetVideoStatus(ctx, jobID); resetErr != nil {
		s.logg.Error(logCtx, "failed to reset video status after pipeline failure", resetErr)
	}

	s.metrics.IncFailure(KindVideo, stage)
	s.events.JobFailed(ctx, jobID, userEmail, KindVideo, stage)
	return publicError(err)
}

// publicError keeps typed pipeline errors intact and folds everything else
// into the generic retryable upstream failure.
func publicError(err error) error {
	if appErr := pkgerrors.As(err); appErr != nil {
		switch appErr.Code() {
		case pkgerrors.CodeInsufficientCredits,
			pkgerrors.CodeUpstreamContract,
			pkgerrors.CodeUpstreamFailure:
			return appErr
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, err, "generation pipeline failed")
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build asset download request")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, err, "download synthesized asset")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamFailure, fmt.Sprintf("asset download failed with status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetDownloadBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, err, "read synthesized asset")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamFailure, "synthesized asset is empty")
	}
	return data, nil
}

func communityName(user *models.User) string {
	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return name
	}
	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}
	return "Anonymous"
}

func sourceFileName(fileName string, at time.Time) string {
	trimmed := strings.TrimSpace(fileName)
	if trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("%d.png", at.UnixMilli())
}
