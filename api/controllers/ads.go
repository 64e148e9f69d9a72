package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsparkhq/adspark-backend/api/middleware"
	"github.com/adsparkhq/adspark-backend/api/responses"
	"github.com/adsparkhq/adspark-backend/api/validators"
	"github.com/adsparkhq/adspark-backend/internal/community"
	"github.com/adsparkhq/adspark-backend/internal/generation"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type adGenerator interface {
	GenerateImage(ctx context.Context, input generation.GenerateImageInput) (*generation.GenerateImageResult, error)
	GenerateVideo(ctx context.Context, user *models.User, jobID string) (string, error)
}

type adLibrary interface {
	ListMine(ctx context.Context, ownerEmail string) ([]community.Post, error)
	GetMine(ctx context.Context, ownerEmail, id string) (*community.Post, error)
}

type generateVideoRequest struct {
	AdID string `json:"ad_id" validate:"required"`
}

type generateVideoResponse struct {
	AdID     string `json:"ad_id"`
	VideoURL string `json:"video_url"`
}

// ListAds returns every ad owned by the caller, newest first.
func ListAds(library adLibrary, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		posts, err := library.ListMine(r.Context(), user.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, posts)
	}
}

// GetAd returns a single owned ad.
func GetAd(library adLibrary, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		post, err := library.GetMine(r.Context(), user.Email, chi.URLParam(r, "adId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// GenerateImage runs the image pipeline from a multipart form carrying the
// product as an uploaded file or hosted URL.
func GenerateImage(generator adGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		form, err := validators.ParseGenerateImageForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := generator.GenerateImage(r.Context(), generation.GenerateImageInput{
			User:        user,
			Description: form.Description,
			Size:        form.Size,
			ImageURL:    form.ImageURL,
			FileName:    form.FileName,
			FileData:    form.FileData,
			AvatarURL:   form.AvatarURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GenerateVideo animates a completed ad. The prompt and source image come
// from the stored job, never from the request.
func GenerateVideo(generator adGenerator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req generateVideoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		videoURL, err := generator.GenerateVideo(r.Context(), user, req.AdID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, generateVideoResponse{AdID: req.AdID, VideoURL: videoURL})
	}
}
