package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsparkhq/adspark-backend/api/responses"
	"github.com/adsparkhq/adspark-backend/internal/ads"
	"github.com/adsparkhq/adspark-backend/internal/community"
	"github.com/adsparkhq/adspark-backend/pkg/logger"
	"github.com/adsparkhq/adspark-backend/pkg/pagination"
)

type feedService interface {
	Feed(ctx context.Context, filter ads.FeedFilter, params pagination.Params) (*community.FeedPage, error)
	Like(ctx context.Context, postID string) error
}

// CommunityPosts serves the public feed. Category and style filters accept
// "all" as a no-op to match the feed client's default dropdowns.
func CommunityPosts(svc feedService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := ads.FeedFilter{
			Category: query.Get("category"),
			Style:    query.Get("style"),
		}
		page, err := svc.Feed(r.Context(), filter, pagination.FromQuery(query))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// LikePost bumps a post's like counter.
func LikePost(svc feedService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "postId")
		if err := svc.Like(r.Context(), postID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": postID, "status": "liked"})
	}
}
