package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/adsparkhq/adspark-backend/internal/ads"
	"github.com/adsparkhq/adspark-backend/internal/community"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
	"github.com/adsparkhq/adspark-backend/pkg/pagination"
)

type stubFeed struct {
	page       *community.FeedPage
	likeIDs    []string
	likeErr    error
	lastFilter ads.FeedFilter
	lastParams pagination.Params
}

func (s *stubFeed) Feed(ctx context.Context, filter ads.FeedFilter, params pagination.Params) (*community.FeedPage, error) {
	s.lastFilter = filter
	s.lastParams = params
	return s.page, nil
}

func (s *stubFeed) Like(ctx context.Context, postID string) error {
	s.likeIDs = append(s.likeIDs, postID)
	return s.likeErr
}

func TestCommunityPostsForwardsFilters(t *testing.T) {
	feed := &stubFeed{page: &community.FeedPage{
		Posts:      []community.Post{{ID: "1700000000001"}},
		Pagination: pagination.Page{Page: 2, Limit: 12, Total: 30, TotalPages: 3},
		HasMore:    true,
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/community/posts?category=fashion&style=all&page=2&limit=12", nil)
	rec := httptest.NewRecorder()
	CommunityPosts(feed, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if feed.lastFilter.Category != "fashion" || feed.lastFilter.Style != "all" {
		t.Fatalf("filter not forwarded: %+v", feed.lastFilter)
	}
	if feed.lastParams.Page != 2 || feed.lastParams.Limit != 12 {
		t.Fatalf("pagination not forwarded: %+v", feed.lastParams)
	}

	var envelope struct {
		Data community.FeedPage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.HasMore || len(envelope.Data.Posts) != 1 {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}

func TestLikePost(t *testing.T) {
	feed := &stubFeed{}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("postId", "1700000000001")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/community/posts/1700000000001/like", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	LikePost(feed, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(feed.likeIDs) != 1 || feed.likeIDs[0] != "1700000000001" {
		t.Fatalf("like not forwarded: %v", feed.likeIDs)
	}
}

func TestLikePostNotFound(t *testing.T) {
	feed := &stubFeed{likeErr: pkgerrors.New(pkgerrors.CodeNotFound, "post not found")}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("postId", "missing")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/community/posts/missing/like", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	LikePost(feed, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
