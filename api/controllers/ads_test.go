package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adsparkhq/adspark-backend/api/middleware"
	"github.com/adsparkhq/adspark-backend/internal/community"
	"github.com/adsparkhq/adspark-backend/internal/generation"
	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
)

type stubGenerator struct {
	imageInput  *generation.GenerateImageInput
	imageResult *generation.GenerateImageResult
	imageErr    error
	videoJobID  string
	videoURL    string
	videoErr    error
}

func (s *stubGenerator) GenerateImage(ctx context.Context, input generation.GenerateImageInput) (*generation.GenerateImageResult, error) {
	s.imageInput = &input
	return s.imageResult, s.imageErr
}

func (s *stubGenerator) GenerateVideo(ctx context.Context, user *models.User, jobID string) (string, error) {
	s.videoJobID = jobID
	return s.videoURL, s.videoErr
}

type stubLibrary struct {
	mine  []community.Post
	byID  map[string]*community.Post
	owner string
}

func (s *stubLibrary) ListMine(ctx context.Context, ownerEmail string) ([]community.Post, error) {
	s.owner = ownerEmail
	return s.mine, nil
}

func (s *stubLibrary) GetMine(ctx context.Context, ownerEmail, id string) (*community.Post, error) {
	if post, ok := s.byID[id]; ok && ownerEmail == s.owner {
		return post, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ad not found")
}

func authedRequest(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), user))
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "maker@example.com", DisplayName: "Maker"}
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestGenerateImageFromForm(t *testing.T) {
	generator := &stubGenerator{imageResult: &generation.GenerateImageResult{JobID: "1700000000001", FinalImageURL: "https://ik.example/final.png"}}
	handler := GenerateImage(generator, nil)

	body, contentType := multipartBody(t, map[string]string{
		"description": "lime sparkling water",
		"size":        "1:1",
	}, "product.png", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/generate-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(req, testUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if generator.imageInput == nil {
		t.Fatal("generator not invoked")
	}
	if generator.imageInput.User == nil || generator.imageInput.User.Email != "maker@example.com" {
		t.Fatalf("user not threaded: %+v", generator.imageInput.User)
	}
	if generator.imageInput.FileName != "product.png" || len(generator.imageInput.FileData) == 0 {
		t.Fatalf("file not threaded: %+v", generator.imageInput)
	}

	var envelope struct {
		Data generation.GenerateImageResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.JobID != "1700000000001" {
		t.Fatalf("unexpected response %+v", envelope.Data)
	}
}

func TestGenerateImageValidatesForm(t *testing.T) {
	generator := &stubGenerator{}
	handler := GenerateImage(generator, nil)

	body, contentType := multipartBody(t, map[string]string{"size": "1:1"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/generate-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(req, testUser()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if generator.imageInput != nil {
		t.Fatal("generator must not run on invalid form")
	}
}

func TestGenerateImageRequiresAuth(t *testing.T) {
	handler := GenerateImage(&stubGenerator{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/generate-image", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGenerateVideo(t *testing.T) {
	generator := &stubGenerator{videoURL: "https://ik.example/veo_video_1.mp4"}
	handler := GenerateVideo(generator, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/generate-video", strings.NewReader(`{"ad_id":"1700000000001"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(req, testUser()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if generator.videoJobID != "1700000000001" {
		t.Fatalf("job id not threaded: %q", generator.videoJobID)
	}
	var envelope struct {
		Data generateVideoResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.VideoURL != "https://ik.example/veo_video_1.mp4" {
		t.Fatalf("unexpected response %+v", envelope.Data)
	}
}

func TestGenerateVideoValidatesBody(t *testing.T) {
	handler := GenerateVideo(&stubGenerator{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/generate-video", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(req, testUser()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListAndGetAds(t *testing.T) {
	user := testUser()
	library := &stubLibrary{
		mine:  []community.Post{{ID: "1700000000001"}},
		byID:  map[string]*community.Post{"1700000000001": {ID: "1700000000001"}},
		owner: user.Email,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ads", nil)
	rec := httptest.NewRecorder()
	ListAds(library, nil).ServeHTTP(rec, authedRequest(req, user))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if library.owner != user.Email {
		t.Fatalf("owner email not threaded: %q", library.owner)
	}

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("adId", "1700000000001")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ads/1700000000001", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec = httptest.NewRecorder()
	GetAd(library, nil).ServeHTTP(rec, authedRequest(req, user))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}

	routeCtx = chi.NewRouteContext()
	routeCtx.URLParams.Add("adId", "missing")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ads/missing", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec = httptest.NewRecorder()
	GetAd(library, nil).ServeHTTP(rec, authedRequest(req, user))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
}
