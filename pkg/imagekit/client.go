package imagekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adsparkhq/adspark-backend/pkg/config"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
)

const (
	defaultUploadURL           = "https://upload.imagekit.io/api/v1/files/upload"
	defaultAPIBaseURL          = "https://api.imagekit.io/v1"
	errorBodyReadLimit   int64 = 2048
	defaultClientTimeout       = 120 * time.Second

	// Delivery transform strings appended to stored asset URLs.
	ImageTransform = "w-auto,h-auto,q-100,f-auto"
	VideoTransform = "q-100,f-auto"
)

var (
	errPrivateKeyRequired = errors.New("imagekit private key is required")
)

// Client wraps the ImageKit media library APIs used for durable asset storage.
type Client struct {
	httpClient *http.Client
	uploadURL  string
	apiBaseURL string
	privateKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUploadURL overrides the upload endpoint.
func WithUploadURL(uploadURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(uploadURL)
		if trimmed != "" {
			c.uploadURL = trimmed
		}
	}
}

// WithAPIBaseURL overrides the management API base URL.
func WithAPIBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.apiBaseURL = trimmed
		}
	}
}

// NewClient builds the ImageKit client from config.
func NewClient(cfg config.ImageKitConfig, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(cfg.PrivateKey)
	if trimmedKey == "" {
		return nil, errPrivateKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	client := &Client{
		privateKey: trimmedKey,
		uploadURL:  defaultUploadURL,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}

	if trimmed := strings.TrimSpace(cfg.UploadURL); trimmed != "" {
		client.uploadURL = trimmed
	}
	if trimmed := strings.TrimSpace(cfg.APIBaseURL); trimmed != "" {
		client.apiBaseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// UploadRequest describes a media library upload. Exactly one of SourceURL
// or Data must be set; with SourceURL, ImageKit fetches the remote asset
// server side.
type UploadRequest struct {
	FileName  string
	Folder    string
	SourceURL string
	Data      []byte
}

// UploadResult holds the stored asset handle returned by the upload API.
type UploadResult struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

// Upload stores an asset in the media library.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "imagekit client not configured")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload file name is required")
	}
	hasURL := strings.TrimSpace(req.SourceURL) != ""
	hasData := len(req.Data) > 0
	if hasURL == hasData {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of source url or data is required")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if hasURL {
		if err := writer.WriteField("file", strings.TrimSpace(req.SourceURL)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write upload file field")
		}
	} else {
		part, err := writer.CreateFormFile("file", req.FileName)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create upload file part")
		}
		if _, err := part.Write(req.Data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write upload file part")
		}
	}

	if err := writer.WriteField("fileName", req.FileName); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write upload fileName field")
	}
	if folder := strings.TrimSpace(req.Folder); folder != "" {
		if err := writer.WriteField("folder", folder); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write upload folder field")
		}
	}
	if err := writer.WriteField("useUniqueFileName", "true"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write upload flags")
	}
	if err := writer.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize upload body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build upload request")
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, err, "execute upload request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "upload request failed")
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamContract, err, "decode upload response")
	}
	if strings.TrimSpace(result.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamContract, "upload response missing url")
	}

	return &result, nil
}

// Delete removes a stored asset by its file ID.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "imagekit client not configured")
	}
	trimmed := strings.TrimSpace(fileID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file id is required")
	}

	endpoint := fmt.Sprintf("%s/files/%s", strings.TrimRight(c.apiBaseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build delete request")
	}
	httpReq.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, err, "execute delete request")
	}
	defer func() { _ = resp.Body.Close() }()

	// 404 counts as deleted so cleanup retries stay idempotent.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "delete request failed")
	}

	return nil
}

// DeliveryURL appends the transform parameter to a stored asset URL.
func DeliveryURL(rawURL, transform string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || strings.TrimSpace(transform) == "" {
		return trimmed
	}
	sep := "?"
	if strings.Contains(trimmed, "?") {
		sep = "&"
	}
	return trimmed + sep + "tr=" + transform
}
