package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adsparkhq/adspark-backend/pkg/config"
	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.replicate.com/v1"
	defaultPollInterval        = 2 * time.Second
	defaultPollTimeout         = 10 * time.Minute
	errorBodyReadLimit   int64 = 2048
	defaultClientTimeout       = 30 * time.Second
)

var (
	errAPITokenRequired = errors.New("replicate api token is required")
)

// Prediction statuses reported by the predictions API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Client wraps the Replicate predictions API used for image and video synthesis.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiToken     string
	pollInterval time.Duration
	pollTimeout  time.Duration
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

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithPollInterval overrides how often RunAndWait checks a pending prediction.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient builds the predictions client from config.
func NewClient(cfg config.ReplicateConfig, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(cfg.APIToken)
	if trimmedToken == "" {
		return nil, errAPITokenRequired
	}

	client := &Client{
		apiToken:     trimmedToken,
		baseURL:      defaultBaseURL,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		httpClient:   &http.Client{Timeout: defaultClientTimeout},
	}

	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}
	if cfg.PollInterval > 0 {
		client.pollInterval = cfg.PollInterval
	}
	if cfg.PollTimeout > 0 {
		client.pollTimeout = cfg.PollTimeout
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Prediction is the subset of the predictions API payload the pipelines use.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
}

// Done reports whether the prediction reached a terminal status.
func (p Prediction) Done() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// FirstOutput returns the first URL from the prediction output. The API
// returns either a single string or an array of strings depending on model.
func (p Prediction) FirstOutput() (string, error) {
	if len(p.Output) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeUpstreamContract, "prediction output is empty")
	}

	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return "", pkgerrors.New(pkgerrors.CodeUpstreamContract, "prediction output is empty")
		}
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(p.Output, &many); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstreamContract, err, "decode prediction output")
	}
	for _, out := range many {
		if strings.TrimSpace(out) != "" {
			return out, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeUpstreamContract, "prediction output is empty")
}

// Create starts a prediction for the given model with the provided input.
func (c *Client) Create(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "replicate client not configured")
	}
	if strings.TrimSpace(model) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prediction model is required")
	}
	if len(input) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prediction input is required")
	}

	payload, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal prediction request")
	}

	url := c.buildURL(fmt.Sprintf("models/%s/predictions", strings.Trim(model, "/")))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build prediction request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	return c.do(httpReq, http.StatusCreated, http.StatusOK)
}

// Get fetches the current state of a prediction.
func (c *Client) Get(ctx context.Context, id string) (*Prediction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "replicate client not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prediction id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("predictions/"+trimmed), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build prediction status request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	return c.do(httpReq, http.StatusOK)
}

// RunAndWait creates a prediction and polls it until it reaches a terminal
// status, the poll timeout elapses, or the context is canceled. A failed or
// canceled prediction returns an upstream failure error.
func (c *Client) RunAndWait(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	prediction, err := c.Create(ctx, model, input)
	if err != nil {
		return nil, err
	}
	if prediction.Done() {
		return finalize(prediction)
	}

	deadline := time.NewTimer(c.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, ctx.Err(), "prediction wait canceled")
		case <-deadline.C:
			return nil, pkgerrors.New(pkgerrors.CodeUpstreamFailure, fmt.Sprintf("prediction %s timed out after %s", prediction.ID, c.pollTimeout))
		case <-ticker.C:
			prediction, err = c.Get(ctx, prediction.ID)
			if err != nil {
				return nil, err
			}
			if prediction.Done() {
				return finalize(prediction)
			}
		}
	}
}

func finalize(p *Prediction) (*Prediction, error) {
	if p.Status == StatusSucceeded {
		return p, nil
	}
	msg := fmt.Sprintf("prediction %s %s", p.ID, p.Status)
	if p.Error != nil && strings.TrimSpace(*p.Error) != "" {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(*p.Error))
	}
	return nil, pkgerrors.New(pkgerrors.CodeUpstreamFailure, msg)
}

func (c *Client) do(req *http.Request, acceptable ...int) (*Prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, err, "execute prediction request")
	}
	defer func() { _ = resp.Body.Close() }()

	ok := false
	for _, status := range acceptable {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFailure, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "prediction request failed")
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamContract, err, "decode prediction response")
	}
	if strings.TrimSpace(prediction.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamContract, "prediction response missing id")
	}

	return &prediction, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
