// Package tavus submits scripts to the Tavus video API and reads back job state.
package tavus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/shortsgen/internal/httputil"
	"github.com/sakif/shortsgen/internal/provider"
)

const providerName = "tavus"

// Statuses reported by GET /v2/videos/{id}.
const (
	StatusQueued     = "queued"
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusDeleted    = "deleted"
	StatusError      = "error"
)

type createVideoRequest struct {
	Script      string `json:"script"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ReplicaID   string `json:"replica_id"`
}

type createVideoResponse struct {
	VideoID string `json:"video_id"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
}

type videoResponse struct {
	VideoID       string `json:"video_id"`
	Status        string `json:"status"`
	DownloadURL   string `json:"download_url"`
	HostedURL     string `json:"hosted_url"`
	StatusDetails string `json:"status_details"`
}

// Config identifies the Tavus account and replica. Timeout bounds each call.
type Config struct {
	APIKey    string
	BaseURL   string
	ReplicaID string
	Timeout   time.Duration
}

// Client implements provider.VideoGenerator.
type Client struct {
	http   httputil.Doer
	cfg    Config
	logger *slog.Logger
}

var _ provider.VideoGenerator = (*Client)(nil)

// NewClient returns a Tavus client sending requests through httpClient.
func NewClient(httpClient httputil.Doer, cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVideo requests synthesis of req.Script. A 200 or 201 carrying a job
// id is the only success.
func (c *Client) CreateVideo(ctx context.Context, req provider.VideoRequest) (*provider.VideoJob, error) {
	data, err := json.Marshal(createVideoRequest{
		Script:      req.Script,
		Title:       req.Title,
		Description: req.Description,
		ReplicaID:   c.cfg.ReplicaID,
	})
	if err != nil {
		return nil, fmt.Errorf("tavus: marshal request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/videos", data)
	if err != nil {
		return nil, err
	}

	var resp createVideoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, provider.MalformedFailure(providerName, fmt.Errorf("decoding response: %w", err))
	}

	id := resp.VideoID
	if id == "" {
		id = resp.JobID
	}
	if id == "" {
		return nil, provider.MalformedFailure(providerName, errors.New("response has no video_id"))
	}

	c.logger.Debug("video requested",
		slog.String("video_id", id),
		slog.String("status", resp.Status),
	)

	return &provider.VideoJob{
		ID:     id,
		Status: resp.Status,
		Raw:    json.RawMessage(raw),
	}, nil
}

// GetVideo fetches the current state of video id.
func (c *Client) GetVideo(ctx context.Context, id string) (*provider.VideoStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/videos/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var resp videoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, provider.MalformedFailure(providerName, fmt.Errorf("decoding response: %w", err))
	}
	if resp.Status == "" {
		return nil, provider.MalformedFailure(providerName, errors.New("response has no status"))
	}
	if resp.VideoID == "" {
		resp.VideoID = id
	}

	return &provider.VideoStatus{
		ID:          resp.VideoID,
		Status:      resp.Status,
		State:       stateOf(resp.Status),
		DownloadURL: resp.DownloadURL,
		HostedURL:   resp.HostedURL,
		Details:     resp.StatusDetails,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("tavus: create request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, provider.TransportFailure(providerName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.TransportFailure(providerName, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, provider.StatusFailure(providerName, resp.StatusCode, truncate(string(respBody), 512))
	}

	return respBody, nil
}

func stateOf(status string) provider.VideoState {
	switch status {
	case StatusQueued, StatusGenerating:
		return provider.VideoInProgress
	case StatusReady:
		return provider.VideoReady
	case StatusError, StatusDeleted:
		return provider.VideoFailed
	default:
		return provider.VideoUnknown
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
