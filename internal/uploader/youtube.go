// Package uploader publishes rendered videos to the owner's YouTube channel.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/sakif/shortsgen/internal/httputil"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/pipeline"
	"github.com/sakif/shortsgen/internal/provider"
)

const (
	providerName = "youtube"
	downloadName = "video-download"
)

// Config sets the metadata applied to every uploaded video.
type Config struct {
	PrivacyStatus string
	CategoryID    string
	Tags          []string
	Timeout       time.Duration
	// Endpoint overrides the YouTube API base URL.
	Endpoint string
}

// YouTube streams a job's rendered video from the provider's download URL
// into a YouTube Data API insert call, authenticated as the job's owner.
type YouTube struct {
	oauth    *oauth2.Config
	download httputil.Doer
	cfg      Config
	logger   *slog.Logger
}

var _ pipeline.Uploader = (*YouTube)(nil)

// NewYouTube returns an uploader that refreshes tokens with oauthCfg and
// downloads rendered videos through download.
func NewYouTube(oauthCfg *oauth2.Config, download httputil.Doer, cfg Config, logger *slog.Logger) *YouTube {
	return &YouTube{
		oauth:    oauthCfg,
		download: download,
		cfg:      cfg,
		logger:   logger,
	}
}

// Upload publishes job's video to user's channel. When the access token had
// to be refreshed, the new token is returned so the caller can persist it.
func (y *YouTube) Upload(ctx context.Context, user *model.User, job *model.GenerationJob) (*pipeline.UploadResult, error) {
	if job.VideoURL == "" {
		return nil, provider.MalformedFailure(downloadName, errors.New("job has no video url"))
	}
	if y.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.cfg.Timeout)
		defer cancel()
	}

	ts := y.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
		TokenType:    "Bearer",
	})

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if y.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("uploader: creating youtube service: %w", err)
	}

	body, err := y.open(ctx, job.VideoURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncateRunes(job.Title, 100),
			Description: job.Description,
			Tags:        y.cfg.Tags,
			CategoryId:  y.cfg.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: y.cfg.PrivacyStatus,
		},
	}

	start := time.Now()
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(body).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	y.logger.Info("youtube upload complete",
		slog.String("job_id", job.ID),
		slog.String("youtube_id", uploaded.Id),
		slog.Duration("took", time.Since(start)),
	)

	res := &pipeline.UploadResult{VideoID: uploaded.Id}
	if tok, err := ts.Token(); err == nil && tok.AccessToken != user.AccessToken {
		res.AccessToken = tok.AccessToken
		res.RefreshToken = tok.RefreshToken
		res.Expiry = tok.Expiry
	}
	return res, nil
}

func (y *YouTube) open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("uploader: building download request: %w", err)
	}

	resp, err := y.download.Do(req)
	if err != nil {
		return nil, provider.TransportFailure(downloadName, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		_ = resp.Body.Close()
		f := provider.StatusFailure(downloadName, resp.StatusCode, string(msg))
		// A refused download is an expired signed URL, not a revoked grant.
		if f.Kind == provider.KindAuth {
			f.Kind = provider.KindStatus
		}
		return nil, f
	}
	return resp.Body, nil
}

func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		f := &provider.Failure{Provider: providerName, Kind: provider.KindAuth, Err: err}
		if retrieveErr.Response != nil {
			f.StatusCode = retrieveErr.Response.StatusCode
		}
		return f
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		f := provider.StatusFailure(providerName, apiErr.Code, apiErr.Message)
		// YouTube reports exhausted quota as 403; only a rejected token is permanent.
		if apiErr.Code == http.StatusForbidden {
			f.Kind = provider.KindStatus
		}
		return f
	}

	return provider.TransportFailure(providerName, err)
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
