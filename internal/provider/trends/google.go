// Package trends reads trending search topics from the Google Trends RSS feed.
package trends

import (
	"context"
	"encoding/xml"
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

const providerName = "trends"

// maxFeedBytes bounds how much of the feed is read.
const maxFeedBytes = 4 << 20

type rss struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Google fetches the daily trending feed for a region.
type Google struct {
	client  httputil.Doer
	feedURL string
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

var _ provider.TrendSource = (*Google)(nil)

// NewGoogle reads feedURL and keeps at most limit topics per fetch.
func NewGoogle(client httputil.Doer, feedURL string, limit int, timeout time.Duration, logger *slog.Logger) *Google {
	return &Google{
		client:  client,
		feedURL: feedURL,
		limit:   limit,
		timeout: timeout,
		logger:  logger,
	}
}

// Topics returns at most limit distinct topic titles in feed order.
func (g *Google) Topics(ctx context.Context, region string) ([]string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	u, err := url.Parse(g.feedURL)
	if err != nil {
		return nil, fmt.Errorf("trends: parsing feed url: %w", err)
	}
	if region != "" {
		q := u.Query()
		q.Set("geo", region)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("trends: building request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, provider.TransportFailure(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, provider.StatusFailure(providerName, resp.StatusCode, string(body))
	}

	var feed rss
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&feed); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, provider.TransportFailure(providerName, err)
		}
		return nil, provider.MalformedFailure(providerName, fmt.Errorf("decoding feed: %w", err))
	}

	topics := make([]string, 0, g.limit)
	seen := make(map[string]struct{})
	for _, item := range feed.Channel.Items {
		if g.limit > 0 && len(topics) == g.limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		topics = append(topics, title)
	}

	g.logger.Debug("fetched trending topics",
		slog.String("region", region),
		slog.Int("items", len(feed.Channel.Items)),
		slog.Int("topics", len(topics)),
	)

	return topics, nil
}
