// Package platform wraps the video-platform Data API (C1): listing channel
// uploads, fetching video metadata, and paging top-level comments, with
// retry, rate-limit, circuit-breaker, and advisory-quota policy applied
// uniformly across all three operations.
package platform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"songcatalog/internal/model"
	"songcatalog/internal/retry"
	"songcatalog/internal/transport"
)

// channelIDPattern matches a well-formed channel ID: "UC" followed by 22
// URL-safe base64 characters.
var channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// MaxVideoBatch is the maximum number of video IDs accepted by a single
// videos.list call.
const MaxVideoBatch = 50

// apiCallTimeout bounds each individual API call attempt, independent of
// the overall retry budget.
const apiCallTimeout = 30 * time.Second

// DefaultRetryConfig is exponential backoff with jitter, capped at 3
// attempts in total (2 retries) and a 30s ceiling, base delay 1s.
func DefaultRetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:     2,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

// Client wraps the YouTube Data API v3 SDK with the resilience stack from
// internal/transport and an advisory QuotaTracker.
type Client struct {
	service *youtube.Service
	http    *transport.Client
	quota   *QuotaTracker
	retry   retry.Config
}

// Config configures a platform Client.
type Config struct {
	APIKey          string
	DailyQuotaUnits int
	Transport       *transport.Config
	Retry           retry.Config
}

// New creates a platform client. It routes every SDK call through the
// shared transport.Client (rate limiting, circuit breaking, retry) by
// handing the SDK constructor our own *http.Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &OpError{Op: "new", Err: fmt.Errorf("api key required")}
	}

	httpClient := transport.New(cfg.Transport)

	service, err := youtube.NewService(ctx,
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient.HTTPClient()),
	)
	if err != nil {
		return nil, &OpError{Op: "new", Err: err}
	}

	retryCfg := cfg.Retry
	if retryCfg == (retry.Config{}) {
		retryCfg = DefaultRetryConfig()
	}

	return &Client{
		service: service,
		http:    httpClient,
		quota:   NewQuotaTracker(cfg.DailyQuotaUnits),
		retry:   retryCfg,
	}, nil
}

// Close releases the underlying HTTP transport's idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// QuotaRemaining exposes the advisory quota tracker for diagnostics.
func (c *Client) QuotaRemaining() int {
	return c.quota.Remaining()
}

// ListUploads enumerates a channel's uploads in reverse chronological
// order, stopping strictly after `since`. It resolves the channel's
// uploads playlist once, then pages playlistItems.list.
func (c *Client) ListUploads(ctx context.Context, channelID string, since time.Time) ([]model.VideoRef, error) {
	if !channelIDPattern.MatchString(channelID) {
		return nil, &OpError{Op: "list_uploads", Err: fmt.Errorf("invalid channel id %q", channelID)}
	}

	playlistID, err := c.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var refs []model.VideoRef
	pageToken := ""

	for {
		if err := c.quota.Reserve(UnitsListUploadsPage); err != nil {
			return refs, &OpError{Op: "list_uploads", Err: err}
		}

		var page *youtube.PlaylistItemListResponse
		err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
			defer cancel()
			resp, err := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(50).
				PageToken(pageToken).
				Context(callCtx).
				Do()
			if err != nil {
				return classify(err)
			}
			page = resp
			return nil
		})
		if err != nil {
			return refs, &OpError{Op: "list_uploads", Err: err}
		}

		stop := false
		for _, item := range page.Items {
			if item.Snippet == nil {
				continue
			}
			published, perr := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if perr != nil {
				continue
			}
			if !published.After(since) {
				stop = true
				break
			}
			refs = append(refs, model.VideoRef{ID: item.ContentDetails.VideoId, PublishedAt: published})
		}

		if stop || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return refs, nil
}

func (c *Client) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	if err := c.quota.Reserve(1); err != nil {
		return "", &OpError{Op: "resolve_uploads_playlist", Err: err}
	}

	var playlistID string
	err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
		defer cancel()
		resp, err := c.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(callCtx).
			Do()
		if err != nil {
			return classify(err)
		}
		if len(resp.Items) == 0 {
			return ErrNotFound
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	if err != nil {
		return "", &OpError{Op: "resolve_uploads_playlist", Err: err}
	}
	return playlistID, nil
}

// GetVideos fetches metadata for the given video IDs in batches of at most
// MaxVideoBatch.
func (c *Client) GetVideos(ctx context.Context, ids []string) ([]model.Video, error) {
	var videos []model.Video

	for start := 0; start < len(ids); start += MaxVideoBatch {
		end := start + MaxVideoBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		if err := c.quota.Reserve(UnitsGetVideosBatch); err != nil {
			return videos, &OpError{Op: "get_videos", Err: err}
		}

		var resp *youtube.VideoListResponse
		err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
			defer cancel()
			r, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
				Id(batch...).
				Context(callCtx).
				Do()
			if err != nil {
				return classify(err)
			}
			resp = r
			return nil
		})
		if err != nil {
			return videos, &OpError{Op: "get_videos", Err: err}
		}

		for _, item := range resp.Items {
			videos = append(videos, videoFromItem(item))
		}
	}

	return videos, nil
}

func videoFromItem(item *youtube.Video) model.Video {
	v := model.Video{ID: item.Id}
	if item.Snippet != nil {
		v.ChannelID = item.Snippet.ChannelId
		v.Title = item.Snippet.Title
		v.Description = item.Snippet.Description
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	if item.ContentDetails != nil {
		v.DurationS = parseISO8601Duration(item.ContentDetails.Duration)
	}
	if item.Statistics != nil {
		v.ViewCount = int64(item.Statistics.ViewCount)
		v.CommentCount = int64(item.Statistics.CommentCount)
	}
	return v
}

// isoDurationPattern parses the subset of ISO-8601 durations the Data API
// returns for video length ("PT1H2M3S", "PT45S", ...). No third-party
// duration parser appears anywhere in the retrieval pack, so this one
// concern is implemented on stdlib regexp per the grounding ledger.
var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

func parseISO8601Duration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + sec
}

// ListComments fetches up to max top-level comments for a video, ordered
// by relevance.
func (c *Client) ListComments(ctx context.Context, videoID string, max int) ([]model.Comment, error) {
	var comments []model.Comment
	pageToken := ""

	for len(comments) < max {
		if err := c.quota.Reserve(UnitsListCommentsPage); err != nil {
			return comments, &OpError{Op: "list_comments", Err: err}
		}

		var resp *youtube.CommentThreadListResponse
		err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, apiCallTimeout)
			defer cancel()
			call := c.service.CommentThreads.List([]string{"snippet"}).
				VideoId(videoID).
				Order("relevance").
				MaxResults(int64(min(100, max-len(comments)))).
				PageToken(pageToken).
				Context(callCtx)

			r, err := call.Do()
			if err != nil {
				return classify(err)
			}
			resp = r
			return nil
		})
		if err != nil {
			// Comments disabled or video not found: skip, per NotFound policy.
			if err == ErrNotFound {
				return comments, nil
			}
			return comments, &OpError{Op: "list_comments", Err: err}
		}

		for _, thread := range resp.Items {
			if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			s := thread.Snippet.TopLevelComment.Snippet
			published, _ := time.Parse(time.RFC3339, s.PublishedAt)
			comments = append(comments, model.Comment{
				VideoID:     videoID,
				Text:        s.TextOriginal,
				LikeCount:   int64(s.LikeCount),
				PublishedAt: published,
			})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(comments) > max {
		comments = comments[:max]
	}
	return comments, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// isRetryable classifies errors for the retry package: QuotaExceeded and
// NotFound are permanent; everything else (Transient) is retried.
func isRetryable(err error) bool {
	if err == ErrQuotaExceeded || err == ErrNotFound {
		return false
	}
	return true
}

// classify maps a raw SDK error to the taxonomy sentinel: 403 is treated
// as quota/forbidden, 404 as not-found, 5xx and network errors as
// transient. The SDK wraps transport errors (e.g. inside a *url.Error), so
// this unwraps with errors.As rather than asserting the error's own type.
func classify(err error) error {
	var rle *transport.RateLimitError
	if errors.As(err, &rle) {
		if rle.StatusCode >= 500 {
			return ErrTransient
		}
		return ErrQuotaExceeded
	}

	var he *transport.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == 403:
			return ErrQuotaExceeded
		case he.StatusCode == 404:
			return ErrNotFound
		case he.StatusCode >= 500:
			return ErrTransient
		}
	}
	return ErrTransient
}
