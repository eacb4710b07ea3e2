// Package model defines the domain entities shared across the extraction
// pipeline, the catalog store, and the incremental orchestrator.
package model

import (
	"fmt"
	"time"
)

// Channel is a configured video-platform channel.
type Channel struct {
	ID      string `json:"channel_id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// ThumbnailURL and Tier are additive display fields never consulted by
	// any core operation. ThumbnailURL is surfaced by the Publisher's
	// channels.json projection; Tier is loaded from the channel list but not
	// published.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Tier         string `json:"tier,omitempty"`
}

// VideoRef is the lightweight reference returned by upload enumeration,
// before the full metadata batch fetch.
type VideoRef struct {
	ID          string
	PublishedAt time.Time
}

// Video is platform metadata for one upload.
type Video struct {
	ID            string
	ChannelID     string
	Title         string
	Description   string
	PublishedAt   time.Time
	DurationS     int
	ViewCount     int64
	CommentCount  int64
}

// Comment is a single top-level comment on a video. No author-identifying
// field beyond an opaque hash is retained; raw author identity never flows
// past extraction.
type Comment struct {
	VideoID     string
	AuthorHash  string
	Text        string
	LikeCount   int64
	PublishedAt time.Time
}

// Origin tags where a CandidateSetlist came from: the video description, or
// a specific comment (by index into the fetched comment slice).
type Origin struct {
	Kind      OriginKind
	Index     int // valid when Kind == OriginComment
	LikeCount int64
	Published time.Time
}

// OriginKind distinguishes description-sourced from comment-sourced candidates.
type OriginKind int

const (
	OriginDescription OriginKind = iota
	OriginComment
)

func (o OriginKind) String() string {
	if o == OriginDescription {
		return "description"
	}
	return "comment"
}

// Tag renders the origin as the lexicographically-comparable string used
// for tie-breaking in the setlist selector ("description" or "commentNN").
func (o Origin) Tag() string {
	if o.Kind == OriginDescription {
		return "description"
	}
	return fmt.Sprintf("comment%02d", o.Index)
}

// TimestampLine is one parsed (offset, song, artist) triple extracted from
// a single source line.
type TimestampLine struct {
	OffsetS int
	Song    string
	Artist  string // empty when unresolved
	Raw     string
}

// CandidateSetlist is an ordered, per-video, non-persisted sequence of
// TimestampLine produced by the Timestamp Parser from one text source.
type CandidateSetlist struct {
	Origin  Origin
	Lines   []TimestampLine
	Quality float64
}

// ArtistRatio returns the fraction of lines that carry a non-empty artist.
func (c *CandidateSetlist) ArtistRatio() float64 {
	if len(c.Lines) == 0 {
		return 0
	}
	n := 0
	for _, l := range c.Lines {
		if l.Artist != "" {
			n++
		}
	}
	return float64(n) / float64(len(c.Lines))
}

// Genre labels assigned by the classifier.
const (
	GenreVocaloid = "Vocaloid"
	GenreJPop     = "J-POP"
	GenreAnime    = "アニメ"
	GenreOther    = "その他"
)

// CatalogRow is the persisted, canonical row. It is never mutated in place;
// updates replace the row keyed by (VideoID, OffsetS).
type CatalogRow struct {
	No              int
	Song            string
	Artist          string
	NormalizedSong  string
	NormalizedArtist string
	Genre           string
	OffsetS         int
	TimestampHMS    string
	StreamDate      string // ISO-8601 date, JST (UTC+9)
	VideoID         string
	ChannelID       string
	Confidence      float64
}

// Key returns the primary key used for merge: (video_id, offset_s).
func (r CatalogRow) Key() CatalogRowKey {
	return CatalogRowKey{VideoID: r.VideoID, OffsetS: r.OffsetS}
}

// CatalogRowKey is the (video_id, offset_s) primary key.
type CatalogRowKey struct {
	VideoID string
	OffsetS int
}

// WatermarkStatus is the outcome of the most recent channel run.
type WatermarkStatus string

const (
	WatermarkOK      WatermarkStatus = "ok"
	WatermarkPartial WatermarkStatus = "partial"
	WatermarkFailed  WatermarkStatus = "failed"
)

// Watermark is the per-channel incremental-sync boundary marker.
type Watermark struct {
	ChannelID       string          `json:"channel_id"`
	LastRunAt       time.Time       `json:"last_run_at"`
	LastVideoID     string          `json:"last_video_id,omitempty"`
	LastPublishedAt time.Time       `json:"last_published_at"`
	Status          WatermarkStatus `json:"status"`
	LastError       string          `json:"last_error,omitempty"`
}

// Advance updates the watermark to reflect a successfully processed video,
// enforcing the monotonicity property: LastPublishedAt never moves backward.
func (w *Watermark) Advance(videoID string, publishedAt time.Time) {
	if publishedAt.Before(w.LastPublishedAt) {
		return
	}
	w.LastVideoID = videoID
	w.LastPublishedAt = publishedAt
}
