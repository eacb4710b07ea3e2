// Package publish projects the canonical catalog into the read-only JSON
// documents served to the front-end.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"songcatalog/internal/fsutil"
	"songcatalog/internal/model"
)

// TimestampEntry mirrors one catalog row using the fixed Japanese field
// names the published JSON schema requires.
type TimestampEntry struct {
	Song         string  `json:"曲"`
	Artist       string  `json:"歌手-ユニット"`
	SearchKey    string  `json:"検索用"`
	Genre        string  `json:"ジャンル"`
	Timestamp    string  `json:"タイムスタンプ"`
	StreamDate   string  `json:"配信日"`
	VideoID      string  `json:"動画ID"`
	Confidence   float64 `json:"確度スコア"`
	ChannelID    string  `json:"チャンネルID"`
}

// TimestampsDocument is the top-level shape of timestamps_singing.json and
// timestamps_all.json.
type TimestampsDocument struct {
	LastUpdated string           `json:"last_updated"`
	TotalCount  int              `json:"total_count"`
	Timestamps  []TimestampEntry `json:"timestamps"`
}

// ChannelEntry is one element of channels.json.
type ChannelEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Paths names the three output files.
type Paths struct {
	Singing  string
	All      string
	Channels string
}

// entryFromRow projects a CatalogRow into its published JSON shape.
func entryFromRow(row model.CatalogRow) TimestampEntry {
	return TimestampEntry{
		Song:       row.Song,
		Artist:     row.Artist,
		SearchKey:  row.NormalizedSong,
		Genre:      row.Genre,
		Timestamp:  row.TimestampHMS,
		StreamDate: row.StreamDate,
		VideoID:    row.VideoID,
		Confidence: row.Confidence,
		ChannelID:  row.ChannelID,
	}
}

// Publish writes timestamps_singing.json, timestamps_all.json, and
// channels.json atomically. confidenceByVideo maps video_id to the
// video-level confidence score computed by the Confidence Scorer; a row
// whose video is missing from the map is treated as below threshold.
func Publish(rows []model.CatalogRow, channels []model.Channel, confidenceByVideo map[string]float64, threshold float64, runStart time.Time, paths Paths) error {
	lastUpdated := runStart.UTC().Format(time.RFC3339)

	all := make([]TimestampEntry, 0, len(rows))
	var singing []TimestampEntry
	for _, row := range rows {
		entry := entryFromRow(row)
		all = append(all, entry)
		if c, ok := confidenceByVideo[row.VideoID]; ok && c >= threshold {
			singing = append(singing, entry)
		}
	}

	if err := writeDocument(paths.All, TimestampsDocument{LastUpdated: lastUpdated, TotalCount: len(all), Timestamps: all}); err != nil {
		return fmt.Errorf("publish: write all timestamps: %w", err)
	}
	if err := writeDocument(paths.Singing, TimestampsDocument{LastUpdated: lastUpdated, TotalCount: len(singing), Timestamps: singing}); err != nil {
		return fmt.Errorf("publish: write singing timestamps: %w", err)
	}

	channelEntries := make([]ChannelEntry, 0, len(channels))
	for _, ch := range channels {
		channelEntries = append(channelEntries, ChannelEntry{ID: ch.ID, Name: ch.Name, ThumbnailURL: ch.ThumbnailURL})
	}
	if err := writeJSON(paths.Channels, channelEntries); err != nil {
		return fmt.Errorf("publish: write channels: %w", err)
	}

	return nil
}

func writeDocument(path string, doc TimestampsDocument) error {
	return writeJSON(path, doc)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFile(path, data)
}
