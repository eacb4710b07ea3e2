// Package catalog owns the canonical tabular dataset: dedup, sort, merge,
// and the on-disk CSV format consumed by the Publisher.
package catalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"songcatalog/internal/fsutil"
	"songcatalog/internal/model"
	"songcatalog/internal/timestamp"
)

// Header is the stability-contract header row: downstream tooling parses
// by position, so column order and names never change.
var Header = []string{"No", "曲", "歌手-ユニット", "検索用", "ジャンル", "タイムスタンプ", "配信日", "動画ID", "確度スコア", "チャンネルID"}

// utf8BOM is prepended to every written catalog file.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SortOrder enumerates the supported catalog orderings.
type SortOrder int

const (
	OrderDateDesc SortOrder = iota
	OrderDateAsc
	OrderSongAsc
	OrderArtistAsc
)

// Catalog is the in-memory canonical dataset, backed by an ordered slice
// plus a primary-key index for O(1) merge lookups.
type Catalog struct {
	rows  []model.CatalogRow
	index map[model.CatalogRowKey]int
	lock  *fsutil.FileLock
}

// IntegrityError signals a malformed row encountered while loading the
// catalog; Load returns it instead of a partial catalog. Merge does not
// validate rows and never produces it.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string { return fmt.Sprintf("catalog integrity: %s: %v", e.Op, e.Err) }
func (e *IntegrityError) Unwrap() error { return e.Err }

// Load reads the canonical file at path; a missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	c := &Catalog{index: make(map[model.CatalogRowKey]int), lock: fsutil.NewFileLock(path)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return c, nil
	}

	for _, rec := range records[1:] { // skip header
		row, err := rowFromRecord(rec)
		if err != nil {
			return nil, &IntegrityError{Op: "load", Err: err}
		}
		c.rows = append(c.rows, row)
		c.index[row.Key()] = len(c.rows) - 1
	}

	return c, nil
}

func rowFromRecord(rec []string) (model.CatalogRow, error) {
	if len(rec) != len(Header) {
		return model.CatalogRow{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(rec))
	}
	offsetS, err := timestamp.Parse(rec[5])
	if err != nil {
		return model.CatalogRow{}, err
	}
	var confidence float64
	if _, err := fmt.Sscanf(rec[8], "%f", &confidence); err != nil {
		return model.CatalogRow{}, fmt.Errorf("parse confidence %q: %w", rec[8], err)
	}

	song, artist := rec[1], rec[2]
	return model.CatalogRow{
		Song:             song,
		Artist:           artist,
		NormalizedSong:   Normalize(song),
		NormalizedArtist: Normalize(artist),
		Genre:            rec[4],
		OffsetS:          offsetS,
		TimestampHMS:     rec[5],
		StreamDate:       rec[6],
		VideoID:          rec[7],
		Confidence:       confidence,
		ChannelID:        rec[9],
	}, nil
}

// Merge inserts rows whose key is absent, and updates in place only when
// the new row strictly improves confidence or fills a previously-empty
// artist. Idempotent: merging the same rows twice has no further effect.
func (c *Catalog) Merge(newRows []model.CatalogRow) {
	for _, row := range newRows {
		key := row.Key()
		if idx, ok := c.index[key]; ok {
			existing := c.rows[idx]
			if row.Confidence > existing.Confidence || (existing.Artist == "" && row.Artist != "") {
				c.rows[idx] = row
			}
			continue
		}
		c.rows = append(c.rows, row)
		c.index[key] = len(c.rows) - 1
	}
}

// DedupeGlobal collapses rows whose (normalized_song, normalized_artist,
// video_id) collide into the one with highest confidence, tie-broken by
// earliest offset_s.
func (c *Catalog) DedupeGlobal() {
	type dedupeKey struct {
		song, artist, videoID string
	}

	best := make(map[dedupeKey]int) // value -> index into winners
	var winners []model.CatalogRow

	for _, row := range c.rows {
		k := dedupeKey{song: row.NormalizedSong, artist: row.NormalizedArtist, videoID: row.VideoID}
		if idx, ok := best[k]; ok {
			if isBetterDedupe(row, winners[idx]) {
				winners[idx] = row
			}
			continue
		}
		best[k] = len(winners)
		winners = append(winners, row)
	}

	c.rebuild(winners)
}

func isBetterDedupe(candidate, current model.CatalogRow) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return candidate.OffsetS < current.OffsetS
}

func (c *Catalog) rebuild(rows []model.CatalogRow) {
	c.rows = rows
	c.index = make(map[model.CatalogRowKey]int, len(rows))
	for i, row := range rows {
		c.index[row.Key()] = i
	}
}

// Sort orders rows in place per the requested key order. Song/artist
// orderings use Japanese collation; the in-memory order never matters to
// callers except as input to Save's serialization.
func (c *Catalog) Sort(order SortOrder) {
	col := collate.New(language.Japanese)

	sort.SliceStable(c.rows, func(i, j int) bool {
		a, b := c.rows[i], c.rows[j]
		switch order {
		case OrderDateDesc:
			return a.StreamDate > b.StreamDate
		case OrderDateAsc:
			return a.StreamDate < b.StreamDate
		case OrderSongAsc:
			return col.CompareString(a.NormalizedSong, b.NormalizedSong) < 0
		case OrderArtistAsc:
			return col.CompareString(a.NormalizedArtist, b.NormalizedArtist) < 0
		default:
			return false
		}
	})

	// Re-sync the index after reordering.
	c.rebuild(c.rows)
}

// Rows returns the rows currently held, in their current in-memory order.
func (c *Catalog) Rows() []model.CatalogRow {
	return c.rows
}

// Save writes the catalog atomically, assigning 1-based No at serialization
// time only (it is not an identity).
func (c *Catalog) Save(path string) error {
	if err := c.lock.Lock(10 * time.Second); err != nil {
		return fmt.Errorf("catalog: acquire lock: %w", err)
	}
	defer c.lock.Unlock()

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return err
	}
	for i, row := range c.rows {
		rec := recordFromRow(i+1, row)
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return fsutil.WriteFile(path, buf.Bytes())
}

func recordFromRow(no int, row model.CatalogRow) []string {
	return []string{
		fmt.Sprintf("%d", no),
		row.Song,
		row.Artist,
		row.NormalizedSong,
		row.Genre,
		timestamp.Render(row.OffsetS),
		row.StreamDate,
		row.VideoID,
		fmt.Sprintf("%.2f", row.Confidence),
		row.ChannelID,
	}
}
