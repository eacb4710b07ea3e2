// Package orchestrator drives the incremental update run: one worker per
// enabled channel, bounded to a configurable parallelism, feeding the
// extraction pipeline (C2-C5) and committing results to the catalog and
// watermark stores.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"songcatalog/internal/appconfig"
	"songcatalog/internal/catalog"
	"songcatalog/internal/confidence"
	"songcatalog/internal/genre"
	"songcatalog/internal/logging"
	"songcatalog/internal/model"
	"songcatalog/internal/platform"
	"songcatalog/internal/publish"
	"songcatalog/internal/timestamp"
	"songcatalog/internal/watermark"
)

// ChannelState is the per-channel run state machine.
type ChannelState string

const (
	StatePending ChannelState = "pending"
	StateRunning ChannelState = "running"
	StateOK      ChannelState = "ok"
	StatePartial ChannelState = "partial"
	StateFailed  ChannelState = "failed"
)

// ChannelResult summarizes one channel's outcome for the run report.
type ChannelResult struct {
	ChannelID     string
	State         ChannelState
	VideosSeen    int
	RowsExtracted int
	Err           error
}

// RunResult summarizes the whole run.
type RunResult struct {
	Start    time.Time
	Channels []ChannelResult
}

// jst is the fixed UTC+9 offset used for stream_date, matching the
// source platform's upload-time display convention.
var jst = time.FixedZone("JST", 9*60*60)

// Orchestrator wires the platform client, extraction pipeline, catalog,
// watermark store, and publisher into one incremental run.
type Orchestrator struct {
	Platform   *platform.Client
	Classifier *genre.Classifier
	Catalog    *catalog.Catalog
	Watermarks *watermark.Store
	RunConfig   *appconfig.RunConfig
	Channels    []model.Channel
	PublishTo   publish.Paths
	CatalogPath string

	log *logging.Logger
}

// New creates an Orchestrator with a ready-to-use logger.
func New(p *platform.Client, classifier *genre.Classifier, cat *catalog.Catalog, watermarks *watermark.Store, runCfg *appconfig.RunConfig, channels []model.Channel, publishTo publish.Paths, catalogPath string) *Orchestrator {
	return &Orchestrator{
		Platform:    p,
		Classifier:  classifier,
		Catalog:     cat,
		Watermarks:  watermarks,
		RunConfig:   runCfg,
		Channels:    channels,
		PublishTo:   publishTo,
		CatalogPath: catalogPath,
		log:         logging.New("orchestrator"),
	}
}

// Run performs one incremental (or backfill, when backfill is true) pass
// over every enabled channel, merges the results into the catalog, and
// republishes the output JSONs.
func (o *Orchestrator) Run(ctx context.Context, backfill bool, onlyChannelID string) (*RunResult, error) {
	start := time.Now().UTC()
	result := &RunResult{Start: start}

	var enabled []model.Channel
	for _, ch := range o.Channels {
		if !ch.Enabled {
			continue
		}
		if onlyChannelID != "" && ch.ID != onlyChannelID {
			continue
		}
		enabled = append(enabled, ch)
	}

	var quotaHit atomic.Bool
	var mu sync.Mutex
	results := make([]ChannelResult, len(enabled))
	confidenceByVideo := make(map[string]float64)
	var allRows []model.CatalogRow

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.RunConfig.MaxParallelChannels)

	for i, ch := range enabled {
		i, ch := i, ch
		group.Go(func() error {
			if quotaHit.Load() {
				results[i] = ChannelResult{ChannelID: ch.ID, State: StatePartial}
				return nil
			}

			channelCtx, cancel := context.WithTimeout(groupCtx, 20*time.Minute)
			defer cancel()

			res, rows, videoConfidence, err := o.runChannel(channelCtx, ch, backfill)

			mu.Lock()
			for vid, c := range videoConfidence {
				confidenceByVideo[vid] = c
			}
			allRows = append(allRows, rows...)
			mu.Unlock()

			if errors.Is(err, platform.ErrQuotaExceeded) {
				quotaHit.Store(true)
				res.State = StatePartial
				res.Err = err
				o.log.Printf("quota exceeded on channel %s, remaining channels marked partial", ch.ID)
			}

			results[i] = res
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return result, fmt.Errorf("orchestrator: run: %w", err)
	}
	result.Channels = results

	o.Catalog.Merge(allRows)
	o.Catalog.DedupeGlobal()
	o.Catalog.Sort(catalog.OrderDateDesc)
	if err := o.Catalog.Save(o.CatalogPath); err != nil {
		return result, fmt.Errorf("orchestrator: save catalog: %w", err)
	}

	if err := o.Watermarks.Save(); err != nil {
		o.log.Printf("failed to persist watermarks: %v", err)
	}

	if err := publish.Publish(o.Catalog.Rows(), o.Channels, confidenceByVideo, o.RunConfig.ConfidenceThreshold, start, o.PublishTo); err != nil {
		o.log.Printf("publish failed: %v", err)
		return result, fmt.Errorf("orchestrator: publish: %w", err)
	}

	if quotaHit.Load() {
		return result, platform.ErrQuotaExceeded
	}

	return result, nil
}

// runChannel processes one channel end to end, returning its result, the
// catalog rows it produced, and the per-video confidence scores computed
// along the way.
func (o *Orchestrator) runChannel(ctx context.Context, ch model.Channel, backfill bool) (ChannelResult, []model.CatalogRow, map[string]float64, error) {
	res := ChannelResult{ChannelID: ch.ID, State: StateRunning}
	confidenceByVideo := make(map[string]float64)

	since := time.Unix(0, 0).UTC()
	if !backfill {
		since = o.Watermarks.Get(ch.ID).LastPublishedAt
	}

	refs, err := o.Platform.ListUploads(ctx, ch.ID, since)
	if err != nil {
		if errors.Is(err, platform.ErrQuotaExceeded) {
			return res, nil, confidenceByVideo, platform.ErrQuotaExceeded
		}
		res.State = StateFailed
		res.Err = err
		return res, nil, confidenceByVideo, nil
	}
	res.VideosSeen = len(refs)

	if len(refs) == 0 {
		res.State = StateOK
		return res, nil, confidenceByVideo, nil
	}

	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}

	videos, err := o.Platform.GetVideos(ctx, ids)
	if err != nil {
		if errors.Is(err, platform.ErrQuotaExceeded) {
			return res, nil, confidenceByVideo, platform.ErrQuotaExceeded
		}
		res.State = StateFailed
		res.Err = err
		return res, nil, confidenceByVideo, nil
	}

	var rows []model.CatalogRow
	var mostRecentID string
	var mostRecentAt time.Time

	for _, v := range videos {
		comments, err := o.Platform.ListComments(ctx, v.ID, o.RunConfig.CommentsPerVideo)
		if err != nil && errors.Is(err, platform.ErrQuotaExceeded) {
			return res, rows, confidenceByVideo, platform.ErrQuotaExceeded
		}

		videoRows, conf := o.processVideo(v, comments)
		rows = append(rows, videoRows...)
		confidenceByVideo[v.ID] = conf

		if v.PublishedAt.After(mostRecentAt) {
			mostRecentAt = v.PublishedAt
			mostRecentID = v.ID
		}
	}

	res.RowsExtracted = len(rows)
	res.State = StateOK

	w := o.Watermarks.Get(ch.ID)
	w.ChannelID = ch.ID
	w.LastRunAt = time.Now().UTC()
	w.Status = model.WatermarkOK
	w.Advance(mostRecentID, mostRecentAt)
	o.Watermarks.Put(w)

	return res, rows, confidenceByVideo, nil
}

// processVideo runs C2 (parse description + comments) -> C3 (select) ->
// C4 (score) -> C5 (classify), producing the catalog rows for one video
// plus its confidence score.
func (o *Orchestrator) processVideo(v model.Video, comments []model.Comment) ([]model.CatalogRow, float64) {
	var description *model.CandidateSetlist
	if v.Description != "" {
		d := timestamp.ParseCandidate(v.Description, model.Origin{Kind: model.OriginDescription})
		description = &d
	}

	var commentCandidates []model.CandidateSetlist
	var corpus strings.Builder
	for i, c := range comments {
		corpus.WriteString(c.Text)
		corpus.WriteByte('\n')

		cand := timestamp.ParseCandidate(c.Text, model.Origin{
			Kind:      model.OriginComment,
			Index:     i,
			LikeCount: c.LikeCount,
			Published: c.PublishedAt,
		})
		if len(cand.Lines) > 0 {
			commentCandidates = append(commentCandidates, cand)
		}
	}

	selected := timestamp.Select(description, commentCandidates)

	conf := confidence.Score(confidence.Input{
		Video:         v,
		Selected:      selected,
		CommentCorpus: corpus.String(),
	})

	if selected == nil {
		return nil, conf
	}

	streamDate := v.PublishedAt.In(jst).Format("2006-01-02")

	rows := make([]model.CatalogRow, 0, len(selected.Lines))
	for _, line := range selected.Lines {
		genreLabel := o.Classifier.Classify(line.Artist, line.Song)
		rows = append(rows, model.CatalogRow{
			Song:             line.Song,
			Artist:           line.Artist,
			NormalizedSong:   catalog.Normalize(line.Song),
			NormalizedArtist: catalog.Normalize(line.Artist),
			Genre:            genreLabel,
			OffsetS:          line.OffsetS,
			TimestampHMS:     timestamp.Render(line.OffsetS),
			StreamDate:       streamDate,
			VideoID:          v.ID,
			ChannelID:        v.ChannelID,
			Confidence:        conf,
		})
	}
	return rows, conf
}
