package publish

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"songcatalog/internal/model"
)

func TestPublishSplitsSingingBucketByConfidence(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Singing:  filepath.Join(dir, "timestamps_singing.json"),
		All:      filepath.Join(dir, "timestamps_all.json"),
		Channels: filepath.Join(dir, "channels.json"),
	}

	rows := []model.CatalogRow{
		{Song: "A", VideoID: "v1", Confidence: 0.5},
		{Song: "B", VideoID: "v2", Confidence: 0.9},
	}
	confidence := map[string]float64{"v1": 0.4, "v2": 0.8}

	if err := Publish(rows, nil, confidence, 0.7, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), paths); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var all, singing TimestampsDocument
	mustLoad(t, paths.All, &all)
	mustLoad(t, paths.Singing, &singing)

	if all.TotalCount != 2 {
		t.Errorf("all.TotalCount = %d, want 2", all.TotalCount)
	}
	if singing.TotalCount != 1 || singing.Timestamps[0].VideoID != "v2" {
		t.Errorf("singing = %#v, want only v2", singing)
	}
}

func TestPublishChannelsPreservesConfigOrder(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Singing:  filepath.Join(dir, "s.json"),
		All:      filepath.Join(dir, "a.json"),
		Channels: filepath.Join(dir, "channels.json"),
	}
	channels := []model.Channel{
		{ID: "UC2", Name: "second"},
		{ID: "UC1", Name: "first"},
	}

	if err := Publish(nil, channels, nil, 0.7, time.Now().UTC(), paths); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var got []ChannelEntry
	mustLoad(t, paths.Channels, &got)
	if len(got) != 2 || got[0].ID != "UC2" || got[1].ID != "UC1" {
		t.Errorf("channels = %#v, want config order preserved", got)
	}
}

func TestPublishIncludesSearchKeyFromNormalizedSong(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Singing:  filepath.Join(dir, "s.json"),
		All:      filepath.Join(dir, "a.json"),
		Channels: filepath.Join(dir, "channels.json"),
	}

	rows := []model.CatalogRow{
		{Song: "千本桜", NormalizedSong: "千本桜", VideoID: "v1", Confidence: 0.9},
	}

	if err := Publish(rows, nil, map[string]float64{"v1": 0.9}, 0.7, time.Now().UTC(), paths); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var all TimestampsDocument
	mustLoad(t, paths.All, &all)
	if len(all.Timestamps) != 1 || all.Timestamps[0].SearchKey != "千本桜" {
		t.Errorf("timestamps = %#v, want SearchKey %q", all.Timestamps, "千本桜")
	}
}

func mustLoad(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
}
