package genre

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCacheLoadMissingFileIsEmpty(t *testing.T) {
	c, err := LoadCache(filepath.Join(t.TempDir(), "genre_cache.json"), DefaultTTL)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if _, ok := c.Get("any", "thing"); ok {
		t.Error("expected empty cache for missing file")
	}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	c, _ := LoadCache(filepath.Join(t.TempDir(), "genre_cache.json"), DefaultTTL)
	c.Put("Artist", "Song", "J-POP")

	got, ok := c.Get("artist", "song")
	if !ok || got != "J-POP" {
		t.Errorf("Get (case-insensitive key) = (%q, %v), want (J-POP, true)", got, ok)
	}
}

func TestCacheEntryExpires(t *testing.T) {
	c, _ := LoadCache(filepath.Join(t.TempDir(), "genre_cache.json"), time.Nanosecond)
	c.Put("Artist", "Song", "J-POP")
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("Artist", "Song"); ok {
		t.Error("expected expired entry to be treated as a miss")
	}
}

func TestCacheSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genre_cache.json")

	c1, err := LoadCache(path, DefaultTTL)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	c1.Put("Artist", "Song", "Vocaloid")
	if err := c1.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c2, err := LoadCache(path, DefaultTTL)
	if err != nil {
		t.Fatalf("reload LoadCache: %v", err)
	}
	got, ok := c2.Get("Artist", "Song")
	if !ok || got != "Vocaloid" {
		t.Errorf("reloaded Get = (%q, %v), want (Vocaloid, true)", got, ok)
	}
}
