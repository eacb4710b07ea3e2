package genre

import (
	"testing"

	"songcatalog/internal/model"
)

func testConfig() Config {
	return Config{
		Categories: map[string]KeywordBuckets{
			model.GenreVocaloid: {
				"artists": {"初音ミク", "鏡音リン"},
			},
			model.GenreAnime: {
				"titles": {"ハレ晴れユカイ"},
			},
		},
		ArtistToGenre: map[string]string{
			"YOASOBI": model.GenreJPop,
		},
		SongToGenre: map[string]string{
			"君の知らない物語": model.GenreAnime,
		},
	}
}

func TestClassifyArtistExactMatch(t *testing.T) {
	c := NewClassifier(testConfig(), nil, nil)
	if got := c.Classify("YOASOBI", "夜に駆ける"); got != model.GenreJPop {
		t.Errorf("Classify = %q, want %q", got, model.GenreJPop)
	}
}

func TestClassifyKeywordMatch(t *testing.T) {
	c := NewClassifier(testConfig(), nil, nil)
	if got := c.Classify("初音ミク", "千本桜"); got != model.GenreVocaloid {
		t.Errorf("Classify = %q, want %q", got, model.GenreVocaloid)
	}
}

func TestClassifySongExactMatch(t *testing.T) {
	c := NewClassifier(testConfig(), nil, nil)
	if got := c.Classify("Unknown Artist", "君の知らない物語"); got != model.GenreAnime {
		t.Errorf("Classify = %q, want %q", got, model.GenreAnime)
	}
}

func TestClassifyDefaultsToOther(t *testing.T) {
	c := NewClassifier(testConfig(), nil, nil)
	if got := c.Classify("Unknown", "Unknown Song"); got != model.GenreOther {
		t.Errorf("Classify = %q, want %q", got, model.GenreOther)
	}
}

type stubLookup struct {
	genre string
	ok    bool
}

func (s stubLookup) Lookup(artist, song string) (string, bool, error) {
	return s.genre, s.ok, nil
}

func TestClassifyExternalTiebreaker(t *testing.T) {
	cache, err := LoadCache(t.TempDir()+"/cache.json", DefaultTTL)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	c := NewClassifier(testConfig(), stubLookup{genre: model.GenreJPop, ok: true}, cache)

	if got := c.Classify("Brand New Artist", "Brand New Song"); got != model.GenreJPop {
		t.Errorf("Classify = %q, want %q (from external lookup)", got, model.GenreJPop)
	}

	if got, ok := cache.Get("Brand New Artist", "Brand New Song"); !ok || got != model.GenreJPop {
		t.Errorf("cache.Get after lookup = (%q, %v), want (%q, true)", got, ok, model.GenreJPop)
	}
}

func TestClassifyKeywordMatchIsDeterministicAcrossCategories(t *testing.T) {
	cfg := testConfig()
	// "初音ミク" matches Vocaloid by artist keyword; "ハレ晴れユカイ" matches
	// アニメ by song keyword, so this pair is ambiguous between categories.
	for i := 0; i < 50; i++ {
		c := NewClassifier(cfg, nil, nil)
		if got := c.Classify("初音ミク", "ハレ晴れユカイ"); got != model.GenreVocaloid {
			t.Fatalf("iteration %d: Classify = %q, want %q (category order must be stable)", i, got, model.GenreVocaloid)
		}
	}
}

func TestClassifyDisablingExternalNeverChangesRuleOutcome(t *testing.T) {
	withExternal := NewClassifier(testConfig(), stubLookup{genre: model.GenreJPop, ok: true}, nil)
	withoutExternal := NewClassifier(testConfig(), nil, nil)

	// A pair that rules 1-3 already resolve must be unaffected by whether
	// the external tiebreaker is enabled.
	if withExternal.Classify("YOASOBI", "夜に駆ける") != withoutExternal.Classify("YOASOBI", "夜に駆ける") {
		t.Error("external lookup must not override rules 1-3")
	}
}
