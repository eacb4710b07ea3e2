// Package genre implements the Genre Classifier (C5): an ordered rule
// chain mapping (artist, song) to a genre label, backed by a persistent
// TTL cache for the optional external metadata tiebreaker.
package genre

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"songcatalog/internal/model"
)

// KeywordBuckets maps a genre label to lists of case-folded substrings
// checked against artist, then song.
type KeywordBuckets map[string][]string

// Config is the configurable rule set loaded from the genre keyword file.
type Config struct {
	Categories    map[string]KeywordBuckets `json:"categories"`
	ArtistToGenre map[string]string         `json:"artist_to_genre"`
	SongToGenre   map[string]string         `json:"song_to_genre,omitempty"`
}

// ExternalLookup is the optional third-party music-metadata tiebreaker.
// Implementations query an external service and return a genre label
// already mapped through the configured tag map, or ok=false if no
// mapping could be determined.
type ExternalLookup interface {
	Lookup(artist, song string) (genre string, ok bool, err error)
}

// Classifier applies a layered rule chain: exact artist match, then
// keyword match, then exact song match, then the optional external
// tiebreaker, then a default label.
type Classifier struct {
	cfg           Config
	categoryOrder []string
	external      ExternalLookup
	cache         *Cache
}

// NewClassifier creates a classifier. external may be nil to disable the
// optional tiebreaker rule entirely; the exact-match, keyword, and default
// rules still apply and remain fully deterministic. cache may be nil, in
// which case external lookups run uncached.
func NewClassifier(cfg Config, external ExternalLookup, cache *Cache) *Classifier {
	order := make([]string, 0, len(cfg.Categories))
	for category := range cfg.Categories {
		order = append(order, category)
	}
	sort.Strings(order)

	return &Classifier{cfg: cfg, categoryOrder: order, external: external, cache: cache}
}

// Classify maps one (artist, song) pair to a genre label, applying rules in
// order; the first match wins.
func (c *Classifier) Classify(artist, song string) string {
	if g, ok := c.byArtistExact(artist); ok {
		return g
	}
	if g, ok := c.byKeyword(artist, song); ok {
		return g
	}
	if g, ok := c.bySongExact(song); ok {
		return g
	}
	if g, ok := c.byExternal(artist, song); ok {
		return g
	}
	return model.GenreOther
}

func (c *Classifier) byArtistExact(artist string) (string, bool) {
	if artist == "" {
		return "", false
	}
	g, ok := c.cfg.ArtistToGenre[artist]
	return g, ok
}

// byKeyword walks categories in a fixed (sorted) order so that an
// (artist, song) pair matching keywords in more than one category always
// resolves to the same winner across runs.
func (c *Classifier) byKeyword(artist, song string) (string, bool) {
	artistFolded := fold(artist)
	songFolded := fold(song)

	for _, category := range c.categoryOrder {
		buckets := c.cfg.Categories[category]
		for _, keywords := range buckets {
			for _, kw := range keywords {
				kwFolded := fold(kw)
				if kwFolded == "" {
					continue
				}
				if strings.Contains(artistFolded, kwFolded) || strings.Contains(songFolded, kwFolded) {
					return category, true
				}
			}
		}
	}
	return "", false
}

func (c *Classifier) bySongExact(song string) (string, bool) {
	if song == "" {
		return "", false
	}
	g, ok := c.cfg.SongToGenre[song]
	return g, ok
}

func (c *Classifier) byExternal(artist, song string) (string, bool) {
	if c.external == nil {
		return "", false
	}

	if c.cache != nil {
		if g, ok := c.cache.Get(artist, song); ok {
			return g, true
		}
	}

	genre, ok, err := c.external.Lookup(artist, song)
	if err != nil || !ok {
		return "", false
	}

	if c.cache != nil {
		c.cache.Put(artist, song, genre)
	}
	return genre, true
}

// fold case-folds and whitespace-normalizes a string for keyword matching.
func fold(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
