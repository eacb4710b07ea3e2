// Package timestamp extracts time-coded song entries from free text
// (video descriptions and comments) and selects the single best candidate
// setlist per video.
package timestamp

import (
	"html"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"songcatalog/internal/model"
)

// anchorPattern matches the first H:MM:SS / HH:MM:SS / M:SS / MM:SS timecode
// on a line. Hours 0-23, minutes 0-599.
var anchorPattern = regexp.MustCompile(`\b(?:([0-9]|[01][0-9]|2[0-3]):([0-5][0-9]):([0-5][0-9])|([1-5]?[0-9]{1,2}):([0-5][0-9]))\b`)

// leadingSeparators is the set of separators optionally consumed once
// between the anchor and the payload.
var leadingSeparators = []string{" ", "-", "–", "—", ":", "：", "・", "･", "）", ")"}

// slashSplit implements rule 1 of the song/artist split: exactly one '/'.
var slashSplit = regexp.MustCompile(`^([^/]+)/([^/]+)$`)

// byPattern implements rule 3: case-insensitive " by " split.
var byPattern = regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`)

// parenArtistPattern implements rule 4: trailing "(artist)" with no embedded
// timestamp in the parenthesized group.
var parenArtistPattern = regexp.MustCompile(`^(.+?)\(([^)]+)\)\s*$`)

// embeddedTimecode rejects a parenthesized group that itself looks like a
// timestamp (disqualifying rule 4).
var embeddedTimecode = regexp.MustCompile(`\d{1,2}:\d{2}`)

// ParseCandidate runs the Timestamp Parser (C2) over one text source,
// producing a CandidateSetlist tagged with the given origin.
func ParseCandidate(text string, origin model.Origin) model.CandidateSetlist {
	lines := splitLines(text)

	var raw []model.TimestampLine
	for _, line := range lines {
		tl, ok := parseLine(line)
		if !ok {
			continue
		}
		raw = append(raw, tl)
	}

	retained := filterMonotonic(raw)

	return model.CandidateSetlist{
		Origin:  origin,
		Lines:   retained,
		Quality: quality(retained),
	}
}

func splitLines(text string) []string {
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// parseLine locates the anchor timecode on a line, strips one leading
// separator, and splits the remaining payload into song and artist.
func parseLine(line string) (model.TimestampLine, bool) {
	loc := anchorPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return model.TimestampLine{}, false
	}

	offsetS, ok := offsetFromMatch(line, loc)
	if !ok {
		return model.TimestampLine{}, false
	}

	rest := line[loc[1]:]
	payload := consumeLeadingSeparator(rest)
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return model.TimestampLine{}, false
	}

	song, artist := splitSongArtist(payload)
	if song == "" {
		return model.TimestampLine{}, false
	}

	return model.TimestampLine{
		OffsetS: offsetS,
		Song:    song,
		Artist:  artist,
		Raw:     strings.TrimSpace(line),
	}, true
}

func offsetFromMatch(line string, loc []int) (int, bool) {
	// Groups 1-3: H:MM:SS. Groups 4-5: M:SS.
	if loc[2] != -1 {
		h, _ := strconv.Atoi(line[loc[2]:loc[3]])
		m, _ := strconv.Atoi(line[loc[4]:loc[5]])
		s, _ := strconv.Atoi(line[loc[6]:loc[7]])
		return h*3600 + m*60 + s, true
	}
	if loc[8] != -1 {
		m, _ := strconv.Atoi(line[loc[8]:loc[9]])
		s, _ := strconv.Atoi(line[loc[10]:loc[11]])
		return m*60 + s, true
	}
	return 0, false
}

func consumeLeadingSeparator(rest string) string {
	trimmed := strings.TrimLeft(rest, " ")
	for _, sep := range leadingSeparators {
		if strings.HasPrefix(trimmed, sep) {
			return trimmed[len(sep):]
		}
	}
	return rest
}

// splitSongArtist tries each separator rule in order: a lone slash, a
// hyphen with surrounding spaces, a case-insensitive " by ", then a
// trailing parenthesized artist that isn't itself a timecode.
func splitSongArtist(payload string) (song, artist string) {
	if m := slashSplit.FindStringSubmatch(payload); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}

	if idx := strings.Index(payload, " - "); idx >= 0 {
		return strings.TrimSpace(payload[:idx]), strings.TrimSpace(payload[idx+3:])
	}

	if m := byPattern.FindStringSubmatch(payload); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}

	if m := parenArtistPattern.FindStringSubmatch(payload); m != nil {
		candidateArtist := strings.TrimSpace(m[2])
		if !embeddedTimecode.MatchString(candidateArtist) {
			return strings.TrimSpace(m[1]), candidateArtist
		}
	}

	return strings.TrimSpace(payload), ""
}

// filterMonotonic drops any entry whose offset regresses by more than a
// 5s tolerance relative to the previous retained entry; equal offsets
// collapse to the first.
func filterMonotonic(lines []model.TimestampLine) []model.TimestampLine {
	var out []model.TimestampLine
	lastOffset := -1
	for _, l := range lines {
		if lastOffset >= 0 {
			if l.OffsetS == lastOffset {
				continue
			}
			if l.OffsetS < lastOffset-5 {
				continue
			}
		}
		out = append(out, l)
		lastOffset = l.OffsetS
	}
	return out
}

// quality scores a candidate by blending artist coverage, line count, and
// how tightly lines cluster around a plausible per-song density.
func quality(lines []model.TimestampLine) float64 {
	if len(lines) == 0 {
		return 0
	}

	artistN := 0
	for _, l := range lines {
		if l.Artist != "" {
			artistN++
		}
	}
	artistRatio := float64(artistN) / float64(len(lines))

	countTerm := math.Min(1, float64(len(lines))/15)

	densityTerm := densityTerm(lines)

	return 0.5*artistRatio + 0.3*countTerm + 0.2*densityTerm
}

func densityTerm(lines []model.TimestampLine) float64 {
	if len(lines) < 2 {
		return 0
	}

	gaps := make([]float64, 0, len(lines)-1)
	for i := 1; i < len(lines); i++ {
		gaps = append(gaps, float64(lines[i].OffsetS-lines[i-1].OffsetS))
	}
	sort.Float64s(gaps)
	median := medianOf(gaps)

	switch {
	case median >= 120 && median <= 420:
		return 1
	case median < 120:
		// Ramps 0 (at 30s) up to 1 (at 120s).
		return clampedRatio(median, 30, 120)
	default:
		// Ramps 1 (at 420s) down to 0 (at 1200s).
		return clampedRatio(median, 1200, 420)
	}
}

// clampedRatio returns the fraction of the way value sits from zeroAt
// toward oneAt, clamped to [0, 1]. zeroAt/oneAt may be given in either
// order (oneAt can be less than zeroAt for a decreasing ramp).
func clampedRatio(value, zeroAt, oneAt float64) float64 {
	ratio := (value - zeroAt) / (oneAt - zeroAt)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

