// Package confidence implements the Confidence Scorer (C4): a signal-additive
// classifier that assigns each video a [0,1] "singing stream" likelihood.
package confidence

import (
	"regexp"

	"songcatalog/internal/model"
)

// Signal point values. Kept as named constants, not inlined literals, so
// the weighting stays tunable in one place.
const (
	pointsTitleSinging        = 3
	pointsDescriptionSetlist  = 2
	pointsSetlistTenLines     = 3
	pointsArtistRatioHigh     = 5
	pointsArtistRatioMid      = 3
	pointsArtistRatioLow      = 1
	pointsLongDuration        = 2
	pointsCommentAnchors      = 2
	pointsGameplayExclusion   = 5

	// MaxRaw is the sum of the maximum achievable positive contributions.
	MaxRaw = pointsTitleSinging + pointsDescriptionSetlist + pointsSetlistTenLines +
		pointsArtistRatioHigh + pointsLongDuration + pointsCommentAnchors

	// Threshold is the singing_score floor for the singing-only publishing bucket.
	Threshold = 0.7

	minCommentAnchorLines = 3
	minSetlistLinesBonus  = 10
	minDurationSBonus     = 1800
)

var (
	singingPattern  = regexp.MustCompile(`(?i)歌|歌枠|うた|singing|karaoke`)
	setlistPattern  = regexp.MustCompile(`歌|セトリ|setlist`)
	gameplayPattern = regexp.MustCompile(`(?i)ゲーム実況|gameplay|プレイ動画|雑談`)
)

// anchorPattern matches a time-anchor, reused here to count comment lines
// that look like timestamp entries even without being part of a full
// CandidateSetlist.
var anchorPattern = regexp.MustCompile(`\b(?:([0-9]|[01][0-9]|2[0-3]):([0-5][0-9]):([0-5][0-9])|([1-5]?[0-9]{1,2}):([0-5][0-9]))\b`)

// Input bundles everything the scorer needs for one video.
type Input struct {
	Video           model.Video
	Selected        *model.CandidateSetlist // the winning setlist, if any
	CommentCorpus   string                  // concatenated comment text
}

// Score computes the [0,1] singing-stream confidence for one video.
func Score(in Input) float64 {
	raw := positiveSignals(in) - negativeSignals(in)
	return clip(raw/MaxRaw, 0, 1)
}

func positiveSignals(in Input) float64 {
	var score float64

	if singingPattern.MatchString(in.Video.Title) {
		score += pointsTitleSinging
	}
	if setlistPattern.MatchString(in.Video.Description) {
		score += pointsDescriptionSetlist
	}
	if in.Selected != nil {
		if len(in.Selected.Lines) >= minSetlistLinesBonus {
			score += pointsSetlistTenLines
		}
		score += artistRatioBonus(in.Selected.ArtistRatio())
	}
	if in.Video.DurationS >= minDurationSBonus {
		score += pointsLongDuration
	}
	if countAnchorLines(in.CommentCorpus) >= minCommentAnchorLines {
		score += pointsCommentAnchors
	}

	return score
}

func negativeSignals(in Input) float64 {
	if gameplayPattern.MatchString(in.Video.Title) {
		return pointsGameplayExclusion
	}
	return 0
}

// artistRatioBonus applies the tiered artist-ratio bonus: only the
// highest tier reached contributes.
func artistRatioBonus(ratio float64) float64 {
	switch {
	case ratio >= 0.8:
		return pointsArtistRatioHigh
	case ratio >= 0.5:
		return pointsArtistRatioMid
	case ratio >= 0.2:
		return pointsArtistRatioLow
	default:
		return 0
	}
}

func countAnchorLines(text string) int {
	n := 0
	for _, line := range splitLines(text) {
		if anchorPattern.MatchString(line) {
			n++
		}
	}
	return n
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i, r := range text {
		if r == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
