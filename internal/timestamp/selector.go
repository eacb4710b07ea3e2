package timestamp

import (
	"math"

	"songcatalog/internal/model"
)

// minLinesEligible is the minimum retained-line count for a candidate to
// be considered at all.
const minLinesEligible = 3

// descriptionQualityThreshold and descriptionMinLines gate the
// description-wins-outright rule.
const (
	descriptionQualityThreshold = 0.6
	descriptionMinLines         = 5
)

// Select implements the Setlist Selector (C3): given the description
// candidate (nil if none) and all comment candidates, picks the single best
// one. Returns nil if no candidate has at least minLinesEligible lines.
func Select(description *model.CandidateSetlist, comments []model.CandidateSetlist) *model.CandidateSetlist {
	if description != nil &&
		description.Quality >= descriptionQualityThreshold &&
		len(description.Lines) >= descriptionMinLines {
		d := *description
		return &d
	}

	var eligibleComments []model.CandidateSetlist
	for _, c := range comments {
		if len(c.Lines) >= minLinesEligible {
			eligibleComments = append(eligibleComments, c)
		}
	}

	if len(eligibleComments) == 0 {
		// No comment reaches the line-count floor; fall back to the
		// description if it alone clears it (it already failed the
		// stricter outright-win check above).
		if description != nil && len(description.Lines) >= minLinesEligible {
			d := *description
			return &d
		}
		return nil
	}

	best := eligibleComments[0]
	bestRank := rank(eligibleComments[0])
	for _, c := range eligibleComments[1:] {
		r := rank(c)
		if better(c, r, best, bestRank) {
			best = c
			bestRank = r
		}
	}
	return &best
}

// rank scores a comment-derived candidate by quality plus a log-damped
// boost for like count, so a handful of likes can't outweigh a much
// cleaner parse.
func rank(c model.CandidateSetlist) float64 {
	return c.Quality + 0.1*math.Log10(1+float64(c.Origin.LikeCount))
}

// better reports whether candidate b (with rank rb) should replace the
// current best a (with rank ra): higher rank wins, then the tie-break
// chain of more lines, then earlier publish time, then lexicographic
// origin tag.
func better(b model.CandidateSetlist, rb float64, a model.CandidateSetlist, ra float64) bool {
	const epsilon = 1e-9
	if rb > ra+epsilon {
		return true
	}
	if rb < ra-epsilon {
		return false
	}

	if len(b.Lines) != len(a.Lines) {
		return len(b.Lines) > len(a.Lines)
	}

	if !b.Origin.Published.Equal(a.Origin.Published) {
		return b.Origin.Published.Before(a.Origin.Published)
	}

	return b.Origin.Tag() < a.Origin.Tag()
}
