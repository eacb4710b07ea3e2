package timestamp

import (
	"testing"
	"time"

	"songcatalog/internal/model"
)

func lines(n int, withArtist bool) []model.TimestampLine {
	out := make([]model.TimestampLine, n)
	for i := range out {
		artist := ""
		if withArtist {
			artist = "Some Artist"
		}
		out[i] = model.TimestampLine{OffsetS: i * 180, Song: "Song", Artist: artist}
	}
	return out
}

func TestSelectDescriptionWinsOutright(t *testing.T) {
	desc := &model.CandidateSetlist{
		Origin:  model.Origin{Kind: model.OriginDescription},
		Lines:   lines(6, true),
		Quality: 0.8,
	}
	comment := model.CandidateSetlist{
		Origin:  model.Origin{Kind: model.OriginComment, LikeCount: 1000},
		Lines:   lines(20, true),
		Quality: 0.9,
	}

	got := Select(desc, []model.CandidateSetlist{comment})
	if got == nil || got.Origin.Kind != model.OriginDescription {
		t.Fatalf("expected description to win outright, got %#v", got)
	}
}

func TestSelectCommentWinsWhenDescriptionWeak(t *testing.T) {
	desc := &model.CandidateSetlist{
		Origin:  model.Origin{Kind: model.OriginDescription},
		Lines:   lines(4, false),
		Quality: 0.3,
	}
	comment := model.CandidateSetlist{
		Origin:  model.Origin{Kind: model.OriginComment, LikeCount: 500},
		Lines:   lines(12, true),
		Quality: 0.7,
	}

	got := Select(desc, []model.CandidateSetlist{comment})
	if got == nil || got.Origin.Kind != model.OriginComment {
		t.Fatalf("expected comment to win, got %#v", got)
	}
}

func TestSelectTieBreakByLineCount(t *testing.T) {
	a := model.CandidateSetlist{Origin: model.Origin{Kind: model.OriginComment}, Lines: lines(5, true), Quality: 0.5}
	b := model.CandidateSetlist{Origin: model.Origin{Kind: model.OriginComment}, Lines: lines(8, true), Quality: 0.5}

	got := Select(nil, []model.CandidateSetlist{a, b})
	if got == nil || len(got.Lines) != 8 {
		t.Fatalf("expected the longer candidate to win tie-break, got %#v", got)
	}
}

func TestSelectTieBreakByPublishTime(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	a := model.CandidateSetlist{Origin: model.Origin{Kind: model.OriginComment, Published: later}, Lines: lines(5, true), Quality: 0.5}
	b := model.CandidateSetlist{Origin: model.Origin{Kind: model.OriginComment, Published: earlier}, Lines: lines(5, true), Quality: 0.5}

	got := Select(nil, []model.CandidateSetlist{a, b})
	if got == nil || !got.Origin.Published.Equal(earlier) {
		t.Fatalf("expected earlier comment to win tie-break, got %#v", got)
	}
}

func TestSelectReturnsNilWhenNothingEligible(t *testing.T) {
	desc := &model.CandidateSetlist{Origin: model.Origin{Kind: model.OriginDescription}, Lines: lines(1, false), Quality: 0.1}
	comment := model.CandidateSetlist{Origin: model.Origin{Kind: model.OriginComment}, Lines: lines(2, false), Quality: 0.1}

	got := Select(desc, []model.CandidateSetlist{comment})
	if got != nil {
		t.Fatalf("expected nil when no candidate reaches the line floor, got %#v", got)
	}
}
