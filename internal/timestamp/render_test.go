package timestamp

import "testing"

func TestRenderParseRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 5, 59, 60, 61, 599, 3599, 3600, 3661, 86399} {
		rendered := Render(offset)
		got, err := Parse(rendered)
		if err != nil {
			t.Fatalf("Parse(%q): %v", rendered, err)
		}
		if got != offset {
			t.Errorf("round trip offset=%d -> %q -> %d", offset, rendered, got)
		}
	}
}

func TestRenderFormat(t *testing.T) {
	cases := map[int]string{
		0:    "0:00",
		65:   "1:05",
		3600: "1:00:00",
		3725: "1:02:05",
	}
	for offset, want := range cases {
		if got := Render(offset); got != want {
			t.Errorf("Render(%d) = %q, want %q", offset, got, want)
		}
	}
}
