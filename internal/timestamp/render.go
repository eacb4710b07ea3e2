package timestamp

import (
	"fmt"
	"strconv"
	"strings"
)

// Render formats offsetS as H:MM:SS when it is at least one hour, else
// M:SS.
func Render(offsetS int) string {
	h := offsetS / 3600
	m := (offsetS % 3600) / 60
	s := offsetS % 60
	if offsetS >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Parse is the inverse of Render, accepting both H:MM:SS and M:SS forms.
func Parse(hms string) (int, error) {
	parts := strings.Split(hms, ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("timestamp: invalid component %q in %q: %w", p, hms, err)
		}
		nums[i] = n
	}

	switch len(nums) {
	case 2:
		return nums[0]*60 + nums[1], nil
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2], nil
	default:
		return 0, fmt.Errorf("timestamp: unsupported format %q", hms)
	}
}
