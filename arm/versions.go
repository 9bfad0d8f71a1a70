package arm

import (
	"slices"
	"strings"
)

// LatestVersion is the image version alias that always sorts first.
const LatestVersion = "latest"

// SortVersions sorts version names in place: "latest" first, the rest in
// descending natural order, so "20348.1006" precedes "20348.900".
func SortVersions(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		aLatest, bLatest := strings.EqualFold(a, LatestVersion), strings.EqualFold(b, LatestVersion)
		switch {
		case aLatest && bLatest:
			return 0
		case aLatest:
			return -1
		case bLatest:
			return 1
		}
		return compareNatural(b, a)
	})
}

// compareNatural compares a and b treating runs of digits as numbers.
func compareNatural(a, b string) int {
	for a != "" && b != "" {
		ra, restA := nextRun(a)
		rb, restB := nextRun(b)

		if c := compareRun(ra, rb); c != 0 {
			return c
		}
		a, b = restA, restB
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func nextRun(s string) (run, rest string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareRun(a, b string) int {
	if isDigit(a[0]) && isDigit(b[0]) {
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
