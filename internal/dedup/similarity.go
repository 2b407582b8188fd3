package dedup

import "strings"

// similarityRatio returns a 0-100 similarity between two strings, computed
// as normalized indel similarity: 100 * 2*LCS / (len(a)+len(b)). Comparison
// is case-insensitive and rune-based.
func similarityRatio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	matched := lcsLength(ra, rb)
	return 100 * float64(2*matched) / float64(len(ra)+len(rb))
}

// lcsLength computes the longest-common-subsequence length with a rolling
// single-row table.
func lcsLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
