// Package match provides fuzzy string matching for artist and track
// titles: normalization, Levenshtein similarity and best-candidate
// selection. Catalog results and Last.fm names rarely agree on casing,
// punctuation or edition suffixes, so comparisons go through Normalize
// first.
package match

import (
	"strings"
	"unicode"
)

// Normalize normalizes a string for comparison.
// Converts to lowercase, drops edition suffixes, removes punctuation and
// collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)

	// Edition suffixes cause mismatches between sources
	s = strings.TrimSuffix(s, " (remastered)")
	s = strings.TrimSuffix(s, " (remaster)")
	s = strings.TrimSuffix(s, " - remastered")
	s = strings.TrimSuffix(s, " - remaster")
	s = strings.TrimSuffix(s, " [remastered]")
	s = strings.TrimSuffix(s, " (official video)")
	s = strings.TrimSuffix(s, " (official audio)")
	s = strings.TrimSuffix(s, " (lyrics)")

	var result strings.Builder
	lastWasSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasSpace = false
		} else if unicode.IsSpace(r) || r == '-' || r == '_' {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		}
		// Other punctuation is dropped
	}

	return strings.TrimSpace(result.String())
}

// Similarity calculates the similarity between two strings using
// Levenshtein distance over their normalized forms.
// Returns a value between 0 and 1, where 1 means identical.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == nb {
		if na == "" {
			return 0.0
		}
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	dist := levenshteinDistance(na, nb)
	maxLen := max(len([]rune(na)), len([]rune(nb)))

	return 1.0 - float64(dist)/float64(maxLen)
}

// Best returns the candidate most similar to name along with its score,
// or "" when no candidate reaches the threshold. Exact normalized matches
// win immediately.
func Best(name string, candidates []string, threshold float64) (string, float64) {
	norm := Normalize(name)

	bestScore := 0.0
	best := ""
	for _, c := range candidates {
		if Normalize(c) == norm {
			return c, 1.0
		}
		if score := Similarity(name, c); score >= threshold && score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best, bestScore
}

// Contains reports whether the normalized haystack contains the
// normalized needle as a substring. Used to spot an artist name inside a
// catalog result title.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	runesA := []rune(a)
	runesB := []rune(b)

	lenA := len(runesA)
	lenB := len(runesB)

	// Two-row distance matrix
	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)

	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= lenA; i++ {
		curr[0] = i

		for j := 1; j <= lenB; j++ {
			cost := 1
			if runesA[i-1] == runesB[j-1] {
				cost = 0
			}

			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[lenB]
}
