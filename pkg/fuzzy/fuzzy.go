package fuzzy

import (
	"strings"
	"unicode"
)

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two rolling rows are enough
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// CourseKey reduces a course label to a comparison key: upper case letters
// and digits only, so "cs 101", "CS-101" and "CS101" share a key.
func CourseKey(label string) string {
	var b strings.Builder
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalCourse returns the entry of known that label refers to, or label
// itself when nothing is close enough. Two labels match when their keys are
// equal, or when they carry the same course number and their keys are within
// threshold edits of each other.
func CanonicalCourse(label string, known []string, threshold int) string {
	key := CourseKey(label)
	if key == "" {
		return label
	}

	best := ""
	bestDist := threshold + 1
	for _, candidate := range known {
		candidateKey := CourseKey(candidate)
		if candidateKey == key {
			return candidate
		}
		if digits(candidateKey) != digits(key) {
			continue
		}
		if d := LevenshteinDistance(key, candidateKey); d < bestDist {
			best = candidate
			bestDist = d
		}
	}

	if best != "" {
		return best
	}
	return label
}
