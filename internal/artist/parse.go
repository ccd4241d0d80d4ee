// Package artist turns free-text artist credits into normalized artist
// names and aggregates listening history into a per-artist view.
package artist

import "strings"

// reservedWords are placeholder tokens that must never surface as an
// artist identity ("Unknown", "Unknown Artist", "Podcast Episode", ...).
var reservedWords = map[string]struct{}{
	"unknown": {},
	"song":    {},
	"video":   {},
	"album":   {},
	"artist":  {},
	"podcast": {},
	"episode": {},
}

// splitDelimiters are applied in order. Each delimiter splits every piece
// produced by the previous ones, so ordering matters: ", " runs before the
// joiners that usually follow it in credits like "A, B & C feat. D".
var splitDelimiters = []string{
	", ", " & ", " and ", " feat. ", " feat ", " ft. ", " ft ",
	" featuring ", " x ", " vs ", " / ", "; ",
}

// leadingConjunctions are stripped at most once from the start of a
// fragment, case-insensitively.
var leadingConjunctions = []string{
	"and ", "feat ", "feat. ", "ft ", "ft. ", "featuring ", "with ",
}

// Parse splits a raw artist credit into individual artist names.
//
// Multi-artist credits arrive as a single string ("A, B & C",
// "Song A feat. Artist B"). Parse breaks them apart on the known joiner
// delimiters, trims a leading conjunction left over from the split, drops
// placeholder and single-character fragments and de-duplicates while
// preserving first-seen order.
//
// An empty result means the credit carries no attributable artist; callers
// decide the fallback. Parse never fails.
func Parse(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || IsReserved(raw) {
		return nil
	}

	parts := []string{raw}
	for _, delim := range splitDelimiters {
		next := make([]string, 0, len(parts))
		for _, part := range parts {
			next = append(next, strings.Split(part, delim)...)
		}
		parts = next
	}

	var names []string
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := stripLeadingConjunction(strings.TrimSpace(part))
		if len(name) <= 1 || IsReserved(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// IsReserved reports whether s is a placeholder rather than a real artist
// name. A string counts as reserved when every whitespace-separated word
// is a placeholder token, so both "Unknown" and "Unknown Artist" are
// rejected while "Song A" is not.
func IsReserved(s string) bool {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if _, ok := reservedWords[f]; !ok {
			return false
		}
	}
	return true
}

func stripLeadingConjunction(s string) string {
	lower := strings.ToLower(s)
	for _, conj := range leadingConjunctions {
		if strings.HasPrefix(lower, conj) {
			return strings.TrimSpace(s[len(conj):])
		}
	}
	return s
}
