// Package text prepares raw scripts for speech synthesis: it strips
// lightweight markup into speakable plain text and splits the result into
// sentence units, the atomic unit of generation and playback.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	linkPattern    = regexp.MustCompile(`!?\[[^\]]*\]\([^)]*\)`)
	headingPattern = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	bulletPattern  = regexp.MustCompile(`(?m)^\s*[-*+•]\s+`)
	blankPattern   = regexp.MustCompile(`\n\s*\n`)
	markerPattern  = regexp.MustCompile("[*_`~]")
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Normalize converts lightweight-markup text into plain speakable text.
// Links are dropped entirely, headings lose their markers, bullet items
// become comma pauses, paragraph breaks become a period pause, and all
// whitespace runs collapse to single spaces. Normalize is idempotent.
func Normalize(s string) string {
	s = linkPattern.ReplaceAllString(s, "")
	s = headingPattern.ReplaceAllString(s, "")
	s = bulletPattern.ReplaceAllString(s, ", ")
	s = markerPattern.ReplaceAllString(s, "")
	// Stripping emphasis markers can uncover a bullet ("*- item"); convert
	// those too, otherwise a second pass would produce a different result.
	s = bulletPattern.ReplaceAllString(s, ", ")
	s = blankPattern.ReplaceAllString(s, ". ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// isTerminator reports whether r ends a sentence. The CJK full stop is
// included so multilingual scripts segment properly.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。'
}

// Segment normalizes the input and splits it into ordered sentence units.
// A split happens on sentence-ending punctuation followed by whitespace;
// input with no terminator is returned as a single unit. Empty or
// whitespace-only input yields nil.
func Segment(s string) []string {
	norm := Normalize(s)
	if norm == "" {
		return nil
	}

	var units []string
	var b strings.Builder
	runes := []rune(norm)
	for i, r := range runes {
		b.WriteRune(r)
		if isTerminator(r) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if unit := strings.TrimSpace(b.String()); unit != "" {
				units = append(units, unit)
			}
			b.Reset()
		}
	}
	if tail := strings.TrimSpace(b.String()); tail != "" {
		units = append(units, tail)
	}
	return units
}
