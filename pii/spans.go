package pii

import (
	"sort"
	"unicode"
	"unicode/utf8"

	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// validSpans drops entities whose offsets fall outside the text, split a
// multi-byte rune, or cut a word in half.
func validSpans(text string, entities []detectors.Entity) []detectors.Entity {
	out := make([]detectors.Entity, 0, len(entities))
	for _, e := range entities {
		if e.StartPos < 0 || e.EndPos > len(text) || e.StartPos >= e.EndPos {
			continue
		}
		if !utf8.RuneStart(byteAt(text, e.StartPos)) || !utf8.RuneStart(byteAt(text, e.EndPos)) {
			continue
		}
		// Reject partial word matches. A letter or digit right before or
		// after the span means it is a substring of a longer token.
		if r, _ := utf8.DecodeLastRuneInString(text[:e.StartPos]); e.StartPos > 0 && isWordRune(r) && isWordRune(firstRune(text[e.StartPos:e.EndPos])) {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(text[e.EndPos:]); e.EndPos < len(text) && isWordRune(r) && isWordRune(lastRune(text[e.StartPos:e.EndPos])) {
			continue
		}
		e.Text = text[e.StartPos:e.EndPos]
		out = append(out, e)
	}
	return out
}

// byteAt returns the byte at i, or a rune-start byte at the end of the text.
func byteAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// resolveOverlaps keeps a non-overlapping subset of entities. Higher
// confidence wins, then the longer span, then the earlier start. The result
// is sorted by start offset.
func resolveOverlaps(entities []detectors.Entity) []detectors.Entity {
	candidates := make([]detectors.Entity, len(entities))
	copy(candidates, entities)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if la, lb := a.EndPos-a.StartPos, b.EndPos-b.StartPos; la != lb {
			return la > lb
		}
		return a.StartPos < b.StartPos
	})

	kept := make([]detectors.Entity, 0, len(candidates))
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if c.StartPos < k.EndPos && k.StartPos < c.EndPos {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].StartPos < kept[j].StartPos })
	return kept
}
