package pii

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLocationWords = 3

// GazetteerDetector finds person and location names with word lists and
// context keywords. It covers the PERSON and LOCATION tags when no NER
// model is configured.
type GazetteerDetector struct {
	givenNames map[string]bool
	locations  map[string]float64
	wordRe     *regexp.Regexp
	personRe   *regexp.Regexp
	locationRe *regexp.Regexp
	streetRe   *regexp.Regexp
}

func NewGazetteerDetector() *GazetteerDetector {
	fold := newKeyFolder()

	names := make(map[string]bool, len(givenNames))
	for _, n := range givenNames {
		names[foldKey(fold, n)] = true
	}

	locations := make(map[string]float64, len(usStates)+len(cities))
	for _, c := range cities {
		score := 0.7
		if strings.Contains(c, " ") {
			score = 0.85
		}
		locations[foldKey(fold, c)] = score
	}
	for _, s := range usStates {
		locations[foldKey(fold, s)] = 0.85
	}

	// RE2's \b only knows ASCII word characters, so matches are anchored
	// with bounded instead.
	capitalized := `\p{Lu}[\p{Ll}\p{M}]+(?:[-'’]\p{Lu}[\p{Ll}\p{M}]+)*`
	return &GazetteerDetector{
		givenNames: names,
		locations:  locations,
		wordRe:     regexp.MustCompile(capitalized),
		personRe: regexp.MustCompile(`(?:` + strings.Join(personContext, "|") + `)\s+(` +
			capitalized + `(?:\s+\p{Lu}\.)?(?:\s+` + capitalized + `){0,2})`),
		locationRe: regexp.MustCompile(`(?:` + strings.Join(locationContext, "|") + `)\s+(` +
			capitalized + `(?:\s+` + capitalized + `){0,2})`),
		streetRe: regexp.MustCompile(`\d{1,5}(?:\s+` + capitalized + `){1,3}\s+(?:` +
			strings.Join(streetSuffixes, "|") + `)`),
	}
}

// GetName returns the name of this detector
func (g *GazetteerDetector) GetName() string {
	return DetectorNameGazetteer
}

// SupportedEntities returns the labels this detector can emit.
func (g *GazetteerDetector) SupportedEntities() []string {
	return []string{EntityLocation, EntityPerson}
}

// Detect processes the input and returns detected entities
func (g *GazetteerDetector) Detect(ctx context.Context, input DetectorInput) (DetectorOutput, error) {
	if err := ctx.Err(); err != nil {
		return DetectorOutput{}, err
	}

	// transformers are stateful, so each call folds with its own
	fold := newKeyFolder()
	words := boundedMatches(input.Text, g.wordRe.FindAllStringIndex(input.Text, -1))

	var entities []Entity
	if input.Wants(EntityPerson) {
		entities = append(entities, g.detectPersons(input.Text, words, fold)...)
	}
	if input.Wants(EntityLocation) {
		entities = append(entities, g.detectLocations(input.Text, words, fold)...)
	}

	return DetectorOutput{
		Text:     input.Text,
		Entities: entities,
	}, nil
}

func (g *GazetteerDetector) detectPersons(text string, words [][]int, fold transform.Transformer) []Entity {
	var entities []Entity

	for _, m := range boundedMatches(text, g.personRe.FindAllStringSubmatchIndex(text, -1)) {
		entities = append(entities, g.entity(text, m[2], m[3], EntityPerson, 0.85, "context"))
	}

	for i, w := range words {
		if !g.givenNames[foldKey(fold, text[w[0]:w[1]])] {
			continue
		}
		end, score := w[1], 0.6
		if i+1 < len(words) && adjacent(text, w[1], words[i+1][0]) {
			end, score = words[i+1][1], 0.85
		}
		entities = append(entities, g.entity(text, w[0], end, EntityPerson, score, "given_name"))
	}

	return entities
}

func (g *GazetteerDetector) detectLocations(text string, words [][]int, fold transform.Transformer) []Entity {
	var entities []Entity

	for i := 0; i < len(words); i++ {
		for n := maxLocationWords; n >= 1; n-- {
			if i+n > len(words) {
				continue
			}
			parts := make([]string, 0, n)
			ok := true
			for k := i; k < i+n; k++ {
				if k > i && !adjacent(text, words[k-1][1], words[k][0]) {
					ok = false
					break
				}
				parts = append(parts, text[words[k][0]:words[k][1]])
			}
			if !ok {
				continue
			}
			score, found := g.locations[foldKey(fold, strings.Join(parts, " "))]
			if !found {
				continue
			}
			entities = append(entities, g.entity(text, words[i][0], words[i+n-1][1], EntityLocation, score, "place"))
			i += n - 1
			break
		}
	}

	for _, m := range boundedMatches(text, g.streetRe.FindAllStringIndex(text, -1)) {
		entities = append(entities, g.entity(text, m[0], m[1], EntityLocation, 0.7, "street"))
	}

	for _, m := range boundedMatches(text, g.locationRe.FindAllStringSubmatchIndex(text, -1)) {
		entities = append(entities, g.entity(text, m[2], m[3], EntityLocation, 0.6, "context"))
	}

	return entities
}

func (g *GazetteerDetector) entity(text string, start, end int, label string, score float64, rule string) Entity {
	return Entity{
		Text:       text[start:end],
		Label:      label,
		StartPos:   start,
		EndPos:     end,
		Confidence: score,
		Source:     DetectorNameGazetteer + ":" + rule,
	}
}

// newKeyFolder returns a transformer that strips accents and case folds,
// so "José" and "jose" share a lookup key.
func newKeyFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
}

func foldKey(t transform.Transformer, s string) string {
	key, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return key
}

// boundedMatches keeps the matches whose full span is not glued to a
// neighbouring letter, digit or combining mark.
func boundedMatches(text string, matches [][]int) [][]int {
	out := matches[:0]
	for _, m := range matches {
		if bounded(text, m[0], m[1]) {
			out = append(out, m)
		}
	}
	return out
}

func bounded(text string, start, end int) bool {
	if r, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordChar(r) {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && isWordChar(r) {
		return false
	}
	return true
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

// adjacent reports whether only spaces separate two word offsets.
func adjacent(text string, end, nextStart int) bool {
	if nextStart <= end {
		return false
	}
	return strings.Trim(text[end:nextStart], " ") == ""
}

// Close implements the Detector interface
func (g *GazetteerDetector) Close() error {
	return nil
}
