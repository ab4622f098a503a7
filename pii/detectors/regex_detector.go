package pii

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

// RegexDetector implements Detector using regular expressions
type RegexDetector struct {
	patterns []compiledPattern
}

func NewRegexDetector(patterns []Pattern) *RegexDetector {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, compiledPattern{
			Pattern: p,
			re:      regexp.MustCompile(p.Expr),
		})
	}

	return &RegexDetector{
		patterns: compiled,
	}
}

// GetName returns the name of this detector
func (r *RegexDetector) GetName() string {
	return DetectorNameRegex
}

// SupportedEntities returns the labels covered by the configured patterns.
func (r *RegexDetector) SupportedEntities() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range r.patterns {
		if !seen[p.Label] {
			seen[p.Label] = true
			labels = append(labels, p.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Detect processes the input and returns detected entities
func (r *RegexDetector) Detect(ctx context.Context, input DetectorInput) (DetectorOutput, error) {
	var entities []Entity

	for _, p := range r.patterns {
		if err := ctx.Err(); err != nil {
			return DetectorOutput{}, err
		}
		if !input.Wants(p.Label) {
			continue
		}

		for _, match := range p.re.FindAllStringSubmatchIndex(input.Text, -1) {
			startPos, endPos := match[0], match[1]
			if p.Group > 0 {
				if 2*p.Group+1 >= len(match) || match[2*p.Group] < 0 {
					continue
				}
				startPos, endPos = match[2*p.Group], match[2*p.Group+1]
			}

			matchedText := input.Text[startPos:endPos]
			if p.Trim != "" {
				trimmed := strings.TrimRight(matchedText, p.Trim)
				endPos -= len(matchedText) - len(trimmed)
				matchedText = trimmed
			}
			if matchedText == "" {
				continue
			}
			if p.Validate != nil && !p.Validate(matchedText) {
				continue
			}

			entities = append(entities, Entity{
				Text:       matchedText,
				Label:      p.Label,
				StartPos:   startPos,
				EndPos:     endPos,
				Confidence: p.Score,
				Source:     DetectorNameRegex + ":" + p.Name,
			})
		}
	}

	return DetectorOutput{
		Text:     input.Text,
		Entities: entities,
	}, nil
}

// Close implements the Detector interface
func (r *RegexDetector) Close() error {
	// Regex detector doesn't need cleanup
	return nil
}
