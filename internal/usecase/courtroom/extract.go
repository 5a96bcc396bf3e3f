package courtroom

import (
	"regexp"
	"strconv"
	"strings"

	"virtual-courtroom/internal/domain"
)

// Extraction over free model text is heuristic. The rules below are kept
// stable so callers and tests can depend on them.

// DefaultLikelihood is used when no percentage appears in the text.
const DefaultLikelihood = 0.5

// MaxRecommendations caps the extracted recommendation list.
const MaxRecommendations = 5

var (
	reasoningMarker      = regexp.MustCompile(`(?i)reasoning:`)
	percentPattern       = regexp.MustCompile(`(\d+)%`)
	recommendationMarker = regexp.MustCompile(`(?i)recommendations|suggestions`)
)

// ExtractReasoning returns the trimmed text after the first case-insensitive
// "REASONING:" marker, in its original casing.
func ExtractReasoning(text string) (string, bool) {
	loc := reasoningMarker.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(text[loc[1]:]), true
}

// ExtractLikelihood converts the first "<digits>%" match to a fraction,
// clamped to [0,1]. Without a match it returns DefaultLikelihood.
func ExtractLikelihood(text string) float64 {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultLikelihood
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultLikelihood
	}
	return clamp01(n / 100)
}

// ExtractRecommendations takes the lines after the first
// "recommendations" or "suggestions" marker, strips bullet dashes, drops
// blank and heading lines and keeps the first MaxRecommendations.
func ExtractRecommendations(text string) []string {
	loc := recommendationMarker.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	// The marker line is a heading ("4. Recommendations for the client:"),
	// so the list starts on the next line.
	rest := text[loc[1]:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[i+1:]
	} else {
		return nil
	}

	var out []string
	for line := range strings.Lines(rest) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.Trim(line, "-"))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxRecommendations {
			break
		}
	}
	return out
}

// ExtractKeyFactors reports every factor whose name occurs in text,
// case-insensitively. Impact is positive when "favorable" occurs anywhere in
// text. Weight is high when the name occurs, which the match already
// guarantees, so medium is never produced.
func ExtractKeyFactors(text string, factors []domain.Factor) []domain.KeyFactor {
	lower := strings.ToLower(text)
	impact := domain.ImpactNegative
	if strings.Contains(lower, "favorable") {
		impact = domain.ImpactPositive
	}

	var out []domain.KeyFactor
	for _, f := range factors {
		name := strings.ToLower(f.Name)
		if !strings.Contains(lower, name) {
			continue
		}
		weight := domain.WeightMedium
		if strings.Contains(lower, name) {
			weight = domain.WeightHigh
		}
		out = append(out, domain.KeyFactor{Name: f.Name, Impact: impact, Weight: weight})
	}
	return out
}
