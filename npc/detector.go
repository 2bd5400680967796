package npc

import (
	"regexp"
	"strings"
)

// MinPatternFamilies is the number of distinct stat-block patterns a chunk
// must match to be treated as a candidate.
const MinPatternFamilies = 2

// maxGroupGap is the largest index difference merged into one group.
// A difference of 2 bridges exactly one non-matching chunk.
const maxGroupGap = 2

// statBlockPatterns are the ten stat-block pattern families. Each family
// counts at most once per chunk.
var statBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:str|strength)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:dex|dexterity)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:con|constitution)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:int|intelligence)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:wis|wisdom)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:cha|charisma)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:hit\s*points?|hp)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:armor\s*class|ac)\s*:?\s*\d+`),
	regexp.MustCompile(`(?i)\b(?:challenge(?:\s*rating)?|cr)\s*:?\s*[\d/]+`),
	regexp.MustCompile(`(?i)\b(?:level|hd|hit\s*dice)\s*:?\s*\d+`),
}

// Score returns the number of distinct stat-block pattern families the text matches.
func Score(text string) int {
	score := 0
	for _, re := range statBlockPatterns {
		if re.MatchString(text) {
			score++
		}
	}
	return score
}

// IsCandidate reports whether the text matches enough pattern families.
func IsCandidate(text string) bool {
	return Score(text) >= MinPatternFamilies
}

// DetectCandidates returns groups of qualifying chunk indices in ascending
// order. Indices at most one non-matching chunk apart share a group; only
// qualifying indices are members.
func DetectCandidates(chunks []string) [][]int {
	var groups [][]int
	var current []int

	for i, chunk := range chunks {
		if !IsCandidate(chunk) {
			continue
		}
		if len(current) > 0 && i-current[len(current)-1] > maxGroupGap {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, i)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// Window joins the chunks named by group with single spaces.
func Window(chunks []string, group []int) string {
	parts := make([]string, 0, len(group))
	for _, idx := range group {
		if idx >= 0 && idx < len(chunks) {
			parts = append(parts, chunks[idx])
		}
	}
	return strings.Join(parts, " ")
}
