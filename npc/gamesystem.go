package npc

import "regexp"

// Game system labels assigned by DetectGameSystem.
const (
	SystemDnD5e      = "D&D 5e"
	SystemPathfinder = "Pathfinder"
	SystemStarWarsD6 = "Star Wars D6"
	SystemStarfinder = "Starfinder"
	minSystemMarkers = 2
)

type gameSystem struct {
	name    string
	markers []*regexp.Regexp
}

// gameSystems is checked in order; the first system with enough markers wins.
var gameSystems = []gameSystem{
	{SystemDnD5e, []*regexp.Regexp{
		regexp.MustCompile(`(?i)proficiency\s+bonus`),
		regexp.MustCompile(`(?i)\badvantage\b`),
		regexp.MustCompile(`(?i)\bdisadvantage\b`),
		regexp.MustCompile(`(?i)\binspiration\b`),
		regexp.MustCompile(`(?i)death\s+saves?`),
	}},
	{SystemPathfinder, []*regexp.Regexp{
		regexp.MustCompile(`(?i)base\s+attack\s+bonus`),
		regexp.MustCompile(`(?i)\bcmb\b`),
		regexp.MustCompile(`(?i)\bcmd\b`),
		regexp.MustCompile(`(?i)\bfortitude\b`),
		regexp.MustCompile(`(?i)\breflex\b`),
		regexp.MustCompile(`(?i)\bwill\b`),
	}},
	{SystemStarWarsD6, []*regexp.Regexp{
		regexp.MustCompile(`(?i)force\s+points?`),
		regexp.MustCompile(`(?i)dark\s+side\s+points?`),
		regexp.MustCompile(`(?i)character\s+points?`),
		// Die codes are written with a capital D, e.g. 4D+2.
		regexp.MustCompile(`\b\d+D(?:\+\d+)?\b`),
	}},
	{SystemStarfinder, []*regexp.Regexp{
		regexp.MustCompile(`(?i)stamina\s+points?`),
		regexp.MustCompile(`(?i)resolve\s+points?`),
		regexp.MustCompile(`(?i)\beac\b`),
		regexp.MustCompile(`(?i)\bkac\b`),
	}},
}

// DetectGameSystem labels the ruleset the text is written for, or returns
// the empty string when no system has at least two matching markers.
func DetectGameSystem(text string) string {
	for _, sys := range gameSystems {
		matches := 0
		for _, re := range sys.markers {
			if re.MatchString(text) {
				matches++
			}
		}
		if matches >= minSystemMarkers {
			return sys.name
		}
	}
	return ""
}
