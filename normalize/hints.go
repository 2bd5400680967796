package normalize

import (
	"regexp"
	"strings"

	"github.com/poiesic/lorekeeper/core"
)

type hintFamily struct {
	hint     core.Hints
	patterns []*regexp.Regexp
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Patterns run against lowercased text.
var hintFamilies = []hintFamily{
	{
		hint: core.HintNPC,
		patterns: compileAll(
			`\bstats?\b`,
			`\bhit points?\b`,
			`\barmor class\b`,
			`\b(?:str|dex|con|int|wis|cha)\s*\d+\b`,
			`\bchallenge rating\b`,
			`\bcr\s*\d+`,
			`\bnpcs?\b`,
			`\bcreatures?\b`,
			`\bmonsters?\b`,
		),
	},
	{
		hint: core.HintRulebook,
		patterns: compileAll(
			`\brules?\b`,
			`\bmechanics?\b`,
			`\bgame(?:play)?\b`,
			`\bchapter\s+\d+`,
			`\bsection\s+\d+`,
			`\bappendix\b`,
		),
	},
	{
		hint: core.HintAdventure,
		patterns: compileAll(
			`\badventures?\b`,
			`\bcampaigns?\b`,
			`\bquests?\b`,
			`\bencounter\s+\d+`,
			`\bscene\s+\d+`,
			`\bact\s+\d+`,
		),
	},
}

// DetectHints tests the lowercased text against each hint family.
// A family contributes its hint once, however many of its patterns match.
func DetectHints(text string) core.Hints {
	lower := strings.ToLower(text)
	var hints core.Hints
	for _, family := range hintFamilies {
		for _, re := range family.patterns {
			if re.MatchString(lower) {
				hints = hints.With(family.hint)
				break
			}
		}
	}
	return hints
}
