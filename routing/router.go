// Package routing classifies documents into destination categories by filename.
package routing

import (
	"fmt"
	"strings"

	"github.com/poiesic/lorekeeper/core"
)

// Policy selects how adventure content is recognized in a filename.
type Policy int

const (
	// PolicyBroad routes any filename containing "adventure" to the adventure-path category.
	PolicyBroad Policy = iota
	// PolicyPhrase only matches the literal phrases "adventure path" or "adventurepath".
	PolicyPhrase
)

func (p Policy) String() string {
	switch p {
	case PolicyBroad:
		return "broad"
	case PolicyPhrase:
		return "phrase"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts "broad" or "phrase" into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "broad":
		return PolicyBroad, nil
	case "phrase":
		return PolicyPhrase, nil
	}
	return 0, fmt.Errorf("unknown router policy %q: must be broad or phrase", s)
}

// Router is a pure function of a document path. The zero value uses PolicyBroad.
type Router struct {
	policy Policy
}

// New creates a Router for the given policy.
func New(policy Policy) Router {
	return Router{policy: policy}
}

// Policy returns the router's policy.
func (r Router) Policy() Policy {
	return r.policy
}

// Route returns the destination category for the document at path.
// NPC records are produced by extraction and are never a routing result.
func (r Router) Route(path string) core.Category {
	name := strings.ToLower(core.Filename(path))
	if r.isAdventure(name) {
		return core.CategoryAdventurePath
	}
	return core.CategoryRulebook
}

// ExtractionEligible reports whether NPC extraction may run for the document at path.
// Adventure-path documents are never eligible.
func (r Router) ExtractionEligible(path string) bool {
	return r.Route(path) != core.CategoryAdventurePath
}

func (r Router) isAdventure(lowerName string) bool {
	switch r.policy {
	case PolicyPhrase:
		return strings.Contains(lowerName, "adventure path") ||
			strings.Contains(lowerName, "adventurepath")
	default:
		return strings.Contains(lowerName, "adventure")
	}
}

// Route classifies path with the broad policy.
func Route(path string) core.Category {
	return Router{}.Route(path)
}
