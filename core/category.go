package core

import "fmt"

// Category is the closed set of destination collections a record can be routed to.
type Category int

const (
	// CategoryRulebook holds reference material.
	CategoryRulebook Category = iota + 1
	// CategoryAdventurePath holds campaign-specific narrative.
	CategoryAdventurePath
	// CategoryNPC holds canonical character records extracted from reference material.
	CategoryNPC
)

// Categories lists every destination category in a stable order.
func Categories() []Category {
	return []Category{CategoryRulebook, CategoryAdventurePath, CategoryNPC}
}

func (c Category) String() string {
	switch c {
	case CategoryRulebook:
		return "rulebook"
	case CategoryAdventurePath:
		return "adventure_path"
	case CategoryNPC:
		return "npc"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Suffix returns the fixed collection-name suffix for the category.
func (c Category) Suffix() string {
	switch c {
	case CategoryRulebook:
		return "_rulebooks"
	case CategoryAdventurePath:
		return "_adventurepaths"
	case CategoryNPC:
		return "_npcs"
	default:
		return ""
	}
}

// MarshalText encodes the category as its label.
func (c Category) MarshalText() ([]byte, error) {
	if err := ValidateCategory(c); err != nil {
		return nil, err
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category label.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory converts a label such as "rulebook" into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Collections derives destination collection names from a configured prefix.
type Collections struct {
	Prefix string
}

// Name returns prefix + category suffix.
func (c Collections) Name(category Category) string {
	return c.Prefix + category.Suffix()
}

// Names returns the collection name of every category.
func (c Collections) Names() map[Category]string {
	names := make(map[Category]string, 3)
	for _, category := range Categories() {
		names[category] = c.Name(category)
	}
	return names
}
