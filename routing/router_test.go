package routing

import (
	"testing"

	"github.com/poiesic/lorekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_Broad(t *testing.T) {
	tests := []struct {
		path string
		want core.Category
	}{
		{"Curse of the Crimson Throne Adventure Path.md", core.CategoryAdventurePath},
		{"session-adventure-notes.md", core.CategoryAdventurePath},
		{"/library/The Great ADVENTURE.md", core.CategoryAdventurePath},
		{"adventurepath-01.markdown", core.CategoryAdventurePath},
		{"Core Rulebook.md", core.CategoryRulebook},
		{"/adventures/Bestiary.md", core.CategoryRulebook},
		{"s3://books/adventure/Monster Manual.md", core.CategoryRulebook},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.path))
		})
	}
}

func TestRoute_Phrase(t *testing.T) {
	r := New(PolicyPhrase)

	assert.Equal(t, core.CategoryAdventurePath, r.Route("Curse of the Crimson Throne Adventure Path.md"))
	assert.Equal(t, core.CategoryAdventurePath, r.Route("adventurepath-01.md"))
	assert.Equal(t, core.CategoryRulebook, r.Route("session-adventure-notes.md"))
	assert.Equal(t, core.CategoryRulebook, r.Route("The Great Adventure.md"))
}

func TestExtractionEligible(t *testing.T) {
	r := New(PolicyBroad)
	assert.False(t, r.ExtractionEligible("Kingmaker Adventure Path.md"))
	assert.True(t, r.ExtractionEligible("Core Rulebook.md"))
}

func TestRoute_IsDeterministic(t *testing.T) {
	r := New(PolicyBroad)
	path := "/campaign/session-adventure-notes.md"
	first := r.Route(path)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Route(path))
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("broad")
	require.NoError(t, err)
	assert.Equal(t, PolicyBroad, p)

	p, err = ParsePolicy(" Phrase ")
	require.NoError(t, err)
	assert.Equal(t, PolicyPhrase, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBroad, p)

	_, err = ParsePolicy("fuzzy")
	require.Error(t, err)
}
