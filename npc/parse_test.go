package npc

import (
	"testing"

	"github.com/poiesic/lorekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		v, err := decodeResponse("```json\n{\"npcs\": []}\n```")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"npcs": []any{}}, v)
	})

	t.Run("repairs missing key quote", func(t *testing.T) {
		v, err := decodeResponse(`{"name": "Goblin", level": 2}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "Goblin", "level": float64(2)}, v)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := decodeResponse("I found two NPCs!")
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr error
	}{
		{"wrapper", map[string]any{"npcs": []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}}}, 2, nil},
		{"list", []any{map[string]any{"name": "A"}}, 1, nil},
		{"single", map[string]any{"name": "A"}, 1, nil},
		{"list skips scalars", []any{"A", map[string]any{"name": "B"}, nil}, 1, nil},
		{"empty list", []any{}, 0, nil},
		{"wrapper not a list", map[string]any{"npcs": "none"}, 0, ErrUnsupportedShape},
		{"object without name", map[string]any{"characters": []any{}}, 0, ErrUnsupportedShape},
		{"scalar", "nothing", 0, ErrUnsupportedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := candidates(tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, DefaultConfidence, confidence(map[string]any{}), 1e-9)
	assert.InDelta(t, DefaultConfidence, confidence(map[string]any{"confidence_score": "high"}), 1e-9)
	assert.InDelta(t, 0.95, confidence(map[string]any{"confidence_score": 0.95}), 1e-9)
	assert.InDelta(t, 0.6, confidence(map[string]any{"confidence_score": "0.6"}), 1e-9)
	for _, v := range []string{"NaN", "Inf", "-Inf", "+Infinity"} {
		assert.InDelta(t, DefaultConfidence, confidence(map[string]any{"confidence_score": v}), 1e-9, v)
	}
}

func TestCoerce(t *testing.T) {
	rec := map[string]any{
		"name":             "Sir Aldric",
		"level":            float64(5),
		"hit_points":       float64(45),
		"armor_class":      "18 (plate)",
		"strength":         "16",
		"dexterity":        "high",
		"wisdom":           12.5,
		"skills":           []any{"Athletics +5", float64(3), nil, ""},
		"equipment":        "Longsword",
		"attacks":          []any{},
		"force_sensitive":  "true",
		"dark_side_points": float64(1),
		"unknown_field":    "ignored",
	}

	n := coerce(rec)

	assert.Equal(t, "Sir Aldric", n.Name)
	require.NotNil(t, n.Level)
	assert.Equal(t, 5, *n.Level)
	assert.Equal(t, "45", n.HitPoints)
	assert.Equal(t, "18 (plate)", n.ArmorClass)
	require.NotNil(t, n.Strength)
	assert.Equal(t, 16, *n.Strength)
	assert.Nil(t, n.Dexterity)
	assert.Nil(t, n.Wisdom)
	assert.Equal(t, []string{"Athletics +5", "3"}, n.Skills)
	assert.Equal(t, []string{"Longsword"}, n.Equipment)
	assert.Nil(t, n.Attacks)
	require.NotNil(t, n.ForceSensitive)
	assert.True(t, *n.ForceSensitive)
	require.NotNil(t, n.DarkSidePoints)
	assert.Equal(t, 1, *n.DarkSidePoints)
}

func TestCoerce_DefaultsName(t *testing.T) {
	assert.Equal(t, core.UnknownNPCName, coerce(map[string]any{}).Name)
	assert.Equal(t, core.UnknownNPCName, coerce(map[string]any{"name": "  "}).Name)
	assert.Equal(t, core.UnknownNPCName, coerce(map[string]any{"name": nil}).Name)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "żół", truncateRunes("żółw", 3))
	assert.Empty(t, truncateRunes("abc", 0))
}
