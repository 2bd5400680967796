package npc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"prose", "The innkeeper greets the party warmly.", 0},
		{"single keyword", "STR 14", 1},
		{"two families", "STR 14, DEX 12", 2},
		{"same family twice", "STR 14 and Strength: 16", 1},
		{"full block", "Armor Class 15\nHit Points 45\nSTR 16 DEX 12 CON 14 INT 10 WIS 11 CHA 9\nChallenge 3", 9},
		{"abbreviations", "AC 12, HP 7", 2},
		{"hit dice and level", "HD 4; Level 3", 1},
		{"challenge rating fraction", "CR 1/4 and STR 8", 2},
		{"no word boundary", "constrict 5 and destroy 3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.text))
		})
	}
}

func TestDetectCandidates(t *testing.T) {
	hit := "STR 14, DEX 12"
	miss := "Plain narrative text."

	tests := []struct {
		name   string
		chunks []string
		want   [][]int
	}{
		{"none", []string{miss, miss}, nil},
		{"single", []string{miss, hit}, [][]int{{1}}},
		{"consecutive", []string{hit, hit, miss}, [][]int{{0, 1}}},
		{"one gap bridged", []string{hit, miss, hit}, [][]int{{0, 2}}},
		{"two gaps split", []string{hit, miss, miss, hit}, [][]int{{0}, {3}}},
		{"chain", []string{miss, hit, miss, hit, hit, miss, miss, miss, hit}, [][]int{{1, 3, 4}, {8}}},
		{"one keyword is not enough", []string{"STR 14", "DEX 12"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCandidates(tt.chunks))
		})
	}
}

func TestDetectCandidates_SplitBlock(t *testing.T) {
	text := strings.Repeat("x", 2485) + " STR 14, DEX 12"
	chunks := []string{text[:1000], text[800:1800], text[1600:]}

	assert.Equal(t, [][]int{{2}}, DetectCandidates(chunks))
}

func TestWindow(t *testing.T) {
	chunks := []string{"a", "b", "c"}

	assert.Equal(t, "a c", Window(chunks, []int{0, 2}))
	assert.Equal(t, "b", Window(chunks, []int{1, 7}))
	assert.Empty(t, Window(chunks, nil))
}

func TestDetectGameSystem(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Proficiency Bonus +2. Attack rolls have advantage.", SystemDnD5e},
		{"Fortitude +5, Reflex +3, Will +1; CMB +4", SystemPathfinder},
		{"Blaster 4D+2, Force Points 2, Character Points 5", SystemStarWarsD6},
		{"Stamina Points 20, Resolve Points 3, EAC 14", SystemStarfinder},
		{"A quiet village by the river.", ""},
		{"Only one marker: fortitude.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectGameSystem(tt.text))
		})
	}
}
