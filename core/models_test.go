package core

import (
	"testing"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := ContentHash([]byte(tt.content))
			h2 := ContentHash([]byte(tt.content))

			if h1 != h2 {
				t.Errorf("ContentHash() produced different hashes for same content: %s vs %s", h1, h2)
			}
			if len(h1) != 64 {
				t.Errorf("ContentHash() length = %d, want 64", len(h1))
			}
		})
	}
}

func TestContentHash_Different(t *testing.T) {
	if ContentHash([]byte("content1")) == ContentHash([]byte("content2")) {
		t.Errorf("ContentHash() produced same hash for different content")
	}
}

func TestHints(t *testing.T) {
	var empty Hints
	if len(empty.Tags()) != 0 {
		t.Errorf("empty set has tags: %v", empty.Tags())
	}

	s := empty.With(HintAdventure).With(HintNPC).With(HintNPC)
	if empty != 0 {
		t.Errorf("With mutated the receiver")
	}
	if !s.Has(HintNPC) || !s.Has(HintAdventure) || s.Has(HintRulebook) {
		t.Errorf("unexpected membership: %08b", s)
	}

	tags := s.Tags()
	want := []string{"npc_content", "adventure_content"}
	if len(tags) != len(want) {
		t.Fatalf("Tags() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("Tags()[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/books/Core Rulebook.md", "Core Rulebook.md"},
		{"s3://bucket/campaigns/Adventure Path.md", "Adventure Path.md"},
		{"plain.md", "plain.md"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Filename(tt.path); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		category Category
		label    string
		suffix   string
	}{
		{CategoryRulebook, "rulebook", "_rulebooks"},
		{CategoryAdventurePath, "adventure_path", "_adventurepaths"},
		{CategoryNPC, "npc", "_npcs"},
	}

	collections := Collections{Prefix: "game"}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if tt.category.String() != tt.label {
				t.Errorf("String() = %q, want %q", tt.category.String(), tt.label)
			}
			if tt.category.Suffix() != tt.suffix {
				t.Errorf("Suffix() = %q, want %q", tt.category.Suffix(), tt.suffix)
			}
			if got := collections.Name(tt.category); got != "game"+tt.suffix {
				t.Errorf("Name() = %q", got)
			}

			parsed, err := ParseCategory(tt.label)
			if err != nil || parsed != tt.category {
				t.Errorf("ParseCategory(%q) = %v, %v", tt.label, parsed, err)
			}
		})
	}

	if _, err := ParseCategory("spellbook"); err == nil {
		t.Errorf("ParseCategory accepted an unknown label")
	}
	if len(collections.Names()) != 3 {
		t.Errorf("Names() = %v", collections.Names())
	}
}

func TestNPC_EmbeddingText(t *testing.T) {
	npc := NPC{Name: "Goblin Boss"}
	if got := npc.EmbeddingText(); got != "Goblin Boss" {
		t.Errorf("EmbeddingText() = %q", got)
	}
	npc.Description = "A cunning leader"
	if got := npc.EmbeddingText(); got != "A cunning leader" {
		t.Errorf("EmbeddingText() = %q", got)
	}
	npc.RawText = "Goblin Boss STR 10 DEX 14"
	if got := npc.EmbeddingText(); got != "Goblin Boss STR 10 DEX 14" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestNPC_Payload(t *testing.T) {
	str := 14
	npc := NPC{Name: "Goblin Boss", Strength: &str, Canonical: true, ConfidenceScore: 0.9}

	payload, err := npc.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if payload["name"] != "Goblin Boss" {
		t.Errorf("name = %v", payload["name"])
	}
	if payload["strength"] != float64(14) {
		t.Errorf("strength = %v", payload["strength"])
	}
	if _, ok := payload["dexterity"]; ok {
		t.Errorf("absent field present in payload")
	}
	if payload["canonical"] != true {
		t.Errorf("canonical = %v", payload["canonical"])
	}
}
