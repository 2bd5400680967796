package core

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash returns a stable hex digest of raw document bytes using BLAKE2b-256.
// Identical bytes always produce identical hashes.
func ContentHash(raw []byte) string {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}

// Hints is an immutable set of content-hint tags derived from a document's text.
type Hints uint8

const (
	// HintNPC marks text that looks like it contains creature or character statistics.
	HintNPC Hints = 1 << iota
	// HintRulebook marks text that looks like rules or reference material.
	HintRulebook
	// HintAdventure marks text that looks like campaign or adventure narrative.
	HintAdventure
)

var hintTags = []struct {
	hint Hints
	tag  string
}{
	{HintNPC, "npc_content"},
	{HintRulebook, "rulebook_content"},
	{HintAdventure, "adventure_content"},
}

// With returns a new set containing h in addition to the receiver's hints.
func (s Hints) With(h Hints) Hints {
	return s | h
}

// Has reports whether every hint in h is present.
func (s Hints) Has(h Hints) bool {
	return h != 0 && s&h == h
}

// Tags returns the hint tags in a fixed order.
func (s Hints) Tags() []string {
	tags := make([]string, 0, len(hintTags))
	for _, ht := range hintTags {
		if s.Has(ht.hint) {
			tags = append(tags, ht.tag)
		}
	}
	return tags
}

// Metadata holds the lightweight, best-effort attributes derived from a document.
type Metadata struct {
	Title       string
	Headers     []string
	Frontmatter map[string]string
	Hints       Hints
	ContentHash string
	CharCount   int
	LineCount   int
}

// Document is a single ingestion input, identified by its path.
// It is read once per ingestion attempt and never mutated.
type Document struct {
	Path     string
	Raw      string
	Text     string // normalized text
	Metadata Metadata
}

// Filename returns the last element of the document path.
// Works for both filesystem paths and object-store keys.
func (d *Document) Filename() string {
	return Filename(d.Path)
}

// Filename returns the last path element of p, accepting both OS and slash separators.
func Filename(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return filepath.Base(p)
}

// Chunk is a contiguous span of a document's normalized text.
type Chunk struct {
	Index    int
	Total    int
	Text     string
	FilePath string
	Filename string
	Hints    Hints
}
