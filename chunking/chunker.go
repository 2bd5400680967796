// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chunking splits normalized document text into overlapping passages
// that end on sentence or word boundaries whenever possible.
//
// Sizes and overlaps are measured in characters (runes), not bytes.
package chunking

import (
	"iter"
	"slices"
	"strings"

	"github.com/poiesic/lorekeeper/core"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters repeated at the start of the next chunk.
const DefaultChunkOverlap = 200

// Sentence terminators, all tried on every window; the one closest to the window end wins.
var sentenceTerminators = [][]rune{
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune("\n\n"),
}

var space = []rune(" ")

// Chunker splits text with a fixed size and overlap.
// A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a Chunker. It returns an error when the size/overlap relationship is invalid.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := core.ValidateChunkParams(c.size, c.overlap); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the configured maximum chunk size.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split returns every chunk of text in order.
func (c *Chunker) Split(text string) []string {
	return slices.Collect(c.All(text))
}

// All yields the chunks of text lazily. The sequence is a pure function of text
// and may be iterated any number of times.
func (c *Chunker) All(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		n := len(runes)
		cursor := 0
		for cursor < n {
			end := min(cursor+c.size, n)
			cut := end
			if end < n {
				cut = breakPoint(runes, cursor+c.overlap, end)
			}

			if chunk := strings.TrimSpace(string(runes[cursor:cut])); chunk != "" {
				if !yield(chunk) {
					return
				}
			}

			if cut >= n {
				return
			}

			// cursor must strictly advance even when the break lands inside the overlap
			next := cut - c.overlap
			if next <= cursor {
				next = cursor + 1
			}
			cursor = next
		}
	}
}

// Chunks splits a document's normalized text and attaches the document's identity to each chunk.
func (c *Chunker) Chunks(doc *core.Document) []core.Chunk {
	texts := c.Split(doc.Text)
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			Index:    i,
			Total:    len(texts),
			Text:     text,
			FilePath: doc.Path,
			Filename: doc.Filename(),
			Hints:    doc.Metadata.Hints,
		}
	}
	return chunks
}

// Split chunks text with the given size and overlap.
func Split(text string, maxSize, overlap int) ([]string, error) {
	c, err := New(WithChunkSize(maxSize), WithOverlap(overlap))
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// breakPoint picks the cut position for a window ending at end, never searching before lo.
// Preference: nearest sentence terminator, then nearest space, then the hard end.
func breakPoint(runes []rune, lo, end int) int {
	best := -1
	for _, term := range sentenceTerminators {
		if pos := lastIndex(runes, term, lo, end); pos >= 0 {
			// cut just after the terminating punctuation (or between the blank-line newlines)
			if cut := pos + len(term) - 1; cut > best {
				best = cut
			}
		}
	}
	if best >= 0 {
		return best
	}
	if pos := lastIndex(runes, space, lo, end); pos >= 0 {
		return pos
	}
	return end
}

// lastIndex returns the start of the last occurrence of sub lying entirely within runes[lo:end], or -1.
func lastIndex(runes, sub []rune, lo, end int) int {
	for i := end - len(sub); i >= lo; i-- {
		if slices.Equal(runes[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
