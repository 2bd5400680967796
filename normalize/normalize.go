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

// Package normalize cleans raw markdown documents and derives their metadata.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/lorekeeper/core"
)

var (
	frontmatterRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
	titleRe       = regexp.MustCompile(`(?m)^#{1,2}\s+(.+)$`)
	headerRe      = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
)

// Normalize cleans raw text and extracts its metadata. Metadata is derived from
// the raw text so front matter is still visible to the extractor.
func Normalize(raw string) (string, core.Metadata) {
	return Clean(raw), ExtractMetadata(raw)
}

// Document builds a core.Document for path from its raw contents.
func Document(path, raw string) *core.Document {
	text, metadata := Normalize(raw)
	return &core.Document{
		Path:     path,
		Raw:      raw,
		Text:     text,
		Metadata: metadata,
	}
}

// Clean removes a leading front-matter block and HTML comments, collapses runs of
// three or more newlines to a single blank line and trims the result.
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = frontmatterRe.ReplaceAllString(text, "")
	text = htmlCommentRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ExtractMetadata derives best-effort metadata from raw text. Every field is optional.
func ExtractMetadata(raw string) core.Metadata {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	metadata := core.Metadata{
		ContentHash: core.ContentHash([]byte(raw)),
		CharCount:   utf8.RuneCountInString(raw),
		LineCount:   strings.Count(raw, "\n") + 1,
		Frontmatter: parseFrontmatter(text),
		Hints:       DetectHints(text),
	}

	if m := titleRe.FindStringSubmatch(text); m != nil {
		metadata.Title = strings.TrimSpace(m[1])
	}
	for _, m := range headerRe.FindAllStringSubmatch(text, -1) {
		metadata.Headers = append(metadata.Headers, strings.TrimSpace(m[1]))
	}

	return metadata
}

// parseFrontmatter reads flat key: value pairs; the first colon splits key from value.
func parseFrontmatter(text string) map[string]string {
	m := frontmatterRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	pairs := make(map[string]string)
	for _, line := range strings.Split(m[1], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		pairs[key] = strings.TrimSpace(value)
	}
	return pairs
}
