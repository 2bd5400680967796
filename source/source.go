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

// Package source enumerates and reads ingestion inputs from the local
// filesystem or from S3, and decodes them into text.
package source

import (
	"context"
	"errors"
	"path"
	"slices"
	"strings"
)

var (
	// ErrNotFound indicates the root or document does not exist.
	ErrNotFound = errors.New("source: not found")

	// ErrNotText indicates content that is neither valid UTF-8 nor a supported rich format.
	ErrNotText = errors.New("source: content is not text")

	// ErrInvalidURI indicates a malformed s3:// location.
	ErrInvalidURI = errors.New("source: invalid uri")
)

// Source lists and reads documents.
type Source interface {
	// List returns the matching document paths under root in lexicographic order.
	List(ctx context.Context, root string, opts ListOptions) ([]string, error)

	// Read returns the raw bytes of a document.
	Read(ctx context.Context, path string) ([]byte, error)
}

// ListOptions controls document discovery.
type ListOptions struct {
	Recursive bool

	// IncludeRich also matches formats that need conversion (docx, odt, rtf, html).
	IncludeRich bool
}

var (
	markdownShallow   = []string{".md", ".markdown"}
	markdownRecursive = []string{".md", ".markdown", ".mdown", ".mkd"}
	richExtensions    = []string{".docx", ".odt", ".rtf", ".html", ".htm"}
)

// Extensions returns the lowercase file extensions matched by opts.
func (o ListOptions) Extensions() []string {
	exts := markdownShallow
	if o.Recursive {
		exts = markdownRecursive
	}
	exts = slices.Clone(exts)
	if o.IncludeRich {
		exts = append(exts, richExtensions...)
	}
	return exts
}

// Matches reports whether name has a matched extension.
func (o ListOptions) Matches(name string) bool {
	return slices.Contains(o.Extensions(), strings.ToLower(path.Ext(name)))
}

// IsRich reports whether name needs conversion before it can be read as text.
func IsRich(name string) bool {
	return slices.Contains(richExtensions, strings.ToLower(path.Ext(name)))
}

// IsS3 reports whether p is an s3:// location.
func IsS3(p string) bool {
	return strings.HasPrefix(p, s3Scheme)
}
