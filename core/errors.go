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

package core

import "errors"

// Domain validation errors
var (
	// ErrUnknownCategory indicates a category label or value outside the closed set.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidOverlap indicates an overlap outside [0, chunk size).
	ErrInvalidOverlap = errors.New("chunk overlap must be >= 0 and less than chunk size")

	// ErrInvalidNPC indicates an NPC record failed validation.
	ErrInvalidNPC = errors.New("invalid npc record")

	// ErrEmptyName indicates the NPC Name field is empty.
	ErrEmptyName = errors.New("npc name cannot be empty")

	// ErrInvalidConfidence indicates a confidence score outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence score must be between 0 and 1")
)
