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

import "fmt"

// ValidateChunkParams checks the chunk size / overlap relationship.
//
// Validation rules:
//   - size must be greater than 0
//   - overlap must be >= 0 and strictly less than size
func ValidateChunkParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d, size %d", ErrInvalidOverlap, overlap, size)
	}
	return nil
}

// ValidateNPC validates an NPC record according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - ConfidenceScore must be within [0, 1]
//
// NOT validated (best-effort coercion upstream):
//   - statistics, lists and system-specific fields
func ValidateNPC(npc *NPC) error {
	if npc == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidNPC)
	}

	if npc.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNPC, ErrEmptyName)
	}

	if npc.ConfidenceScore < 0 || npc.ConfidenceScore > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidNPC, ErrInvalidConfidence)
	}

	return nil
}

// ValidateCategory validates that a Category has a valid value.
func ValidateCategory(c Category) error {
	switch c {
	case CategoryRulebook, CategoryAdventurePath, CategoryNPC:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrUnknownCategory, int(c))
}
