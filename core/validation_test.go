package core

import (
	"errors"
	"testing"
)

func TestValidateChunkParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr error
	}{
		{name: "defaults", size: 1000, overlap: 200, wantErr: nil},
		{name: "zero overlap", size: 10, overlap: 0, wantErr: nil},
		{name: "zero size", size: 0, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative size", size: -5, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: ErrInvalidOverlap},
		{name: "overlap equals size", size: 10, overlap: 10, wantErr: ErrInvalidOverlap},
		{name: "overlap exceeds size", size: 10, overlap: 20, wantErr: ErrInvalidOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkParams(tt.size, tt.overlap)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunkParams() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunkParams() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNPC(t *testing.T) {
	tests := []struct {
		name    string
		npc     *NPC
		wantErr error
	}{
		{
			name:    "valid npc",
			npc:     &NPC{Name: "Goblin", ConfidenceScore: 0.8},
			wantErr: nil,
		},
		{
			name:    "nil npc",
			npc:     nil,
			wantErr: ErrInvalidNPC,
		},
		{
			name:    "empty name",
			npc:     &NPC{ConfidenceScore: 0.8},
			wantErr: ErrEmptyName,
		},
		{
			name:    "confidence above one",
			npc:     &NPC{Name: "Goblin", ConfidenceScore: 1.5},
			wantErr: ErrInvalidConfidence,
		},
		{
			name:    "negative confidence",
			npc:     &NPC{Name: "Goblin", ConfidenceScore: -0.1},
			wantErr: ErrInvalidConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNPC(tt.npc)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateNPC() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateNPC() error = nil, want %v", tt.wantErr)
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateNPC() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	for _, c := range Categories() {
		if err := ValidateCategory(c); err != nil {
			t.Errorf("ValidateCategory(%v) error = %v", c, err)
		}
	}
	if err := ValidateCategory(Category(99)); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("ValidateCategory(99) error = %v, want %v", err, ErrUnknownCategory)
	}
}
