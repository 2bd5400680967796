package core

import "encoding/json"

// UnknownNPCName is used when an extracted record carries no name.
const UnknownNPCName = "Unknown"

// NPC is a structured character record extracted from a stat block.
// Pointer and slice fields are absent when the source did not provide them.
type NPC struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Level       *int   `json:"level,omitempty"`
	HitPoints   string `json:"hit_points,omitempty"`
	ArmorClass  string `json:"armor_class,omitempty"`

	Strength     *int `json:"strength,omitempty"`
	Dexterity    *int `json:"dexterity,omitempty"`
	Constitution *int `json:"constitution,omitempty"`
	Intelligence *int `json:"intelligence,omitempty"`
	Wisdom       *int `json:"wisdom,omitempty"`
	Charisma     *int `json:"charisma,omitempty"`

	Skills              []string `json:"skills,omitempty"`
	Abilities           []string `json:"abilities,omitempty"`
	Equipment           []string `json:"equipment,omitempty"`
	Attacks             []string `json:"attacks,omitempty"`
	DamageResistances   []string `json:"damage_resistances,omitempty"`
	DamageImmunities    []string `json:"damage_immunities,omitempty"`
	ConditionImmunities []string `json:"condition_immunities,omitempty"`

	ChallengeRating  string `json:"challenge_rating,omitempty"`
	ExperiencePoints *int   `json:"experience_points,omitempty"`
	Alignment        string `json:"alignment,omitempty"`
	Size             string `json:"size,omitempty"`
	CreatureType     string `json:"creature_type,omitempty"`

	// Star Wars D6
	ForceSensitive  *bool `json:"force_sensitive,omitempty"`
	ForcePoints     *int  `json:"force_points,omitempty"`
	DarkSidePoints  *int  `json:"dark_side_points,omitempty"`
	CharacterPoints *int  `json:"character_points,omitempty"`

	SourceFile      string  `json:"source_file,omitempty"`
	SourcePage      *int    `json:"source_page,omitempty"`
	Canonical       bool    `json:"canonical"`
	GameSystem      string  `json:"game_system,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
	RawText         string  `json:"raw_text,omitempty"`
}

// EmbeddingText returns the text used to embed the record: raw text, else description, else name.
func (n *NPC) EmbeddingText() string {
	switch {
	case n.RawText != "":
		return n.RawText
	case n.Description != "":
		return n.Description
	default:
		return n.Name
	}
}

// Payload flattens the record into a vector-store payload, omitting absent fields.
func (n *NPC) Payload() (map[string]any, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any)
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
