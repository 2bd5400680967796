package npc

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/lorekeeper/core"
)

var (
	// ErrMalformedResponse is returned when the reply is not valid JSON after repair.
	ErrMalformedResponse = errors.New("malformed extraction response")

	// ErrUnsupportedShape is returned when valid JSON matches none of the accepted shapes.
	ErrUnsupportedShape = errors.New("unsupported extraction response shape")
)

// DefaultConfidence is assumed for candidates that omit confidence_score.
const DefaultConfidence = 0.8

// decodeResponse strips code fences, repairs common key-quoting mistakes and
// decodes the reply into a generic JSON value.
func decodeResponse(reply string) (any, error) {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	text = repairJSON(text)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	return value, nil
}

// candidates normalizes the accepted shapes into a list of records:
// a wrapper object holding "npcs", a bare list, or a single object with "name".
// Non-object list members are skipped.
func candidates(value any) ([]map[string]any, error) {
	var list []any
	switch v := value.(type) {
	case map[string]any:
		if inner, ok := v["npcs"]; ok {
			l, ok := inner.([]any)
			if !ok {
				return nil, ErrUnsupportedShape
			}
			list = l
		} else if _, ok := v["name"]; ok {
			return []map[string]any{v}, nil
		} else {
			return nil, ErrUnsupportedShape
		}
	case []any:
		list = v
	default:
		return nil, ErrUnsupportedShape
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// confidence returns the record's self-reported confidence, or
// DefaultConfidence when it is missing or not numeric.
func confidence(rec map[string]any) float64 {
	if f, ok := toFloat(rec["confidence_score"]); ok {
		return f
	}
	return DefaultConfidence
}

// coerce maps a loosely typed record onto core.NPC. Fields of the wrong type
// are left absent.
func coerce(rec map[string]any) core.NPC {
	n := core.NPC{
		Name:        toString(rec["name"]),
		Description: toString(rec["description"]),
		Level:       toInt(rec["level"]),
		HitPoints:   toString(rec["hit_points"]),
		ArmorClass:  toString(rec["armor_class"]),

		Strength:     toInt(rec["strength"]),
		Dexterity:    toInt(rec["dexterity"]),
		Constitution: toInt(rec["constitution"]),
		Intelligence: toInt(rec["intelligence"]),
		Wisdom:       toInt(rec["wisdom"]),
		Charisma:     toInt(rec["charisma"]),

		Skills:              toStrings(rec["skills"]),
		Abilities:           toStrings(rec["abilities"]),
		Equipment:           toStrings(rec["equipment"]),
		Attacks:             toStrings(rec["attacks"]),
		DamageResistances:   toStrings(rec["damage_resistances"]),
		DamageImmunities:    toStrings(rec["damage_immunities"]),
		ConditionImmunities: toStrings(rec["condition_immunities"]),

		ChallengeRating:  toString(rec["challenge_rating"]),
		ExperiencePoints: toInt(rec["experience_points"]),
		Alignment:        toString(rec["alignment"]),
		Size:             toString(rec["size"]),
		CreatureType:     toString(rec["creature_type"]),

		ForceSensitive:  toBool(rec["force_sensitive"]),
		ForcePoints:     toInt(rec["force_points"]),
		DarkSidePoints:  toInt(rec["dark_side_points"]),
		CharacterPoints: toInt(rec["character_points"]),

		SourcePage: toInt(rec["source_page"]),
		GameSystem: toString(rec["game_system"]),
	}
	if strings.TrimSpace(n.Name) == "" {
		n.Name = core.UnknownNPCName
	}
	return n
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// toFloat accepts finite numbers and numeric strings. NaN and infinities are
// rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt(v any) *int {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	i := int(f)
	return &i
}

func toBool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}

// toStrings accepts a list of scalars or a single string.
func toStrings(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// truncateRunes returns at most limit runes of s.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
