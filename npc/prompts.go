package npc

// systemPrompt describes the record schema the completion service must return.
const systemPrompt = `You are an expert at extracting NPC (Non-Player Character) stat blocks from RPG rulebooks and adventures.
Identify and extract structured NPC data from the provided text.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment.
Return a JSON object of the form {"npcs": [...]}, with each NPC having these fields (use null for missing data):
{
    "name": "NPC name",
    "description": "Brief description",
    "level": integer or null,
    "hit_points": "HP value or formula",
    "armor_class": "AC value",
    "strength": integer or null,
    "dexterity": integer or null,
    "constitution": integer or null,
    "intelligence": integer or null,
    "wisdom": integer or null,
    "charisma": integer or null,
    "skills": ["skill1", "skill2"],
    "abilities": ["ability1", "ability2"],
    "equipment": ["item1", "item2"],
    "attacks": ["attack description"],
    "damage_resistances": ["resistance"],
    "damage_immunities": ["immunity"],
    "condition_immunities": ["condition"],
    "challenge_rating": "CR value",
    "experience_points": integer or null,
    "alignment": "alignment",
    "size": "size category",
    "creature_type": "type",
    "source_page": integer or null,
    "game_system": "D&D 5e/Pathfinder/Star Wars D6/etc",
    "confidence_score": 0.0 to 1.0
}

For Star Wars D6, also include:
- force_sensitive: boolean
- force_points: integer
- dark_side_points: integer
- character_points: integer

Only extract clearly defined NPCs with stat blocks, not just mentioned characters.
If no NPCs are found, return {"npcs": []}.`

const userPromptPrefix = "Extract all NPC stat blocks from this text:\n\n"

// buildUserPrompt prefixes the already truncated window.
func buildUserPrompt(window string) string {
	return userPromptPrefix + window
}
