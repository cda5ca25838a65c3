// Package prompt builds the full text sent to the language model. Section
// order, headers and whitespace are part of the contract: the model's schema
// compliance is conditioned on this fixed structure.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/kurahq/kura/internal/config"
	"github.com/kurahq/kura/internal/history"
)

const systemRules = `You are a personal assistant. Tailor every reply to the user's preferences, permanent memory and recent history.

Rules:
1. Follow the user's profession, preferred title and reply style.
2. Consult permanent memory for facts worth acting on.
3. Use the recent conversation to stay coherent.
4. Only genuinely important, long-lived information belongs in permanent memory.
5. Keep replies natural, friendly and helpful.

Memory operations:
- add: store a new important fact
- delete: remove an outdated or wrong memory (requires id)
- modify: rewrite an existing memory (requires id and content)`

const schemaInstruction = `Reply with exactly one JSON object in this format:
{
    "response": "the text shown to the user",
    "memory_operations": [
        {
            "action": "add/delete/modify",
            "id": "memory id (required for delete and modify)",
            "content": "memory content (required for add and modify)"
        }
    ]
}

Notes:
- The response field is shown to the user verbatim; keep it complete and natural.
- memory_operations may be an empty array.
- delete needs only action and id.
- modify needs action, id and content.
- add needs only action and content.`

// Placeholder lines emitted when a section has no content.
const (
	PlaceholderPreferences = "User profile: no preferences set"
	PlaceholderMemory      = "Permanent memory: empty"
	PlaceholderHistory     = "Chat history: this is the first conversation"
)

const timeLayout = "2006-01-02 15:04:05"

// Assemble deterministically combines the preference snapshot, the rendered
// memory, the trailing history window and the current (already image-enriched)
// user input into one prompt string.
func Assemble(prefs config.Preferences, memoryText string, turns []history.Turn, userInput string, now time.Time) string {
	sections := []string{
		systemRules,
		"Current time: " + now.Format(timeLayout),
		preferenceSection(prefs),
		memorySection(memoryText),
		historySection(turns),
		"Current user input: " + userInput,
		schemaInstruction,
	}
	return strings.Join(sections, "\n\n")
}

func preferenceSection(prefs config.Preferences) string {
	prefs = prefs.Normalize()
	var lines []string
	if prefs.Profession != config.None {
		lines = append(lines, "User profession: "+prefs.Profession)
	}
	if prefs.PreferredTitle != config.None {
		lines = append(lines, "Preferred title: "+prefs.PreferredTitle)
	}
	if prefs.ReplyStyle != config.None {
		lines = append(lines, "Reply style: "+prefs.ReplyStyle)
	}
	if prefs.AdditionalInfo != config.None {
		lines = append(lines, "Additional info: "+prefs.AdditionalInfo)
	}
	if len(lines) == 0 {
		return PlaceholderPreferences
	}
	return strings.Join(lines, "\n")
}

func memorySection(memoryText string) string {
	if strings.TrimSpace(memoryText) == "" {
		return PlaceholderMemory
	}
	return "Permanent memory:\n" + memoryText
}

func historySection(turns []history.Turn) string {
	if len(turns) == 0 {
		return PlaceholderHistory
	}
	var b strings.Builder
	b.WriteString("Recent conversation:")
	for _, t := range turns {
		fmt.Fprintf(&b, "\n\nuser: %s\nassistant: %s", t.User, t.AI)
	}
	return b.String()
}
