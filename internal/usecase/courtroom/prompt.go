package courtroom

import (
	"fmt"
	"slices"
	"strings"
)

// bullets renders a key/value map as "- key: value" lines in key order.
func bullets(m map[string]any) string {
	if len(m) == 0 {
		return "- (none provided)"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %v", k, m[k]))
	}
	return strings.Join(lines, "\n")
}

// list renders items as "- item" lines.
func list(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}

// firstPersonVoice is shared by both party personas.
const firstPersonVoice = `When speaking:
- Use first-person perspective ("I believe...", "In my experience...")
- Express emotions appropriate to your emotional state
- Reflect your personal priorities and values
- Maintain your established character traits`

// underOath frames a question as sworn testimony.
func underOath(name, question, extra string) string {
	var b strings.Builder
	b.WriteString("You are now under oath in court proceedings.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n\n", question)
	b.WriteString("Please provide your honest testimony in response to this question.\n")
	fmt.Fprintf(&b, "Remember to stay in character as %s with your established background and perspective", name)
	if extra != "" {
		b.WriteString(",\n")
		b.WriteString(extra)
	}
	b.WriteString(".")
	return b.String()
}

// emotionalNote is the system annotation appended when a party's state moves.
func emotionalNote(name, state string) string {
	return fmt.Sprintf("Note: %s's emotional state has changed to %s.", name, state)
}
