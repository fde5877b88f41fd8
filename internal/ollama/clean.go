package ollama

import "strings"

// stripThinking removes a <think>...</think> block that reasoning models
// sometimes emit ahead of the answer.
func stripThinking(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "</think>"); idx >= 0 {
		s = s[idx+len("</think>"):]
	} else if strings.HasPrefix(s, "<think>") {
		// Unterminated block: the answer never arrived.
		return ""
	}
	return strings.TrimSpace(s)
}
