package classifier

import "strings"

// ExtractObject pulls the first balanced JSON object out of free-form LLM
// text. Models wrap their answers in prose and markdown fences, so the
// extractor strips fences, then scans from the first '{' counting brace
// depth while honoring string literals and escape sequences. Returns the
// object substring and whether one was found.
func ExtractObject(text string) (string, bool) {
	text = stripFences(text)

	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	// Opened but never balanced: truncated response.
	return "", false
}

// stripFences removes markdown code fences around the payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}
