package gemini

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\n?(.*?)```")
	jsonStringRe  = regexp.MustCompile(`"(?:\\.|[^"\\])*"`)
)

// ExtractJSON pulls the most plausible JSON document out of model output,
// which may wrap it in markdown fences or surround it with prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	var best string
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		candidate := SanitizeJSON(strings.TrimSpace(m[1]))
		if json.Valid([]byte(candidate)) && len(candidate) > len(best) {
			best = candidate
		}
	}
	if best != "" {
		return best
	}

	for i := 0; i < len(text); {
		start := strings.IndexAny(text[i:], "{[")
		if start == -1 {
			break
		}
		start += i

		end := matchingClose(text, start)
		if end == -1 {
			i = start + 1
			continue
		}

		candidate := SanitizeJSON(text[start : end+1])
		if json.Valid([]byte(candidate)) && len(candidate) > len(best) {
			best = candidate
		}
		i = end + 1
	}
	if best != "" {
		return best
	}

	return SanitizeJSON(text)
}

// matchingClose finds the index of the bracket closing text[start], honoring
// string literals and escapes. Returns -1 when the document is unbalanced.
func matchingClose(text string, start int) int {
	opener := text[start]
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for j := start; j < len(text); j++ {
		c := text[j]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// SanitizeJSON escapes raw newlines inside string literals, a malformation
// language models produce regularly.
func SanitizeJSON(s string) string {
	return jsonStringRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, "\n", "\\n")
	})
}
