package gemini

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"suggestions":[]}`,
			want:  `{"suggestions":[]}`,
		},
		{
			name:  "fenced with language tag",
			input: "```json\n{\"suggestions\":[]}\n```",
			want:  `{"suggestions":[]}`,
		},
		{
			name:  "object buried in prose",
			input: "Sure! Here you go: {\"suggestions\":[]} Let me know.",
			want:  `{"suggestions":[]}`,
		},
		{
			name:  "braces inside string literals",
			input: `{"suggestions":[{"description":"use {} literal","category":"style"}]}`,
			want:  `{"suggestions":[{"description":"use {} literal","category":"style"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}

func TestSanitizeJSON_EscapesNewlinesInsideStrings(t *testing.T) {
	// Arrange
	input := "{\"description\":\"line one\nline two\"}"

	// Act
	sanitized := SanitizeJSON(input)

	// Assert
	assert.True(t, json.Valid([]byte(sanitized)))
	assert.Contains(t, sanitized, `line one\nline two`)
}
