package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "bare object",
			input: `{"isCompanyWebsite": true}`,
			want:  `{"isCompanyWebsite": true}`,
			found: true,
		},
		{
			name:  "surrounded by prose",
			input: "Sure! Here is my analysis:\n{\"isCompanyWebsite\": false}\nLet me know if you need more.",
			want:  `{"isCompanyWebsite": false}`,
			found: true,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"website\": \"https://acme.com\"}\n```",
			want:  `{"website": "https://acme.com"}`,
			found: true,
		},
		{
			name:  "nested objects",
			input: `prefix {"a": {"b": {"c": 1}}, "d": 2} suffix`,
			want:  `{"a": {"b": {"c": 1}}, "d": 2}`,
			found: true,
		},
		{
			name:  "braces inside strings ignored",
			input: `{"name": "Curly {Brace} Co", "note": "uses } and { freely"}`,
			want:  `{"name": "Curly {Brace} Co", "note": "uses } and { freely"}`,
			found: true,
		},
		{
			name:  "escaped quote inside string",
			input: `{"name": "He said \"hi {there}\"", "ok": true}`,
			want:  `{"name": "He said \"hi {there}\"", "ok": true}`,
			found: true,
		},
		{
			name:  "no object",
			input: "I could not find any businesses in this result.",
			found: false,
		},
		{
			name:  "truncated object",
			input: `{"isCompanyWebsite": true, "name": "Acme`,
			found: false,
		},
		{
			name:  "empty input",
			input: "",
			found: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractObject(tt.input)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDecision(t *testing.T) {
	t.Run("valid with defaults", func(t *testing.T) {
		d, err := parseDecision(`{"isCompanyWebsite": true, "website": "https://acme.com"}`)
		assert.NoError(t, err)
		assert.True(t, *d.IsCompanyWebsite)
		assert.InDelta(t, 0.5, *d.Confidence, 1e-9) // default when omitted
	})

	t.Run("confidence clamped", func(t *testing.T) {
		d, err := parseDecision(`{"isCompanyWebsite": true, "website": "a.com", "confidence": 1.7}`)
		assert.NoError(t, err)
		assert.InDelta(t, 1.0, *d.Confidence, 1e-9)

		d, err = parseDecision(`{"isCompanyWebsite": true, "website": "a.com", "confidence": -0.3}`)
		assert.NoError(t, err)
		assert.InDelta(t, 0.0, *d.Confidence, 1e-9)
	})

	t.Run("missing isCompanyWebsite", func(t *testing.T) {
		_, err := parseDecision(`{"website": "https://acme.com"}`)
		assert.Error(t, err)
	})

	t.Run("missing website", func(t *testing.T) {
		_, err := parseDecision(`{"isCompanyWebsite": true}`)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := parseDecision("no structured data here")
		assert.Error(t, err)
	})
}
