package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Token
	}{
		{
			name:     "digits become a number",
			input:    "1234",
			expected: Token{Text: "1234", Number: 1234, IsNumber: true},
		},
		{
			name:     "zero",
			input:    "0",
			expected: Token{Text: "0", Number: 0, IsNumber: true},
		},
		{
			name:     "bengali digits become a number",
			input:    "১২৩",
			expected: Token{Text: "123", Number: 123, IsNumber: true},
		},
		{
			name:     "mis-encoded apostrophe is fixed",
			input:    "Cox‚Äôs Bazar",
			expected: Token{Text: "Cox‚Äôs Bazar"},
		},
		{
			name:     "corrupted apostrophe sequence is replaced",
			input:    "Coxâ€™s Bazar",
			expected: Token{Text: "Cox's Bazar"},
		},
		{
			name:     "plain text passes through",
			input:    "Dhaka",
			expected: Token{Text: "Dhaka"},
		},
		{
			name:     "empty string stays text",
			input:    "",
			expected: Token{Text: ""},
		},
		{
			name:     "signed number stays text",
			input:    "-5",
			expected: Token{Text: "-5"},
		},
		{
			name:     "thousands separator stays text",
			input:    "1,234",
			expected: Token{Text: "1,234"},
		},
		{
			name:     "surrounding whitespace stays text",
			input:    " 12 ",
			expected: Token{Text: " 12 "},
		},
		{
			name:     "date stays text",
			input:    "30.06.20",
			expected: Token{Text: "30.06.20"},
		},
		{
			name:     "overflowing digits stay text",
			input:    "99999999999999999999999",
			expected: Token{Text: "99999999999999999999999"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestAll(t *testing.T) {
	t.Parallel()

	tokens := All([]string{"Dhaka", "10", "30.06.20"})

	assert.Len(t, tokens, 3)
	assert.Equal(t, "Dhaka", tokens[0].String())
	assert.True(t, tokens[1].IsNumber)
	assert.Equal(t, int64(10), tokens[1].Number)
	assert.False(t, tokens[2].IsNumber)
}
