package normalize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text", "Hello World", "hello world"},
		{"punctuation stripped", "Invoice #42: $1,300.50 (net)", "invoice 42 1 300 50 net"},
		{"whitespace collapsed", "  too \t many  spaces  ", "too many spaces"},
		{"unicode stripped", "naïve café", "na ve caf"},
		{"short line dropped", "ok!", ""},
		{"exactly three chars dropped", "a b", ""},
		{"four chars survives", "a bc", "a bc"},
		{"empty", "", ""},
		{"only punctuation", "###---***", ""},
		{"carriage return", "line one\r", "line one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Line(tt.raw))
		})
	}
}

var normalizedShape = regexp.MustCompile(`^[a-z0-9]+( [a-z0-9]+)*$`)

func TestLine_OutputShape(t *testing.T) {
	inputs := []string{
		"The Quick, Brown Fox!",
		"   MIXED \t CaSe \n with-hyphens_and_underscores  ",
		"trailing dots...",
		"页码 page 42 图",
	}

	for _, in := range inputs {
		got := Line(in)
		if got == "" {
			continue
		}
		assert.Regexp(t, normalizedShape, got, "input %q", in)
	}
}

func TestLine_Idempotent(t *testing.T) {
	inputs := []string{
		"Quarterly Report (Q3/2024)",
		"totals: 1,234.56",
		"already normalized text",
	}

	for _, in := range inputs {
		once := Line(in)
		assert.Equal(t, once, Line(once), "input %q", in)
	}
}

func TestPage(t *testing.T) {
	raw := "Heading One\n--\nThe first real line.\n\nok\nSecond real line here"

	got := Page(raw)

	// Dropped lines do not leave gaps: survivors are dense and ordered.
	assert.Equal(t, []string{
		"heading one",
		"the first real line",
		"second real line here",
	}, got)
}

func TestPage_Empty(t *testing.T) {
	assert.Empty(t, Page(""))
	assert.Empty(t, Page("\n\n..\n!\n"))
}
