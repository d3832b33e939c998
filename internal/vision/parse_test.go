package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *DetectedTool
	}{
		{
			name:     "full tool",
			line:     "Cordless Drill | Drill | DeWalt, battery missing",
			expected: &DetectedTool{Name: "Cordless Drill", Type: "Drill", Notes: "DeWalt, battery missing"},
		},
		{
			name:     "name and type only",
			line:     "Claw Hammer | Hammer",
			expected: &DetectedTool{Name: "Claw Hammer", Type: "Hammer"},
		},
		{
			name:     "bulleted",
			line:     "- Tape Measure | Measuring Tape | 5m",
			expected: &DetectedTool{Name: "Tape Measure", Type: "Measuring Tape", Notes: "5m"},
		},
		{
			name:     "extra pipes stay in notes",
			line:     "Socket Set | Wrench | 1/4 | 3/8 drive",
			expected: &DetectedTool{Name: "Socket Set", Type: "Wrench", Notes: "1/4 | 3/8 drive"},
		},
		{
			// Without a pipe a line cannot be told apart from preamble.
			name:     "name only without pipe",
			line:     "Hacksaw",
			expected: nil,
		},
		{name: "empty line", line: "", expected: nil},
		{name: "whitespace only", line: "   ", expected: nil},
		{name: "header line Here", line: "Here are the tools | type | notes", expected: nil},
		{name: "header line I see", line: "I see the following:", expected: nil},
		{name: "empty name", line: " | Drill | ", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLine(tt.line))
		})
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []DetectedTool
	}{
		{
			name: "basic tools",
			raw: `Cordless Drill | Drill | 18V
Claw Hammer | Hammer |
Hand Saw | Saw | rusty blade`,
			expected: []DetectedTool{
				{Name: "Cordless Drill", Type: "Drill", Notes: "18V"},
				{Name: "Claw Hammer", Type: "Hammer"},
				{Name: "Hand Saw", Type: "Saw", Notes: "rusty blade"},
			},
		},
		{
			name: "skip header and blank lines",
			raw: `Based on the image:

Adjustable Wrench | Wrench |`,
			expected: []DetectedTool{{Name: "Adjustable Wrench", Type: "Wrench"}},
		},
		{
			name:     "no tools",
			raw:      "Here are the tools:",
			expected: []DetectedTool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseResponse(tt.raw))
		})
	}
}
