package vision

import (
	"strings"
)

// ParseLine parses one "name | type | notes" line. Lines without a pipe and
// model preamble ("Here are...") yield nil.
func ParseLine(line string) *DetectedTool {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
	if line == "" || !strings.Contains(line, "|") {
		return nil
	}
	if strings.HasPrefix(line, "Here") || strings.HasPrefix(line, "I see") || strings.HasPrefix(line, "Based on") {
		return nil
	}

	parts := strings.Split(line, "|")
	tool := &DetectedTool{Name: strings.TrimSpace(parts[0])}
	if len(parts) >= 2 {
		tool.Type = strings.TrimSpace(parts[1])
	}
	if len(parts) >= 3 {
		tool.Notes = strings.TrimSpace(strings.Join(parts[2:], "|"))
	}
	if tool.Name == "" {
		return nil
	}
	return tool
}

// ParseResponse parses a vision model response with one tool per line.
func ParseResponse(raw string) []DetectedTool {
	tools := make([]DetectedTool, 0)
	for _, line := range strings.Split(raw, "\n") {
		if tool := ParseLine(line); tool != nil {
			tools = append(tools, *tool)
		}
	}
	return tools
}
