package vision

import (
	"context"
	"io"
)

// AnalysisPrompt is the shared prompt used by all vision adapters.
const AnalysisPrompt = `List every tool you can see in this photo of a shelf, bench, cabinet or van.
For each tool provide: name, tool type (for example Drill, Hammer, Saw, Wrench,
Screwdriver, Measuring Tape, Safety Equipment) and any relevant notes
(e.g. brand, damaged, missing parts). Respond in plain text, one tool per line,
format: name | type | notes`

type VisionAnalyzer interface {
	Analyze(ctx context.Context, r io.Reader, mimeType string) (*AnalysisResult, error)
}

type AnalysisResult struct {
	Tools       []DetectedTool
	RawResponse string
}

type DetectedTool struct {
	Name  string
	Type  string
	Notes string
}
