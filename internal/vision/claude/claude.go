package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/toolkeepr/internal/vision"
)

// maxTokens leaves room for roughly sixty detected tools per photo.
const maxTokens = 1024

type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
}

func NewClaudeAnalyzer(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeAnalyzer {
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, r io.Reader, mimeType string) (*vision.AnalysisResult, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(vision.AnalysisPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText && c.Text != nil {
			text.WriteString(*c.Text)
		}
	}
	responseText := text.String()

	return &vision.AnalysisResult{
		Tools:       vision.ParseResponse(responseText),
		RawResponse: responseText,
	}, nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// Only jpeg, png, gif and webp are accepted; anything else is sent as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
