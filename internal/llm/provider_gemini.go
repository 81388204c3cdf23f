package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

const geminiName = "gemini"

var geminiStatusPattern = regexp.MustCompile(`Error (\d{3})`)

// GeminiProvider wraps the Gemini client. System messages become the system
// instruction and assistant turns are sent with the "model" role.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewServiceError("failed to create Gemini client", geminiName, "init", err)
	}
	return &GeminiProvider{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (g *GeminiProvider) Name() string {
	return geminiName
}

func (g *GeminiProvider) RateLimited() bool {
	return true
}

func (g *GeminiProvider) Chat(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	contents, system := toGeminiContents(req.Messages)

	temperature := float32(req.Temperature)
	genConfig := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != nil {
		genConfig.SystemInstruction = system
	}

	g.logger.Debug("Generating with Gemini",
		zap.String("model", g.model),
		zap.Int("contents", len(contents)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	return extractTextFromGeminiResponse(resp), nil
}

// toGeminiContents splits system messages out and maps the remaining turns.
func toGeminiContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}}}
	}
	return contents, system
}

// classifyGeminiError recovers the HTTP status from the SDK error text so the
// client can apply the same 429 handling as for the other providers.
func classifyGeminiError(err error) error {
	msg := err.Error()

	status := 0
	if m := geminiStatusPattern.FindStringSubmatch(msg); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	if status == 0 && (strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429")) {
		status = 429
	}
	if status == 0 {
		return err
	}
	apiErr := errors.NewAPIError(geminiName, status, msg)
	apiErr.WithCause(err)
	return apiErr
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
