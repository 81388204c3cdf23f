package llm

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// OpenAIProvider talks to any OpenAI-compatible chat endpoint: a local Ollama
// server or a hosted API such as Groq or Z.ai.
type OpenAIProvider struct {
	name        string
	client      *openai.Client
	model       string
	rateLimited bool
	logger      *zap.Logger
}

// OpenAIProviderConfig describes one OpenAI-compatible endpoint.
type OpenAIProviderConfig struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	RateLimited bool
}

func NewOpenAIProvider(cfg OpenAIProviderConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// keyless local server: no bearer header, even if OPENAI_API_KEY is set
		opts = append(opts, option.WithHeaderDel("authorization"))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		name:        cfg.Name,
		client:      &client,
		model:       cfg.Model,
		rateLimited: cfg.RateLimited,
		logger:      logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return o.name
}

func (o *OpenAIProvider) RateLimited() bool {
	return o.rateLimited
}

func (o *OpenAIProvider) Chat(ctx context.Context, req Request) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("%s client not initialized", o.name)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	o.logger.Debug("Generating with OpenAI-compatible endpoint",
		zap.String("provider", o.name),
		zap.String("model", o.model),
		zap.Int("messages", len(messages)),
		zap.Float64("temperature", req.Temperature),
	)

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if stderrors.As(err, &apiErr) {
			return "", errors.NewAPIError(o.name, apiErr.StatusCode, apiErr.Error())
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	o.logger.Debug("Completion usage",
		zap.String("provider", o.name),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
