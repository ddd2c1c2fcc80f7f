package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

// OpenAIConfig for the chat-completions extractor.
type OpenAIConfig struct {
	APIKey      string
	Model       string // default gpt-4o-mini
	Temperature float32
}

// OpenAIClient is the alternate PageExtractor, for deployments without
// Gemini access. Same prompt, same post-processing.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *openai.Client
	logger *slog.Logger
}

func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if logger == nil {
		logger = slog.Default()
	}
	var client *openai.Client
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}
	return &OpenAIClient{cfg: cfg, client: client, logger: logger}
}

func (c *OpenAIClient) ExtractPage(ctx context.Context, pageText string) (map[string]any, error) {
	if c.client == nil {
		return nil, common.ConfigurationError("OpenAI API key not configured")
	}

	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(pageText),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPagePrompt(pageText)},
		},
	})
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.ExtractionError("OpenAI API call failed", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices", "req_id", rid)
		return nil, common.ExtractionError("no choices in OpenAI response", nil)
	}

	record, err := ParsePageResponse(resp.Choices[0].Message.Content, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return record, nil
}
