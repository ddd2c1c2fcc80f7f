package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

// GeminiConfig for the Gemini REST client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string // default https://generativelanguage.googleapis.com
	Model           string // default gemini-1.5-flash-latest
	Temperature     float32
	MaxOutputTokens int
	Timeout         time.Duration
}

// GeminiClient implements PageExtractor against the generateContent
// REST endpoint. Safety filtering is disabled for all categories: the
// input is business-document text, not discretionary chat, and a
// harm-filter refusal would otherwise surface as a page failure.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
	logger     *slog.Logger
}

var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

func NewGeminiClient(cfg GeminiConfig, logger *slog.Logger) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 8192
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

func (c *GeminiClient) ExtractPage(ctx context.Context, pageText string) (map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, common.ConfigurationError("Gemini API key not configured")
	}

	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(pageText),
	)

	safety := make([]map[string]any, 0, len(geminiSafetyCategories))
	for _, cat := range geminiSafetyCategories {
		safety = append(safety, map[string]any{"category": cat, "threshold": "BLOCK_NONE"})
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": BuildPagePrompt(pageText)}}},
		},
		"generationConfig": map[string]any{
			"temperature":     c.cfg.Temperature,
			"maxOutputTokens": c.cfg.MaxOutputTokens,
		},
		"safetySettings": safety,
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.ExtractionError("Gemini API call failed", err)
	}

	var gr struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.logger.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, common.ExtractionError("decode Gemini response", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("llm.extract.no_candidates", "req_id", rid, "raw_bytes", len(raw))
		return nil, common.ExtractionError("no candidates in Gemini response", nil)
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	record, err := ParsePageResponse(text.String(), c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return record, nil
}

func (c *GeminiClient) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.logger.Warn("gemini response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncate(string(raw), 2048))
	}
	return raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
