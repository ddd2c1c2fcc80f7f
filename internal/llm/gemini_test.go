package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

func geminiServer(t *testing.T, reply string, status int, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header, got %q", r.Header.Get("x-goog-api-key"))
		}

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SafetySettings []struct {
				Threshold string `json:"threshold"`
			} `json:"safetySettings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if gotPrompt != nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			*gotPrompt = req.Contents[0].Parts[0].Text
		}
		if len(req.SafetySettings) != 4 {
			t.Errorf("got %d safety settings, want 4", len(req.SafetySettings))
		}
		for _, s := range req.SafetySettings {
			if s.Threshold != "BLOCK_NONE" {
				t.Errorf("safety threshold = %q, want BLOCK_NONE", s.Threshold)
			}
		}

		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := map[string]any{
				"candidates": []map[string]any{
					{"content": map[string]any{"parts": []map[string]any{{"text": reply}}}},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		}
	}))
}

func TestGeminiExtractPage(t *testing.T) {
	var prompt string
	srv := geminiServer(t, "```json\n{\"factura\": {\"numero\": \"F-1\"}}\n```", http.StatusOK, &prompt)
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	record, err := c.ExtractPage(context.Background(), "TEXTO OCR DE PRUEBA")
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	factura, _ := record["factura"].(map[string]any)
	if factura["numero"] != "F-1" {
		t.Errorf("numero = %v, want F-1", factura["numero"])
	}

	if !strings.Contains(prompt, "TEXTO OCR DE PRUEBA") {
		t.Error("prompt does not embed the page text")
	}
	if !strings.Contains(prompt, PageSchemaLiteral) {
		t.Error("prompt does not embed the schema literal")
	}
}

func TestGeminiRepairsSingleQuotedReply(t *testing.T) {
	srv := geminiServer(t, `{'factura': {'numero': '99'}}`, http.StatusOK, nil)
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	record, err := c.ExtractPage(context.Background(), "texto")
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	factura, _ := record["factura"].(map[string]any)
	if factura["numero"] != "99" {
		t.Errorf("numero = %v, want 99", factura["numero"])
	}
}

func TestGeminiNoCredentialIsConfigurationError(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{BaseURL: srv.URL}, nil)
	_, err := c.ExtractPage(context.Background(), "texto")
	if !common.HasCode(err, common.CodeConfiguration) {
		t.Errorf("error = %v, want %s", err, common.CodeConfiguration)
	}
	if called {
		t.Error("client must not call out without a credential")
	}
}

func TestGeminiHTTPErrorIsExtractionError(t *testing.T) {
	srv := geminiServer(t, "", http.StatusInternalServerError, nil)
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, err := c.ExtractPage(context.Background(), "texto")
	if !common.HasCode(err, common.CodeExtraction) {
		t.Errorf("error = %v, want %s", err, common.CodeExtraction)
	}
}

func TestGeminiEmptyCandidatesIsExtractionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, err := c.ExtractPage(context.Background(), "texto")
	if !common.HasCode(err, common.CodeExtraction) {
		t.Errorf("error = %v, want %s", err, common.CodeExtraction)
	}
}
