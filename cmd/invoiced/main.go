package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/factura-ai/invoice-pipeline/internal/auth"
	"github.com/factura-ai/invoice-pipeline/internal/config"
	"github.com/factura-ai/invoice-pipeline/internal/export"
	"github.com/factura-ai/invoice-pipeline/internal/llm"
	"github.com/factura-ai/invoice-pipeline/internal/ocr"
	"github.com/factura-ai/invoice-pipeline/internal/pipeline"
	"github.com/factura-ai/invoice-pipeline/internal/server"
	"github.com/factura-ai/invoice-pipeline/internal/webhook"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load(logger)

	if cfg.Server.SessionSecret == "" {
		logger.Error("config.session_secret_missing",
			"hint", "set SESSION_SECRET; falling back to an insecure default")
		cfg.Server.SessionSecret = "default-secret-change-me"
	}

	ocrCfg := ocr.Config{
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Tesseract: cfg.OCR.Tesseract,
		Lang:      cfg.OCR.Lang,
		PSM:       cfg.OCR.PSM,
		DPI:       cfg.OCR.DPI,
		Enhance:   cfg.OCR.Enhance,
		MaxPages:  cfg.OCR.MaxPages,
	}
	rasterizer := ocr.NewRasterizer(ocrCfg, logger)
	textExtractor := ocr.NewExtractor(ocrCfg, logger)

	var pageExtractor llm.PageExtractor
	switch cfg.LLM.Provider {
	case "openai":
		pageExtractor = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.LLM.OpenAIAPIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}, logger)
	default:
		pageExtractor = llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:          cfg.LLM.GeminiAPIKey,
			BaseURL:         cfg.LLM.GeminiBaseURL,
			Model:           cfg.LLM.Model,
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
			Timeout:         cfg.LLM.Timeout,
		}, logger)
	}

	processor := pipeline.NewProcessor(rasterizer, textExtractor, pageExtractor, cfg.Pipeline.Workers, logger)
	relay := webhook.NewRelay(cfg.Webhook.URL, cfg.Webhook.Timeout, logger)
	exporter := export.NewService(logger)
	verifier := auth.NewEnvVerifier(cfg.Auth.Username, cfg.Auth.PasswordHash)

	srv := server.New(verifier, processor, relay, exporter, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(cfg.Server.SessionSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server.listening", "addr", cfg.Server.Addr, "provider", cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.listen_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
	}
	logger.Info("server.stopped")
}
