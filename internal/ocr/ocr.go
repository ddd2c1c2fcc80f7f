package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang string // tesseract language, default "spa"
	PSM  int    // page segmentation mode; 6 assumes a uniform block of text
	DPI  int    // rasterization DPI, default 300

	Enhance  bool // preprocess page images before OCR
	MaxPages int  // 0 = no limit

	Runner Runner // stubbed in tests; defaults to execRunner
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "spa"
	}
	if c.PSM <= 0 {
		c.PSM = 6
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.Runner == nil {
		c.Runner = execRunner{}
	}
	return c
}

// Extractor runs OCR over one page image at a time. Output is plain
// text; OCR imperfection is expected and tolerated downstream.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, runner: cfg.Runner, logger: logger}
}

// ExtractText OCRs a single page image.
func (e *Extractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	start := time.Now()

	path := imagePath
	if e.cfg.Enhance {
		enhanced, cleanup, err := enhanceForOCR(imagePath)
		if err != nil {
			// Enhancement is best-effort; OCR the original on failure.
			e.logger.Warn("ocr.enhance_failed", "path", imagePath, "error", err)
		} else {
			defer cleanup()
			path = enhanced
		}
	}

	args := []string{path, "stdout", "-l", e.cfg.Lang, "--psm", fmt.Sprintf("%d", e.cfg.PSM)}
	// tesseract <file> stdout -l <lang> --psm <psm>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	e.logger.Debug("ocr.page_ok",
		"path", imagePath,
		"bytes", len(out),
		"lang", e.cfg.Lang,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return string(out), nil
}
