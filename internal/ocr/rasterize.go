package ocr

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"context"

	"github.com/ledongthuc/pdf"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

// Rasterizer turns a PDF byte buffer into one PNG per page at a fixed
// DPI. Any failure here is a CONVERSION_ERROR and aborts the whole
// request; there is no page-level text to fall back on yet.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{cfg: cfg, runner: cfg.Runner, logger: logger}
}

// Rasterize writes the buffer to a temp dir and renders it with
// pdftoppm. It returns the page image paths in page order plus a
// cleanup func that removes the temp dir.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfBytes []byte) ([]string, func(), error) {
	noop := func() {}

	// Cheap structural check before shelling out: a buffer pdftoppm
	// would reject should fail with a typed error, not a tool error.
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, noop, common.ConversionError("not a valid PDF", err)
	}
	if reader.NumPage() == 0 {
		return nil, noop, common.ConversionError("PDF has no pages", nil)
	}

	tmpDir, err := os.MkdirTemp("", "inv-pages-*")
	if err != nil {
		return nil, noop, common.ConversionError("create temp dir", err)
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			r.logger.Warn("rasterize.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}

	in := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(in, pdfBytes, 0o600); err != nil {
		return nil, cleanup, common.ConversionError("write temp pdf", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", r.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return nil, cleanup, common.ConversionError("pdftoppm: "+string(errb), err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, cleanup, common.ConversionError("pdftoppm produced no images", nil)
	}

	r.logger.Info("rasterize.ok", "pages", len(matches), "dpi", r.cfg.DPI)
	return matches, cleanup, nil
}
