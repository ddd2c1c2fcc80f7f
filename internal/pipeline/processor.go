package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/factura-ai/invoice-pipeline/internal/common"
	"github.com/factura-ai/invoice-pipeline/internal/invoice"
	"github.com/factura-ai/invoice-pipeline/internal/llm"
)

// Rasterizer converts a PDF buffer into per-page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfBytes []byte) (pages []string, cleanup func(), err error)
}

// TextExtractor OCRs one page image.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Messages assembled into the response payload.
const (
	MessageProcessed = "Procesado."
	MessagePartial   = "Procesado con errores IA."
)

// Result is the assembled outcome of one invoice run.
type Result struct {
	Message        string          `json:"message"`
	Filename       string          `json:"filename"`
	ExtractedText  string          `json:"extracted_text"`
	StructuredData *invoice.Record `json:"structured_data"`
	CSVData        string          `json:"csv_data"`
	ErrorAI        string          `json:"error_ai,omitempty"`
}

// Partial reports whether any page failed extraction (degraded
// success).
func (r *Result) Partial() bool { return r.ErrorAI != "" }

// Processor drives the per-page pipeline: rasterize, OCR and extract
// each page, merge in page order, project to CSV. It is the only
// component with cross-page state.
type Processor struct {
	logger     *slog.Logger
	rasterizer Rasterizer
	ocr        TextExtractor
	extractor  llm.PageExtractor
	workers    int
}

func NewProcessor(rasterizer Rasterizer, ocr TextExtractor, extractor llm.PageExtractor, workers int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		logger:     logger,
		rasterizer: rasterizer,
		ocr:        ocr,
		extractor:  extractor,
		workers:    workers,
	}
}

// ProcessInvoice runs the whole pipeline for one uploaded PDF.
// Rasterization and OCR failures are fatal; a page's extraction
// failure is recorded against that page and never aborts the others.
// Pages run under a bounded worker group into indexed slots, so the
// merge always folds in page order regardless of completion order.
func (p *Processor) ProcessInvoice(ctx context.Context, filename string, pdfBytes []byte) (*Result, error) {
	rid := uuid.New().String()
	start := time.Now()
	p.logger.Info("pipeline.start", "req_id", rid, "filename", filename, "bytes", len(pdfBytes))

	pages, cleanup, err := p.rasterizer.Rasterize(ctx, pdfBytes)
	if err != nil {
		p.logger.Error("pipeline.rasterize.failed", "req_id", rid, "error", err)
		return nil, err
	}
	defer cleanup()

	texts := make([]string, len(pages))
	results := make([]invoice.PageResult, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, imgPath := range pages {
		g.Go(func() error {
			pageNum := i + 1

			text, err := p.ocr.ExtractText(gctx, imgPath)
			if err != nil {
				// No page text exists to recover from; fatal.
				return common.ConversionError(fmt.Sprintf("OCR failed on page %d", pageNum), err)
			}
			texts[i] = text

			rec, err := p.extractor.ExtractPage(gctx, text)
			if err != nil {
				p.logger.Warn("pipeline.page.extract_failed", "req_id", rid, "page", pageNum, "error", err)
				results[i] = invoice.PageResult{Page: pageNum, Err: fmt.Sprintf("P%d: %v", pageNum, err)}
				return nil
			}
			results[i] = invoice.PageResult{Page: pageNum, Record: rec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fullText strings.Builder
	var pageErrs []string
	for i, text := range texts {
		fmt.Fprintf(&fullText, "--- Página %d ---\n%s\n\n", i+1, text)
		if results[i].Err != "" {
			pageErrs = append(pageErrs, results[i].Err)
		}
	}

	merged, ok := invoice.Merge(results)
	if !ok {
		p.logger.Warn("pipeline.merge.no_usable_pages", "req_id", rid, "pages", len(pages))
	} else {
		p.validateMerged(rid, merged)
	}

	csvData := invoice.ProjectCSV(merged)

	res := &Result{
		Message:        MessageProcessed,
		Filename:       filename,
		ExtractedText:  fullText.String(),
		StructuredData: merged,
		CSVData:        csvData,
		ErrorAI:        strings.Join(pageErrs, "; "),
	}
	if res.Partial() {
		res.Message = MessagePartial
	}

	p.logger.Info("pipeline.done",
		"req_id", rid,
		"pages", len(pages),
		"page_errors", len(pageErrs),
		"merged", ok,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// validateMerged checks the merged record against the invoice schema.
// Advisory only: a mismatch is logged, never surfaced to the caller.
func (p *Processor) validateMerged(rid string, merged *invoice.Record) {
	b, err := json.Marshal(merged)
	if err != nil {
		p.logger.Warn("pipeline.validate.marshal_failed", "req_id", rid, "error", err)
		return
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildInvoiceJSONSchema(), b); err != nil {
		p.logger.Warn("pipeline.validate.schema_mismatch", "req_id", rid, "error", err)
	}
}
