package llm

import "context"

// PageExtractor turns one page's OCR text into one page record shaped
// per the fixed invoice schema. Implementations must not call out when
// no credential is configured; they return a CONFIGURATION_ERROR
// immediately instead. A page-level failure is returned as an error;
// isolating it from other pages is the orchestrator's job.
type PageExtractor interface {
	ExtractPage(ctx context.Context, pageText string) (map[string]any, error)
}
