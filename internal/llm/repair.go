package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

var (
	// Narrow single-quote repair: keys after '{' or ',', and values
	// before ',', '}' or ']'. This is a best-effort pre-pass, not a
	// JSON5 parser; it can rewrite valid content containing quote-like
	// sequences inside strings (known lossy edge case).
	reSingleQuotedKey   = regexp.MustCompile(`([{,]\s*)'([^']+)'\s*:`)
	reSingleQuotedValue = regexp.MustCompile(`:\s*'([^']*)'(\s*[,}\]])`)
)

// StripCodeFence removes an enclosing markdown fence around a model
// response, with or without the json language tag.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// RepairSingleQuotes rewrites single-quoted keys and string values into
// double-quoted form. It returns the rewritten text and whether any
// substitution fired.
func RepairSingleQuotes(s string) (string, bool) {
	fixed := reSingleQuotedKey.ReplaceAllString(s, `$1"$2":`)
	fixed = reSingleQuotedValue.ReplaceAllString(fixed, `: "$1"$2`)
	return fixed, fixed != s
}

// ParsePageResponse post-processes a raw model response into a page
// record: strip fence, repair quotes, parse. There is no second
// fallback; whatever the repair pass cannot save is an
// EXTRACTION_ERROR for this page.
func ParsePageResponse(raw string, logger *slog.Logger) (map[string]any, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cleaned := StripCodeFence(raw)
	fixed, repaired := RepairSingleQuotes(cleaned)
	if repaired {
		logger.Info("llm.parse.single_quote_repair_applied")
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(fixed), &record); err != nil {
		logger.Error("llm.parse.invalid_json", "error", err, "content_len", len(fixed))
		return nil, common.ExtractionError("model returned non-parseable JSON", err)
	}
	return record, nil
}
