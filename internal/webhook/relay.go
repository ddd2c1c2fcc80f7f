package webhook

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

// Relay forwards a JSON payload to the configured workflow-automation
// webhook. Forward-and-relay only: no retry, no queueing; a delivery
// failure is surfaced to the caller as a DELIVERY_ERROR.
type Relay struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRelay(url string, timeout time.Duration, logger *slog.Logger) *Relay {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether a target URL is set. Enforcement is lazy:
// a missing URL is a startup warning and a per-call failure, not a
// crash.
func (r *Relay) Configured() bool { return r.url != "" }

// Send posts the payload and returns the webhook's response body and
// status.
func (r *Relay) Send(ctx context.Context, payload []byte) ([]byte, int, error) {
	if !r.Configured() {
		return nil, 0, common.ConfigurationError("webhook URL not configured")
	}

	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, common.DeliveryError("build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.Info("webhook.request", "req_id", reqID, "content_length", len(payload))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("webhook.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, common.DeliveryError("webhook unreachable", err)
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			r.logger.Warn("webhook.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	r.logger.Info("webhook.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, common.DeliveryError("webhook returned non-2xx status", nil)
	}
	return raw, resp.StatusCode, nil
}
