package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/factura-ai/invoice-pipeline/internal/common"
)

func TestRelaySend(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"received"}`))
	}))
	defer srv.Close()

	r := NewRelay(srv.URL, 5*time.Second, nil)
	raw, status, err := r.Send(context.Background(), []byte(`{"factura":{"numero":"F-1"}}`))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(raw) != `{"status":"received"}` {
		t.Errorf("body = %q", raw)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	factura, _ := gotBody["factura"].(map[string]any)
	if factura["numero"] != "F-1" {
		t.Errorf("payload did not arrive intact: %v", gotBody)
	}
}

func TestRelayUnconfigured(t *testing.T) {
	r := NewRelay("", 0, nil)
	if r.Configured() {
		t.Error("empty URL should report unconfigured")
	}
	_, _, err := r.Send(context.Background(), []byte(`{}`))
	if !common.HasCode(err, common.CodeConfiguration) {
		t.Errorf("error = %v, want %s", err, common.CodeConfiguration)
	}
}

func TestRelayNon2xxIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	r := NewRelay(srv.URL, 5*time.Second, nil)
	raw, status, err := r.Send(context.Background(), []byte(`{}`))
	if !common.HasCode(err, common.CodeDelivery) {
		t.Errorf("error = %v, want %s", err, common.CodeDelivery)
	}
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
	// The body still comes back so the caller can report it.
	if string(raw) != "upstream down" {
		t.Errorf("body = %q", raw)
	}
}

func TestRelayUnreachableIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	r := NewRelay(srv.URL, time.Second, nil)
	_, _, err := r.Send(context.Background(), []byte(`{}`))
	if !common.HasCode(err, common.CodeDelivery) {
		t.Errorf("error = %v, want %s", err, common.CodeDelivery)
	}
}
