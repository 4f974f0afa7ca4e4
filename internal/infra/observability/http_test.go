package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/spendlog/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	metrics := observability.NewMetrics()

	r := chi.NewRouter()
	r.Use(observability.Tracing)
	r.Use(observability.RequestLogger(zap.New(core), metrics))
	r.Get("/receipts/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})

	for _, path := range []string{"/receipts/7", "/healthz", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if e := entries[0]; e.Level != zap.WarnLevel || e.ContextMap()["route"] != "/receipts/{id}" {
		t.Errorf("unexpected entry for 404: %v %v", e.Level, e.ContextMap())
	}
	if e := entries[1]; e.Level != zap.DebugLevel {
		t.Errorf("expected health checks at debug, got %v", e.Level)
	}
	if route := entries[2].ContextMap()["route"]; route != "unmatched" {
		t.Errorf("expected unmatched route label, got %v", route)
	}

	n, err := testutil.GatherAndCount(metrics.Registry, "spendlog_http_request_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 label sets, got %d", n)
	}
}
