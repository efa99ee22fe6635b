package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m, reader := newTestMetrics(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transcripts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(m)(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcripts/tr-42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rm := collect(t, reader)
	found := findMetric(rm, "flowscribe.http.request.duration")
	if found == nil {
		t.Fatal("flowscribe.http.request.duration not found after request")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", found.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
	}

	// The pattern, not the concrete path, must be the metric label so
	// per-transcript IDs do not explode label cardinality.
	route, ok := hist.DataPoints[0].Attributes.Value(attribute.Key("route"))
	if !ok {
		t.Fatal("route attribute missing from data point")
	}
	if got := route.AsString(); got != "GET /api/transcripts/{id}" {
		t.Errorf("route = %q, want the mux pattern", got)
	}
}

func TestMiddlewareRouteLabelFallsBackToPath(t *testing.T) {
	m, reader := newTestMetrics(t)

	// No mux: r.Pattern stays empty, the raw path is used instead.
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	rm := collect(t, reader)
	found := findMetric(rm, "flowscribe.http.request.duration")
	if found == nil {
		t.Fatal("flowscribe.http.request.duration not found after request")
	}
	hist := found.Data.(metricdata.Histogram[float64])
	route, ok := hist.DataPoints[0].Attributes.Value(attribute.Key("route"))
	if !ok {
		t.Fatal("route attribute missing from data point")
	}
	if got := route.AsString(); got != "/nope" {
		t.Errorf("route = %q, want /nope", got)
	}
	status, ok := hist.DataPoints[0].Attributes.Value(attribute.Key("status"))
	if !ok || status.AsInt64() != http.StatusNotFound {
		t.Errorf("status attribute = %v, want 404", status)
	}
}
