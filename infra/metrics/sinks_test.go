package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	coremetrics "github.com/kilianp07/nemspd/core/metrics"
)

func TestBuild_NoBackends(t *testing.T) {
	sink, err := Build(coremetrics.Config{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", sink)
	}
}

func TestBuild_SinglePrometheus(t *testing.T) {
	sink, err := Build(coremetrics.Config{PrometheusEnabled: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := sink.(*PromSink); !ok {
		t.Fatalf("expected PromSink, got %T", sink)
	}
}

func TestBuild_MultiSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"influxdb","message":"ready for queries and writes","status":"pass"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := coremetrics.Config{
		PrometheusEnabled: true,
		InfluxEnabled:     true,
		InfluxURL:         srv.URL,
		InfluxToken:       "tok",
		InfluxOrg:         "org",
		InfluxBucket:      "bucket",
	}
	sink, err := Build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	multi, ok := sink.(*MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", sink)
	}
	if len(multi.Sinks) != 2 {
		t.Fatalf("expected two sinks, got %d", len(multi.Sinks))
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	if _, err := Build(coremetrics.Config{InfluxEnabled: true}); err == nil {
		t.Fatalf("expected error for influx backend without url")
	}
}
