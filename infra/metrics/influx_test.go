package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/nemspd/core/metrics"
)

var (
	_ coremetrics.MetricsSink            = (*InfluxSink)(nil)
	_ coremetrics.RegionRecorder         = (*InfluxSink)(nil)
	_ coremetrics.TraderRecorder         = (*InfluxSink)(nil)
	_ coremetrics.InterconnectorRecorder = (*InfluxSink)(nil)
)

func TestInfluxSink_RecordSolve(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.SolveEvent{
		RunID:        "run-1",
		CaseID:       "20260801001",
		Intervention: "0",
		Mode:         "target",
		Duration:     1500 * time.Millisecond,
		Objective:    1800.5,
		DispatchCost: 1800.5,
		ViolationMW:  0,
		Nodes:        3,
		Passes:       2,
		Priced:       true,
		Time:         now,
	}
	if err := sink.RecordSolve(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", "run-1").
		AddTag("case_id", "20260801001").
		AddTag("intervention", "0").
		AddTag("run_mode", "target").
		AddTag("priced", strconv.FormatBool(true)).
		AddField("objective", 1800.5).
		AddField("dispatch_cost", 1800.5).
		AddField("violation_mw", 0.0).
		AddField("nodes", 3).
		AddField("passes", 2).
		AddField("duration_ms", int64(1500)).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordTraders(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	now := time.Now()
	evs := []coremetrics.TraderResult{{
		RunID:     "run-1",
		CaseID:    "20260801001",
		TraderID:  "G1",
		RegionID:  "R1",
		TradeType: "ENOF",
		TargetMW:  58.25,
		Time:      now,
	}}
	if err := sink.RecordTraders(evs); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("trader_solution").
		AddTag("run_id", "run-1").
		AddTag("case_id", "20260801001").
		AddTag("trader_id", "G1").
		AddTag("region_id", "R1").
		AddTag("trade_type", "ENOF").
		AddField("target_mw", 58.25).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	cfg := coremetrics.Config{
		InfluxURL:    srv.URL + "/api/v2/write",
		InfluxToken:  "tok",
		InfluxOrg:    "org",
		InfluxBucket: "bucket",
	}
	sink := NewInfluxSinkWithFallback(cfg)
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
