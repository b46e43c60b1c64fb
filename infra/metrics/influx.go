package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/nemspd/core/metrics"
	"github.com/kilianp07/nemspd/infra/logger"
)

// InfluxSink writes solve results to an InfluxDB v2 bucket using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint. A full write URL ending in /api/v2/write is accepted and
// trimmed.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails. Dispatch keeps running
// when the metrics backend is down.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordSolve writes one dispatch_run point per solve.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", ev.RunID).
		AddTag("case_id", ev.CaseID).
		AddTag("intervention", ev.Intervention).
		AddTag("run_mode", ev.Mode).
		AddTag("priced", strconv.FormatBool(ev.Priced)).
		AddField("objective", round3(ev.Objective)).
		AddField("dispatch_cost", round3(ev.DispatchCost)).
		AddField("violation_mw", round3(ev.ViolationMW)).
		AddField("nodes", ev.Nodes).
		AddField("passes", ev.Passes).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRegions writes one region_solution point per region. FCAS totals
// become fcas_<service> fields in sorted order so the line protocol stays
// stable.
func (s *InfluxSink) RecordRegions(evs []coremetrics.RegionResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("region_solution").
			AddTag("run_id", ev.RunID).
			AddTag("case_id", ev.CaseID).
			AddTag("region_id", ev.RegionID).
			AddField("dispatched_generation", round3(ev.DispatchedGeneration)).
			AddField("dispatched_load", round3(ev.DispatchedLoad)).
			AddField("fixed_demand", round3(ev.FixedDemand)).
			AddField("cleared_demand", round3(ev.ClearedDemand)).
			AddField("net_export", round3(ev.NetExport)).
			AddField("deficit_mw", round3(ev.DeficitMW)).
			AddField("surplus_mw", round3(ev.SurplusMW)).
			SetTime(ev.Time)
		if ev.Priced {
			p.AddField("energy_price", round3(ev.EnergyPrice))
		}
		for _, service := range sortedServices(ev.FCASTotals) {
			p.AddField("fcas_"+strings.ToLower(service), round3(ev.FCASTotals[service]))
		}
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordTraders writes one trader_solution point per trader target.
func (s *InfluxSink) RecordTraders(evs []coremetrics.TraderResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("trader_solution").
			AddTag("run_id", ev.RunID).
			AddTag("case_id", ev.CaseID).
			AddTag("trader_id", ev.TraderID).
			AddTag("region_id", ev.RegionID).
			AddTag("trade_type", ev.TradeType).
			AddField("target_mw", round3(ev.TargetMW)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordInterconnectors writes one interconnector_solution point per link.
func (s *InfluxSink) RecordInterconnectors(evs []coremetrics.InterconnectorResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("interconnector_solution").
			AddTag("run_id", ev.RunID).
			AddTag("case_id", ev.CaseID).
			AddTag("interconnector_id", ev.InterconnectorID).
			AddField("flow_mw", round3(ev.FlowMW)).
			AddField("loss_mw", round3(ev.LossMW)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func sortedServices(totals map[string]float64) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
