package metrics

// Package metrics defines the events a dispatch solve emits and the sink
// interfaces that record them. Sinks like PromSink and InfluxSink live under
// infra/metrics and can be combined with NewMultiSink; the engine only
// depends on the interfaces here.

import "time"

// SolveEvent summarises one solved dispatch interval.
type SolveEvent struct {
	RunID        string
	CaseID       string
	Intervention string
	Mode         string
	Duration     time.Duration
	Objective    float64
	DispatchCost float64
	ViolationMW  float64
	Nodes        int
	Passes       int
	Priced       bool
	Time         time.Time
}

// MetricsSink records solve events. Implementations must be safe for
// concurrent use.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// RegionResult is the cleared state of one region in a solved interval.
type RegionResult struct {
	RunID                string
	CaseID               string
	RegionID             string
	EnergyPrice          float64
	Priced               bool
	DispatchedGeneration float64
	DispatchedLoad       float64
	FixedDemand          float64
	ClearedDemand        float64
	NetExport            float64
	DeficitMW            float64
	SurplusMW            float64
	FCASTotals           map[string]float64
	Time                 time.Time
}

// RegionRecorder is an optional capability for sinks that persist
// per-region results.
type RegionRecorder interface {
	RecordRegions(evs []RegionResult) error
}

// TraderResult is one cleared trader target for a single service.
type TraderResult struct {
	RunID     string
	CaseID    string
	TraderID  string
	RegionID  string
	TradeType string
	TargetMW  float64
	Time      time.Time
}

// TraderRecorder is an optional capability for sinks that persist
// per-trader targets.
type TraderRecorder interface {
	RecordTraders(evs []TraderResult) error
}

// InterconnectorResult is one cleared interconnector flow.
type InterconnectorResult struct {
	RunID            string
	CaseID           string
	InterconnectorID string
	FlowMW           float64
	LossMW           float64
	Time             time.Time
}

// InterconnectorRecorder is an optional capability for sinks that persist
// interconnector flows.
type InterconnectorRecorder interface {
	RecordInterconnectors(evs []InterconnectorResult) error
}

// NopSink discards every event. It implements all recorder capabilities so
// it can stand in for any sink in tests and disabled configurations.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error                       { return nil }
func (NopSink) RecordRegions([]RegionResult) error                 { return nil }
func (NopSink) RecordTraders([]TraderResult) error                 { return nil }
func (NopSink) RecordInterconnectors([]InterconnectorResult) error { return nil }
