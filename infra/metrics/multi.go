package metrics

import (
	coremetrics "github.com/kilianp07/nemspd/core/metrics"
)

// MultiSink fanouts solve results to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordSolve(ev coremetrics.SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRegions forwards region results when supported by the sink.
func (m *MultiSink) RecordRegions(evs []coremetrics.RegionResult) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(coremetrics.RegionRecorder); ok {
			if err := rr.RecordRegions(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTraders forwards trader targets when supported by the sink.
func (m *MultiSink) RecordTraders(evs []coremetrics.TraderResult) error {
	for _, s := range m.Sinks {
		if tr, ok := s.(coremetrics.TraderRecorder); ok {
			if err := tr.RecordTraders(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordInterconnectors forwards interconnector flows when supported by
// the sink.
func (m *MultiSink) RecordInterconnectors(evs []coremetrics.InterconnectorResult) error {
	for _, s := range m.Sinks {
		if ir, ok := s.(coremetrics.InterconnectorRecorder); ok {
			if err := ir.RecordInterconnectors(evs); err != nil {
				return err
			}
		}
	}
	return nil
}
