// Package metrics provides the metric sink backends for dispatch runs.
//
// Build assembles sinks from configuration. When several backends are
// enabled the results are fanned out through a MultiSink automatically.
package metrics

import (
	"fmt"

	coremetrics "github.com/kilianp07/nemspd/core/metrics"
)

// Build assembles the configured sinks. With no backend enabled a NopSink
// is returned, with exactly one it is returned directly, and with several
// they are wrapped in a MultiSink.
func Build(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("metrics config: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		sink, err := NewPromSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("prometheus sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg))
	}

	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
