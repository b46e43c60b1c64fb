package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/nemspd/core/metrics"
)

// PromSink records solve results in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cost      prometheus.Gauge
	price     *prometheus.GaugeVec
	violation *prometheus.GaugeVec
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered are reused.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Total number of dispatch runs",
	}, []string{"run_mode", "priced"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_run_duration_seconds",
		Help:    "Wall clock time of a dispatch run",
		Buckets: prometheus.DefBuckets,
	}, []string{"run_mode"})
	cost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_cost_dollars",
		Help: "Offer cost of the most recent run",
	})
	price := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "region_energy_price_dollars",
		Help: "Regional energy price of the most recent priced run",
	}, []string{"region_id"})
	violation := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "region_violation_mw",
		Help: "Regional deficit plus surplus of the most recent run",
	}, []string{"region_id"})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(cost); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			cost = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(price); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			price = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(violation); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			violation = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{runs: runs, duration: duration, cost: cost, price: price, violation: violation}, nil
}

// RecordSolve counts the run and tracks its duration and cost.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.runs.WithLabelValues(ev.Mode, strconv.FormatBool(ev.Priced)).Inc()
	s.duration.WithLabelValues(ev.Mode).Observe(ev.Duration.Seconds())
	s.cost.Set(ev.DispatchCost)
	return nil
}

// RecordRegions tracks per-region prices and violations.
func (s *PromSink) RecordRegions(evs []coremetrics.RegionResult) error {
	for _, ev := range evs {
		if ev.Priced {
			s.price.WithLabelValues(ev.RegionID).Set(ev.EnergyPrice)
		}
		s.violation.WithLabelValues(ev.RegionID).Set(ev.DeficitMW + ev.SurplusMW)
	}
	return nil
}
