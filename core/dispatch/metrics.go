package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	solveDuration       *prometheus.HistogramVec
	solvesTotal         *prometheus.CounterVec
	solveObjective      prometheus.Gauge
	solveViolation      prometheus.Gauge
	solveNodes          prometheus.Histogram
	fastStartPromotions prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Gauge, prometheus.Gauge, prometheus.Histogram, prometheus.Counter) {
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solve_duration_seconds",
			Help:    "Wall clock time spent solving a dispatch case",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"run_mode"},
	)
	tot := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solves_total",
			Help: "Number of dispatch solves by outcome",
		},
		[]string{"outcome"},
	)
	obj := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solve_objective_dollars",
			Help: "Objective value of the most recent solve",
		},
	)
	vio := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solve_violation_mw",
			Help: "Total constraint violation of the most recent solve",
		},
	)
	nodes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solve_nodes",
			Help:    "Branch and bound nodes explored per solve",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	promo := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fast_start_promotions_total",
			Help: "Number of fast start traders committed after the first pass",
		},
	)
	return dur, tot, obj, vio, nodes, promo
}

func init() {
	solveDuration, solvesTotal, solveObjective, solveViolation, solveNodes, fastStartPromotions = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers solver metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solveDuration, solvesTotal, solveObjective, solveViolation, solveNodes, fastStartPromotions)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solveDuration, solvesTotal, solveObjective, solveViolation, solveNodes, fastStartPromotions = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
