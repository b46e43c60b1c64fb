package scenarios

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/dispatch"
	coremetrics "github.com/kilianp07/nemspd/core/metrics"
	"github.com/kilianp07/nemspd/core/solution"
	"github.com/kilianp07/nemspd/infra/logger"
	"github.com/kilianp07/nemspd/infra/metrics"
)

// RunScenario solves the scenario's case and checks the expectations. When
// the case document carries observed solution rows, the model is diffed
// against them too.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sinkIf, err := metrics.NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	sink, ok := sinkIf.(*metrics.PromSink)
	if !ok {
		t.Fatalf("expected *metrics.PromSink, got %T", sinkIf)
	}

	eng, err := dispatch.New(dispatch.Config{Pricing: sc.Pricing}, logger.NopLogger{}, sink)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	cf, err := casefile.Load(sc.CaseFile)
	if err != nil {
		t.Fatalf("case %s: %v", sc.CaseFile, err)
	}
	mode, err := parseMode(sc.Mode)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	sol, err := eng.Solve(context.Background(), cf, mode)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	tol := sc.Expected.Tolerance
	check := func(what string, got, want float64) {
		if math.Abs(got-want) > tol {
			t.Errorf("scenario %s %s: expected %v got %v", sc.Name, what, want, got)
		}
	}
	check("objective", sol.Objective, sc.Expected.Objective)
	check("violation", sol.ViolationMW, sc.Expected.ViolationMW)
	for traderID, targets := range sc.Expected.TraderTargets {
		ts := sol.Traders[traderID]
		if ts == nil {
			t.Errorf("scenario %s: missing trader %s", sc.Name, traderID)
			continue
		}
		for tradeType, want := range targets {
			check(fmt.Sprintf("trader %s %s", traderID, tradeType), ts.Targets[tradeType], want)
		}
	}
	for regionID, want := range sc.Expected.RegionPrices {
		rs := sol.Regions[regionID]
		if rs == nil {
			t.Errorf("scenario %s: missing region %s", sc.Name, regionID)
			continue
		}
		check("price "+regionID, rs.EnergyPrice, want)
	}
	for icID, want := range sc.Expected.InterconnectorFlows {
		ic := sol.Interconnectors[icID]
		if ic == nil {
			t.Errorf("scenario %s: missing interconnector %s", sc.Name, icID)
			continue
		}
		check("flow "+icID, ic.Flow, want)
	}

	rep := solution.Compare(sol, cf, tol)
	if len(rep.Deltas) > 0 {
		worst, _ := rep.Worst()
		t.Errorf("scenario %s: %d observed values off, worst %s %s %s: model %v observed %v",
			sc.Name, len(rep.Deltas), worst.Kind, worst.ID, worst.Field, worst.Model, worst.Observed)
	}
}

func parseMode(s string) (casefile.RunMode, error) {
	switch s {
	case "target":
		return casefile.RunModeTarget, nil
	case "pricing":
		return casefile.RunModePricing, nil
	}
	return "", fmt.Errorf("unknown run mode %q", s)
}
