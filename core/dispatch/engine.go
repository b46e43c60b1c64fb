// Package dispatch runs the solve loop for one case: build the model,
// resolve fast start commitment over two passes, extract the cleared
// solution and recover regional prices.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/formulation"
	"github.com/kilianp07/nemspd/core/logger"
	"github.com/kilianp07/nemspd/core/metrics"
	"github.com/kilianp07/nemspd/core/milp"
	"github.com/kilianp07/nemspd/core/solution"
)

// Engine solves dispatch cases. An engine is stateless between cases and
// safe for concurrent use.
type Engine struct {
	cfg  Config
	log  logger.Logger
	sink metrics.MetricsSink
}

// New creates an engine.
func New(cfg Config, log logger.Logger, sink metrics.MetricsSink) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil || sink == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to New")
	}
	return &Engine{cfg: cfg, log: log, sink: sink}, nil
}

// Solve dispatches the case in the given run mode. Fast start commitment
// takes two passes: the first relaxes the inflexibility profiles to see
// which cold units the market wants started, those units are committed,
// and the second pass holds every unit to its startup profile. Cases
// without fast start traders solve in a single pass.
func (e *Engine) Solve(ctx context.Context, cf *casefile.CaseFile, mode casefile.RunMode) (*solution.Solution, error) {
	runID := uuid.NewString()
	start := time.Now()
	caseID := cf.Inputs.Case.CaseID

	sets, err := formulation.BuildSets(cf)
	if err != nil {
		solvesTotal.WithLabelValues("bind_error").Inc()
		return nil, fmt.Errorf("build sets: %w", err)
	}
	params, err := formulation.BindParams(cf, sets, mode)
	if err != nil {
		solvesTotal.WithLabelValues("bind_error").Inc()
		return nil, fmt.Errorf("bind parameters: %w", err)
	}

	e.log.Infof("case %s run %s: %d traders, %d regions, %d interconnectors, %d constraints",
		caseID, runID, len(sets.Traders), len(sets.Regions), len(sets.Interconnectors), len(sets.Constraints))

	opts := milp.Options{MaxNodes: e.cfg.MaxNodes}
	passes := 1

	model, res, err := e.pass(ctx, sets, params,
		formulation.Options{InflexibilityProfiles: len(sets.FastStart) == 0}, opts)
	if err != nil {
		solvesTotal.WithLabelValues("solve_error").Inc()
		return nil, err
	}

	if len(sets.FastStart) > 0 {
		promoted := promoteFastStart(sets, params, model, res, e.cfg.PromoteThresholdMW)
		if len(promoted) > 0 {
			fastStartPromotions.Add(float64(len(promoted)))
			e.log.Debugf("case %s: committing fast start units %v", caseID, promoted)
		}
		passes = 2
		model, res, err = e.pass(ctx, sets, params,
			formulation.Options{InflexibilityProfiles: true}, opts)
		if err != nil {
			solvesTotal.WithLabelValues("solve_error").Inc()
			return nil, err
		}
	}

	sol := solution.Extract(model, res)
	sol.RunID = runID

	if e.cfg.Pricing {
		prices, err := solution.Price(ctx, model, res, opts)
		if err != nil {
			solvesTotal.WithLabelValues("price_error").Inc()
			return nil, fmt.Errorf("price regions: %w", err)
		}
		sol.ApplyPrices(prices)
	}

	dur := time.Since(start)
	solveDuration.WithLabelValues(string(mode)).Observe(dur.Seconds())
	solvesTotal.WithLabelValues("ok").Inc()
	solveObjective.Set(sol.Objective)
	solveViolation.Set(sol.ViolationMW)
	solveNodes.Observe(float64(sol.Nodes))

	e.record(model, sol, mode, dur, passes)

	e.log.Debugw("case solved", map[string]any{
		"case_id":      caseID,
		"run_id":       runID,
		"intervention": sol.Intervention,
		"objective":    sol.Objective,
		"violation_mw": sol.ViolationMW,
		"nodes":        sol.Nodes,
		"passes":       passes,
		"duration_ms":  dur.Milliseconds(),
	})
	return sol, nil
}

// pass assembles and solves one model build.
func (e *Engine) pass(ctx context.Context, sets *formulation.Sets, p *formulation.Params, bopts formulation.Options, sopts milp.Options) (*formulation.Model, *milp.Result, error) {
	model, err := formulation.Construct(sets, p, bopts)
	if err != nil {
		return nil, nil, fmt.Errorf("construct model: %w", err)
	}
	res, err := milp.Solve(ctx, model.MILP, sopts)
	if err != nil {
		return nil, nil, fmt.Errorf("solve: %w", err)
	}
	return model, res, nil
}

// promoteFastStart commits cold fast start units the relaxed pass chose to
// run: a unit still in mode 0 whose energy target exceeds the threshold
// enters mode 1 at time zero. Units left in mode 0 are pinned off by the
// profile constraints of the second pass.
func promoteFastStart(sets *formulation.Sets, p *formulation.Params, m *formulation.Model, res *milp.Result, threshold float64) []string {
	var promoted []string
	for _, traderID := range sets.FastStart {
		trader := p.Traders[traderID]
		if trader.CurrentMode == nil || *trader.CurrentMode != 0 || !trader.HasEnergyOffer {
			continue
		}
		total, ok := m.Vars.TraderTotal[formulation.OfferID{TraderID: traderID, TradeType: trader.EnergyOffer}]
		if !ok {
			continue
		}
		if res.X[total] > threshold {
			mode := 1
			t := 0.0
			trader.CurrentMode = &mode
			trader.CurrentModeTime = &t
			promoted = append(promoted, traderID)
		}
	}
	return promoted
}

// record forwards the solved interval to the metrics sink. Sink errors are
// logged, not returned: a failing sink must not fail dispatch.
func (e *Engine) record(m *formulation.Model, sol *solution.Solution, mode casefile.RunMode, dur time.Duration, passes int) {
	now := time.Now()
	if err := e.sink.RecordSolve(metrics.SolveEvent{
		RunID:        sol.RunID,
		CaseID:       sol.CaseID,
		Intervention: sol.Intervention,
		Mode:         string(mode),
		Duration:     dur,
		Objective:    sol.Objective,
		DispatchCost: sol.DispatchCost,
		ViolationMW:  sol.ViolationMW,
		Nodes:        sol.Nodes,
		Passes:       passes,
		Priced:       sol.Priced,
		Time:         now,
	}); err != nil {
		e.log.Errorf("metrics sink error: %v", err)
	}

	if r, ok := e.sink.(metrics.RegionRecorder); ok {
		evs := make([]metrics.RegionResult, 0, len(sol.Regions))
		for _, regionID := range sortedKeys(sol.Regions) {
			rs := sol.Regions[regionID]
			evs = append(evs, metrics.RegionResult{
				RunID:                sol.RunID,
				CaseID:               sol.CaseID,
				RegionID:             regionID,
				EnergyPrice:          rs.EnergyPrice,
				Priced:               sol.Priced,
				DispatchedGeneration: rs.DispatchedGeneration,
				DispatchedLoad:       rs.DispatchedLoad,
				FixedDemand:          rs.FixedDemand,
				ClearedDemand:        rs.ClearedDemand,
				NetExport:            rs.NetExport,
				DeficitMW:            rs.DeficitMW,
				SurplusMW:            rs.SurplusMW,
				FCASTotals:           rs.FCASTotals,
				Time:                 now,
			})
		}
		if err := r.RecordRegions(evs); err != nil {
			e.log.Errorf("region metrics error: %v", err)
		}
	}

	if r, ok := e.sink.(metrics.TraderRecorder); ok {
		var evs []metrics.TraderResult
		for _, traderID := range sortedKeys(sol.Traders) {
			ts := sol.Traders[traderID]
			regionID := ""
			if tp, ok := m.Params.Traders[traderID]; ok {
				regionID = tp.RegionID
			}
			for _, tradeType := range sortedKeys(ts.Targets) {
				evs = append(evs, metrics.TraderResult{
					RunID:     sol.RunID,
					CaseID:    sol.CaseID,
					TraderID:  traderID,
					RegionID:  regionID,
					TradeType: tradeType,
					TargetMW:  ts.Targets[tradeType],
					Time:      now,
				})
			}
		}
		if err := r.RecordTraders(evs); err != nil {
			e.log.Errorf("trader metrics error: %v", err)
		}
	}

	if r, ok := e.sink.(metrics.InterconnectorRecorder); ok {
		evs := make([]metrics.InterconnectorResult, 0, len(sol.Interconnectors))
		for _, icID := range sortedKeys(sol.Interconnectors) {
			ic := sol.Interconnectors[icID]
			evs = append(evs, metrics.InterconnectorResult{
				RunID:            sol.RunID,
				CaseID:           sol.CaseID,
				InterconnectorID: icID,
				FlowMW:           ic.Flow,
				LossMW:           ic.Losses,
				Time:             now,
			})
		}
		if err := r.RecordInterconnectors(evs); err != nil {
			e.log.Errorf("interconnector metrics error: %v", err)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
