package solution

import (
	"math"
	"sort"

	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/formulation"
)

// Delta is one model-versus-observed discrepancy beyond tolerance.
type Delta struct {
	Kind     string
	ID       string
	Field    string
	Model    float64
	Observed float64
}

// Gap is the absolute model-observed difference.
func (d Delta) Gap() float64 { return math.Abs(d.Model - d.Observed) }

// Report summarises a comparison run. Deltas holds only the checks that
// exceeded tolerance, worst first.
type Report struct {
	Checked int
	Deltas  []Delta
}

// Worst returns the largest delta, if any check failed.
func (r *Report) Worst() (Delta, bool) {
	if len(r.Deltas) == 0 {
		return Delta{}, false
	}
	return r.Deltas[0], true
}

// observedTargets maps observed trader solution attributes to trade types.
var observedTargets = []struct {
	tradeType string
	attr      func(*casefile.TraderSolutionRow) *casefile.Attr
}{
	{formulation.Raise6Second, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.R6Target }},
	{formulation.Raise60Second, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.R60Target }},
	{formulation.Raise5Minute, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.R5Target }},
	{formulation.RaiseRegulation, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.R5RegTarget }},
	{formulation.Lower6Second, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.L6Target }},
	{formulation.Lower60Second, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.L60Target }},
	{formulation.Lower5Minute, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.L5Target }},
	{formulation.LowerRegulation, func(r *casefile.TraderSolutionRow) *casefile.Attr { return r.L5RegTarget }},
}

// Compare diffs a model solution against the observed solution published in
// the case file, restricted to the solution's intervention pricing. Checks
// within tol of the observed value pass silently.
func Compare(sol *Solution, cf *casefile.CaseFile, tol float64) *Report {
	c := &comparison{report: &Report{}, tol: tol}
	out := &cf.Outputs

	for i := range out.PeriodSolution {
		row := &out.PeriodSolution[i]
		if row.Intervention != sol.Intervention {
			continue
		}
		c.check("period", sol.CaseID, "TotalObjective", sol.Objective, row.TotalObjective)
	}

	for i := range out.RegionSolution {
		row := &out.RegionSolution[i]
		rs, ok := sol.Regions[row.RegionID]
		if !ok || row.Intervention != sol.Intervention {
			continue
		}
		if sol.Priced {
			c.check("region", row.RegionID, "EnergyPrice", rs.EnergyPrice, row.EnergyPrice)
		}
		c.check("region", row.RegionID, "DispatchedGeneration", rs.DispatchedGeneration, row.DispatchedGeneration)
		c.check("region", row.RegionID, "DispatchedLoad", rs.DispatchedLoad, row.DispatchedLoad)
		c.check("region", row.RegionID, "FixedDemand", rs.FixedDemand, row.FixedDemand)
		c.check("region", row.RegionID, "ClearedDemand", rs.ClearedDemand, row.ClearedDemand)
		c.check("region", row.RegionID, "NetExport", rs.NetExport, row.NetExport)
	}

	for i := range out.TraderSolution {
		row := &out.TraderSolution[i]
		ts, ok := sol.Traders[row.TraderID]
		if !ok || row.Intervention != sol.Intervention {
			continue
		}
		energy, has := ts.Targets[formulation.EnergyGeneration]
		if !has {
			energy = ts.Targets[formulation.EnergyLoad]
		}
		c.check("trader", row.TraderID, "EnergyTarget", energy, row.EnergyTarget)
		for _, m := range observedTargets {
			if target, has := ts.Targets[m.tradeType]; has {
				c.check("trader", row.TraderID, m.tradeType, target, m.attr(row))
			}
		}
	}

	for i := range out.InterconnectorSolution {
		row := &out.InterconnectorSolution[i]
		is, ok := sol.Interconnectors[row.InterconnectorID]
		if !ok || row.Intervention != sol.Intervention {
			continue
		}
		c.check("interconnector", row.InterconnectorID, "Flow", is.Flow, row.Flow)
		c.check("interconnector", row.InterconnectorID, "Losses", is.Losses, row.Losses)
	}

	for i := range out.ConstraintSolution {
		row := &out.ConstraintSolution[i]
		cs, ok := sol.Constraints[row.ConstraintID]
		if !ok || row.Intervention != sol.Intervention {
			continue
		}
		c.check("constraint", row.ConstraintID, "Deficit", cs.Deficit, row.Deficit)
	}

	sort.SliceStable(c.report.Deltas, func(i, j int) bool {
		return c.report.Deltas[i].Gap() > c.report.Deltas[j].Gap()
	})
	return c.report
}

type comparison struct {
	report *Report
	tol    float64
}

// check records a delta when the model value strays beyond tolerance from
// the observed attribute. Absent attributes are not checked.
func (c *comparison) check(kind, id, field string, model float64, observed *casefile.Attr) {
	if observed == nil {
		return
	}
	c.report.Checked++
	obs := float64(*observed)
	if math.Abs(model-obs) <= c.tol {
		return
	}
	c.report.Deltas = append(c.report.Deltas, Delta{
		Kind:     kind,
		ID:       id,
		Field:    field,
		Model:    model,
		Observed: obs,
	})
}
