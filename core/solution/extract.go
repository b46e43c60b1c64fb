package solution

import (
	"github.com/kilianp07/nemspd/core/formulation"
	"github.com/kilianp07/nemspd/core/milp"
)

// Extract maps a solved vector back onto the market entities of the model.
// Regional balances are re-evaluated from the expressions recorded during
// construction, so the report and the power balance constraints cannot
// drift apart.
func Extract(m *formulation.Model, res *milp.Result) *Solution {
	sol := &Solution{
		CaseID:          m.Params.CaseID,
		Intervention:    m.Params.Intervention,
		Objective:       res.Objective,
		DispatchCost:    milp.Value(m.Vars.CostTerms, res.X),
		Traders:         make(map[string]*TraderSolution, len(m.Sets.Traders)),
		Regions:         make(map[string]*RegionSolution, len(m.Sets.Regions)),
		Interconnectors: make(map[string]*InterconnectorSolution, len(m.Sets.Interconnectors)),
		Constraints:     make(map[string]*ConstraintSolution, len(m.Sets.Constraints)),
		Nodes:           res.Nodes,
	}

	for _, id := range m.Sets.Offers {
		ts, ok := sol.Traders[id.TraderID]
		if !ok {
			ts = &TraderSolution{TraderID: id.TraderID, Targets: make(map[string]float64)}
			sol.Traders[id.TraderID] = ts
		}
		ts.Targets[id.TradeType] = res.X[m.Vars.TraderTotal[id]]
	}

	for _, regionID := range m.Sets.Regions {
		re := m.Regions[regionID]
		region := m.Params.Regions[regionID]
		rs := &RegionSolution{
			RegionID:             regionID,
			DispatchedGeneration: milp.Value(re.DispatchedGeneration, res.X),
			DispatchedLoad:       milp.Value(re.DispatchedLoad, res.X),
			FixedDemand:          region.FixedDemand,
			NetExport:            milp.Value(re.NetExport, res.X),
			DeficitMW:            res.X[m.Vars.RegionDeficit[regionID]],
			SurplusMW:            res.X[m.Vars.RegionSurplus[regionID]],
			FCASTotals:           make(map[string]float64, len(formulation.FCASTypes)),
		}
		rs.ClearedDemand = rs.FixedDemand + rs.DispatchedLoad
		for _, service := range formulation.FCASTypes {
			rs.FCASTotals[service] = 0
		}
		sol.ViolationMW += rs.DeficitMW + rs.SurplusMW
		sol.Regions[regionID] = rs
	}
	for _, id := range m.Sets.Offers {
		if !formulation.IsFCAS(id.TradeType) {
			continue
		}
		regionID := m.Params.Traders[id.TraderID].RegionID
		if rs, ok := sol.Regions[regionID]; ok {
			rs.FCASTotals[id.TradeType] += res.X[m.Vars.TraderTotal[id]]
		}
	}

	for _, icID := range m.Sets.Interconnectors {
		sol.Interconnectors[icID] = &InterconnectorSolution{
			InterconnectorID: icID,
			Flow:             res.X[m.Vars.Flow[icID]],
			Losses:           res.X[m.Vars.Loss[icID]],
		}
	}

	for _, cID := range m.Sets.Constraints {
		cs := &ConstraintSolution{ConstraintID: cID}
		for _, sv := range m.Vars.GCSlack[cID] {
			cs.Deficit += res.X[sv]
		}
		sol.ViolationMW += cs.Deficit
		sol.Constraints[cID] = cs
	}

	return sol
}
