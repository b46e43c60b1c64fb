package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// regionLossShare is the fraction of an interconnector's loss variable
// allocated to a region: the whole loss to an MNSP's sending end, or the
// LossShare split for regulated links.
func regionLossShare(ic *InterconnectorParams, regionID string) float64 {
	if regionID != ic.FromRegion && regionID != ic.ToRegion {
		return 0
	}
	if ic.MNSP {
		sendingFrom := ic.InitialMW >= 0 && regionID == ic.FromRegion
		sendingTo := ic.InitialMW < 0 && regionID == ic.ToRegion
		if sendingFrom || sendingTo {
			return 1
		}
		return 0
	}
	if regionID == ic.FromRegion {
		return ic.LossShare
	}
	return 1 - ic.LossShare
}

// mnspLossTerms is the loss-factor component of an MNSP's flow as seen from
// one region: (LF - 1) times the connection point export or import, negated
// on the receiving side.
func (b *builder) mnspLossTerms(ic *InterconnectorParams, regionID string) []milp.Term {
	switch regionID {
	case ic.FromRegion:
		return []milp.Term{
			{Var: b.v.FromExport[ic.ID], Coef: ic.FromLFExport - 1},
			{Var: b.v.FromImport[ic.ID], Coef: ic.FromLFImport - 1},
		}
	case ic.ToRegion:
		return []milp.Term{
			{Var: b.v.ToExport[ic.ID], Coef: -(ic.ToLFExport - 1)},
			{Var: b.v.ToImport[ic.ID], Coef: -(ic.ToLFImport - 1)},
		}
	}
	return nil
}

// defineRegionConstraints asserts the power balance in every region:
//
//	generation + deficit == fixed demand + load + net export + surplus
//
// Net export is the flow leaving the region plus the losses it is charged
// for. The balance expressions are recorded per region so solution reports
// can re-evaluate cleared demand and net export from the solved vector.
func (b *builder) defineRegionConstraints() {
	for _, regionID := range b.sets.Regions {
		region := b.p.Regions[regionID]
		re := &RegionExpr{}

		for _, id := range b.sets.Offers {
			if b.p.Traders[id.TraderID].RegionID != regionID {
				continue
			}
			switch id.TradeType {
			case EnergyGeneration:
				re.DispatchedGeneration = append(re.DispatchedGeneration,
					milp.Term{Var: b.v.TraderTotal[id], Coef: 1})
			case EnergyLoad:
				re.DispatchedLoad = append(re.DispatchedLoad,
					milp.Term{Var: b.v.TraderTotal[id], Coef: 1})
			}
		}

		for _, icID := range b.sets.Interconnectors {
			ic := b.p.Interconnectors[icID]
			switch regionID {
			case ic.FromRegion:
				re.NetExport = append(re.NetExport, milp.Term{Var: b.v.Flow[icID], Coef: 1})
			case ic.ToRegion:
				re.NetExport = append(re.NetExport, milp.Term{Var: b.v.Flow[icID], Coef: -1})
			default:
				continue
			}
			if share := regionLossShare(ic, regionID); share != 0 {
				re.AllocatedLoss = append(re.AllocatedLoss,
					milp.Term{Var: b.v.Loss[icID], Coef: share})
			}
			if ic.MNSP {
				re.MNSPLoss = append(re.MNSPLoss, b.mnspLossTerms(ic, regionID)...)
			}
		}
		re.NetExport = append(re.NetExport, re.AllocatedLoss...)
		re.NetExport = append(re.NetExport, re.MNSPLoss...)

		deficit := b.slack(fmt.Sprintf("cv_region_deficit[%s]", regionID), b.p.Prices.EnergyDeficit)
		surplus := b.slack(fmt.Sprintf("cv_region_surplus[%s]", regionID), b.p.Prices.EnergySurplus)
		b.v.RegionDeficit[regionID] = deficit
		b.v.RegionSurplus[regionID] = surplus

		expr := milp.NewExpr(len(re.DispatchedGeneration) + len(re.DispatchedLoad) + len(re.NetExport) + 2)
		for _, t := range re.DispatchedGeneration {
			expr.Add(t.Var, t.Coef)
		}
		expr.Add(deficit, 1)
		for _, t := range re.DispatchedLoad {
			expr.Add(t.Var, -t.Coef)
		}
		for _, t := range re.NetExport {
			expr.Add(t.Var, -t.Coef)
		}
		expr.Add(surplus, -1)
		re.BalanceRow = b.m.Add(fmt.Sprintf("power_balance[%s]", regionID), expr.Terms(), milp.EQ, region.FixedDemand)

		b.regions[regionID] = re
	}
}

// defineInterconnectorConstraints caps flow at the notified limits in both
// directions.
func (b *builder) defineInterconnectorConstraints() {
	for _, icID := range b.sets.Interconnectors {
		ic := b.p.Interconnectors[icID]
		flow := b.v.Flow[icID]

		fwd := b.slack(fmt.Sprintf("cv_ic_forward[%s]", icID), b.p.Prices.Interconnector)
		b.m.Add(fmt.Sprintf("ic_forward[%s]", icID),
			milp.NewExpr(2).Add(flow, 1).Add(fwd, -1).Terms(), milp.LE, ic.UpperLimit)

		rev := b.slack(fmt.Sprintf("cv_ic_reverse[%s]", icID), b.p.Prices.Interconnector)
		b.m.Add(fmt.Sprintf("ic_reverse[%s]", icID),
			milp.NewExpr(2).Add(flow, 1).Add(rev, 1).Terms(), milp.GE, -ic.LowerLimit)
	}
}
