package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// mnspBigM bounds MNSP flow magnitudes in the direction-selection rows.
const mnspBigM = 1000

// defineMNSPConstraints limits how fast a market interconnector can move off
// its initial flow and decomposes that flow into the export and import seen
// at each region's connection point. A binary selects the flow direction;
// big-M rows pin the active split variables to the connection point flow and
// drive the inactive ones to zero.
func (b *builder) defineMNSPConstraints() {
	for _, id := range b.sets.MNSPOffers {
		offer := b.p.MNSPOffers[id]
		ic := b.p.Interconnectors[id.InterconnectorID]
		total := b.v.MNSPTotal[id]

		up := b.slack(fmt.Sprintf("cv_mnsp_ramp_up[%s,%s]", id.InterconnectorID, id.RegionID), b.p.Prices.MNSPRampRate)
		b.m.Add(fmt.Sprintf("mnsp_ramp_up[%s,%s]", id.InterconnectorID, id.RegionID),
			milp.NewExpr(2).Add(total, 1).Add(up, -1).Terms(),
			milp.LE, ic.InitialMW+offer.RampUp/12)

		dn := b.slack(fmt.Sprintf("cv_mnsp_ramp_down[%s,%s]", id.InterconnectorID, id.RegionID), b.p.Prices.MNSPRampRate)
		b.m.Add(fmt.Sprintf("mnsp_ramp_down[%s,%s]", id.InterconnectorID, id.RegionID),
			milp.NewExpr(2).Add(total, 1).Add(dn, 1).Terms(),
			milp.GE, ic.InitialMW-offer.RampDn/12)
	}

	for _, icID := range b.sets.MNSPs {
		ic := b.p.Interconnectors[icID]
		flow := b.v.Flow[icID]
		loss := b.v.Loss[icID]
		d := b.v.FlowDirection[icID]

		// d = 1 selects forward flow, d = 0 reverse.
		b.m.Add(fmt.Sprintf("mnsp_direction_fwd[%s]", icID),
			milp.NewExpr(2).Add(flow, 1).Add(d, -mnspBigM).Terms(), milp.GE, -mnspBigM)
		b.m.Add(fmt.Sprintf("mnsp_direction_rev[%s]", icID),
			milp.NewExpr(2).Add(flow, 1).Add(d, -mnspBigM).Terms(), milp.LE, 0)

		// Net flow at each connection point: losses are borne at the
		// sending end fixed by the initial flow direction.
		fromCP := []milp.Term{{Var: flow, Coef: 1}, {Var: loss, Coef: ic.FromRegionLossIndicator}}
		toCP := []milp.Term{{Var: flow, Coef: 1}, {Var: loss, Coef: -ic.ToRegionLossIndicator}}

		b.bindSplitFlow(icID, "from_export", b.v.FromExport[icID], fromCP, d, true)
		b.bindSplitFlow(icID, "from_import", b.v.FromImport[icID], fromCP, d, false)
		b.bindSplitFlow(icID, "to_export", b.v.ToExport[icID], toCP, d, false)
		b.bindSplitFlow(icID, "to_import", b.v.ToImport[icID], toCP, d, true)
	}
}

// bindSplitFlow produces the four rows tying one split variable to the
// connection point flow. When the direction binary matches the side the
// variable represents the first two rows collapse to v == cp; otherwise the
// last two collapse to v == 0.
func (b *builder) bindSplitFlow(icID, side string, v milp.VarID, cp []milp.Term, d milp.VarID, activeForward bool) {
	add := func(n int, terms []milp.Term, rel milp.Rel, rhs float64) {
		b.m.Add(fmt.Sprintf("mnsp_%s_%d[%s]", side, n, icID), terms, rel, rhs)
	}
	cpExpr := func(sign float64) *milp.Expr {
		e := milp.NewExpr(len(cp) + 2)
		for _, t := range cp {
			e.Add(t.Var, sign*t.Coef)
		}
		return e
	}

	if activeForward {
		add(1, cpExpr(1).Add(v, -1).Add(d, mnspBigM).Terms(), milp.LE, mnspBigM)
		add(2, cpExpr(-1).Add(v, 1).Add(d, mnspBigM).Terms(), milp.LE, mnspBigM)
		add(3, milp.NewExpr(2).Add(v, 1).Add(d, mnspBigM).Terms(), milp.GE, 0)
		add(4, milp.NewExpr(2).Add(v, 1).Add(d, -mnspBigM).Terms(), milp.LE, 0)
		return
	}
	add(1, cpExpr(1).Add(v, -1).Add(d, -mnspBigM).Terms(), milp.LE, 0)
	add(2, cpExpr(-1).Add(v, 1).Add(d, -mnspBigM).Terms(), milp.LE, 0)
	add(3, milp.NewExpr(2).Add(v, 1).Add(d, -mnspBigM).Terms(), milp.GE, -mnspBigM)
	add(4, milp.NewExpr(2).Add(v, 1).Add(d, mnspBigM).Terms(), milp.LE, mnspBigM)
}
