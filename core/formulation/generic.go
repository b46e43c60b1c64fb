package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// defineGenericConstraints creates the generic constraint variables, links
// them to the offer variables they stand for and asserts each constraint
// against its observed RHS. Constraint factors occasionally reference offers
// that were never submitted; the link is skipped and the variable floats,
// which neutralises the term the same way the market system treats it.
func (b *builder) defineGenericConstraints() error {
	for _, id := range b.sets.GCTraderVars {
		v := b.m.NewFree(fmt.Sprintf("gc_trader[%s,%s]", id.TraderID, id.TradeType))
		b.v.GCTrader[id] = v
		if total, ok := b.v.TraderTotal[id]; ok {
			b.m.Add(fmt.Sprintf("gc_trader_link[%s,%s]", id.TraderID, id.TradeType),
				milp.NewExpr(2).Add(total, 1).Add(v, -1).Terms(), milp.EQ, 0)
		}
	}

	for _, id := range b.sets.GCRegionVars {
		v := b.m.NewFree(fmt.Sprintf("gc_region[%s,%s]", id.RegionID, id.TradeType))
		b.v.GCRegion[id] = v
		expr := milp.NewExpr(8)
		for _, offer := range b.sets.Offers {
			if offer.TradeType != id.TradeType {
				continue
			}
			if b.p.Traders[offer.TraderID].RegionID != id.RegionID {
				continue
			}
			expr.Add(b.v.TraderTotal[offer], 1)
		}
		expr.Add(v, -1)
		b.m.Add(fmt.Sprintf("gc_region_link[%s,%s]", id.RegionID, id.TradeType), expr.Terms(), milp.EQ, 0)
	}

	// A market interconnector's flow is the net of its two region offers.
	for _, icID := range b.sets.MNSPs {
		ic := b.p.Interconnectors[icID]
		to, okTo := b.v.MNSPTotal[MNSPOfferID{InterconnectorID: icID, RegionID: ic.ToRegion}]
		from, okFrom := b.v.MNSPTotal[MNSPOfferID{InterconnectorID: icID, RegionID: ic.FromRegion}]
		if !okTo || !okFrom {
			continue
		}
		b.m.Add(fmt.Sprintf("mnsp_link[%s]", icID),
			milp.NewExpr(3).Add(b.v.Flow[icID], 1).Add(to, -1).Add(from, 1).Terms(), milp.EQ, 0)
	}

	for _, constraintID := range b.sets.Constraints {
		gc := b.p.Constraints[constraintID]
		lhs := milp.NewExpr(len(gc.TraderTerms) + len(gc.InterconnectorTerms) + len(gc.RegionTerms) + 2)
		for _, t := range gc.TraderTerms {
			lhs.Add(b.v.GCTrader[t.Offer], t.Factor)
		}
		for _, t := range gc.InterconnectorTerms {
			lhs.Add(b.v.Flow[t.InterconnectorID], t.Factor)
		}
		for _, t := range gc.RegionTerms {
			lhs.Add(b.v.GCRegion[t.Region], t.Factor)
		}

		switch gc.Type {
		case "LE":
			cv := b.slack(fmt.Sprintf("cv_gc[%s]", constraintID), gc.ViolationPrice)
			b.v.GCSlack[constraintID] = []milp.VarID{cv}
			lhs.Add(cv, -1)
			b.m.Add(fmt.Sprintf("gc[%s]", constraintID), lhs.Terms(), milp.LE, gc.RHS)
		case "GE":
			cv := b.slack(fmt.Sprintf("cv_gc[%s]", constraintID), gc.ViolationPrice)
			b.v.GCSlack[constraintID] = []milp.VarID{cv}
			lhs.Add(cv, 1)
			b.m.Add(fmt.Sprintf("gc[%s]", constraintID), lhs.Terms(), milp.GE, gc.RHS)
		case "EQ":
			lo := b.slack(fmt.Sprintf("cv_gc_lhs[%s]", constraintID), gc.ViolationPrice)
			hi := b.slack(fmt.Sprintf("cv_gc_rhs[%s]", constraintID), gc.ViolationPrice)
			b.v.GCSlack[constraintID] = []milp.VarID{lo, hi}
			lhs.Add(lo, 1).Add(hi, -1)
			b.m.Add(fmt.Sprintf("gc[%s]", constraintID), lhs.Terms(), milp.EQ, gc.RHS)
		default:
			return fmt.Errorf("constraint %s: type %q: %w", constraintID, gc.Type, ErrConstraintType)
		}
	}
	return nil
}
