package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// defineInflexibilityConstraints holds each committed fast start unit on its
// startup profile at the end of the interval: pinned to zero while
// synchronising, on the startup trajectory in mode 2, at or above minimum
// loading in mode 3 and on the descending floor in mode 4. Units without
// telemetered commitment state are left unconstrained.
func (b *builder) defineInflexibilityConstraints() {
	for _, traderID := range b.sets.FastStart {
		trader := b.p.Traders[traderID]
		if trader.CurrentMode == nil || trader.CurrentModeTime == nil || !trader.HasEnergyOffer {
			continue
		}
		total, ok := b.v.TraderTotal[OfferID{TraderID: traderID, TradeType: trader.EnergyOffer}]
		if !ok {
			continue
		}

		mode := TargetMode(*trader.CurrentMode, *trader.CurrentModeTime, trader.T1, trader.T2, trader.T3, trader.T4)
		t := TargetModeTime(*trader.CurrentMode, *trader.CurrentModeTime, trader.T1, trader.T2, trader.T3, trader.T4)

		if mode <= 1 {
			b.pinProfile(traderID, total, 0)
			continue
		}
		if mode == 2 {
			b.pinProfile(traderID, total, (trader.MinLoading/trader.T2)*t)
			continue
		}

		floor := 0.0
		switch {
		case mode == 3:
			floor = trader.MinLoading
		case mode == 4 && t < trader.T4:
			floor = trader.MinLoading - (trader.MinLoading/trader.T4)*t
		}
		cv := b.slack(fmt.Sprintf("cv_inflexibility[%s]", traderID), b.p.Prices.FastStart)
		b.m.Add(fmt.Sprintf("inflexibility_min[%s]", traderID),
			milp.NewExpr(2).Add(total, 1).Add(cv, 1).Terms(), milp.GE, floor)
	}
}

// pinProfile fixes an energy target to a profile point with violation slacks
// on both sides.
func (b *builder) pinProfile(traderID string, total milp.VarID, target float64) {
	lo := b.slack(fmt.Sprintf("cv_inflexibility_lo[%s]", traderID), b.p.Prices.FastStart)
	hi := b.slack(fmt.Sprintf("cv_inflexibility_hi[%s]", traderID), b.p.Prices.FastStart)
	b.m.Add(fmt.Sprintf("inflexibility_profile[%s]", traderID),
		milp.NewExpr(3).Add(total, 1).Add(lo, 1).Add(hi, -1).Terms(), milp.EQ, target)
}
