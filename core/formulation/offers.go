package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// defineOfferConstraints ties totals to their bands and caps dispatch at the
// offered quantities. Semi-dispatchable energy is capped at the forecast
// instead of the offered max availability, with its own surplus penalty.
func (b *builder) defineOfferConstraints() {
	for _, id := range b.sets.Offers {
		offer := b.p.Offers[id]
		total := b.v.TraderTotal[id]

		expr := milp.NewExpr(11).Add(total, 1)
		for band := 1; band <= 10; band++ {
			bid := BandID{OfferID: id, Band: band}
			v := b.v.TraderOffer[bid]
			expr.Add(v, -1)

			cv := b.slack(fmt.Sprintf("cv_trader_offer[%s,%s,%d]", id.TraderID, id.TradeType, band), b.p.Prices.Offer)
			b.m.Add(fmt.Sprintf("trader_offer[%s,%s,%d]", id.TraderID, id.TradeType, band),
				milp.NewExpr(2).Add(v, 1).Add(cv, -1).Terms(), milp.LE, offer.QuantityBands[band-1])
		}
		b.m.Add(fmt.Sprintf("trader_total_offer[%s,%s]", id.TraderID, id.TradeType), expr.Terms(), milp.EQ, 0)

		trader := b.p.Traders[id.TraderID]
		if trader.SemiDispatch && id.TradeType == EnergyGeneration {
			uigf := 0.0
			if trader.UIGF != nil {
				uigf = *trader.UIGF
			}
			cv := b.slack(fmt.Sprintf("cv_trader_uigf_surplus[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.UIGFSurplus)
			b.m.Add(fmt.Sprintf("trader_capacity[%s,%s]", id.TraderID, id.TradeType),
				milp.NewExpr(2).Add(total, 1).Add(cv, -1).Terms(), milp.LE, uigf)
		} else {
			cv := b.slack(fmt.Sprintf("cv_trader_capacity[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.Capacity)
			b.m.Add(fmt.Sprintf("trader_capacity[%s,%s]", id.TraderID, id.TradeType),
				milp.NewExpr(2).Add(total, 1).Add(cv, -1).Terms(), milp.LE, offer.MaxAvail)
		}
	}

	for _, id := range b.sets.MNSPOffers {
		offer := b.p.MNSPOffers[id]
		total := b.v.MNSPTotal[id]

		expr := milp.NewExpr(11).Add(total, 1)
		for band := 1; band <= 10; band++ {
			bid := MNSPBandID{MNSPOfferID: id, Band: band}
			v := b.v.MNSPOffer[bid]
			expr.Add(v, -1)

			cv := b.slack(fmt.Sprintf("cv_mnsp_offer[%s,%s,%d]", id.InterconnectorID, id.RegionID, band), b.p.Prices.MNSPOffer)
			b.m.Add(fmt.Sprintf("mnsp_offer[%s,%s,%d]", id.InterconnectorID, id.RegionID, band),
				milp.NewExpr(2).Add(v, 1).Add(cv, -1).Terms(), milp.LE, offer.QuantityBands[band-1])
		}
		b.m.Add(fmt.Sprintf("mnsp_total_offer[%s,%s]", id.InterconnectorID, id.RegionID), expr.Terms(), milp.EQ, 0)

		cv := b.slack(fmt.Sprintf("cv_mnsp_capacity[%s,%s]", id.InterconnectorID, id.RegionID), b.p.Prices.MNSPCapacity)
		b.m.Add(fmt.Sprintf("mnsp_capacity[%s,%s]", id.InterconnectorID, id.RegionID),
			milp.NewExpr(2).Add(total, 1).Add(cv, -1).Terms(), milp.LE, offer.MaxAvail)
	}
}

// defineUnitConstraints limits energy movement over the interval to the
// effective ramp rate. Offers without a rate are left unconstrained.
func (b *builder) defineUnitConstraints() {
	for _, traderID := range b.sets.Traders {
		trader := b.p.Traders[traderID]
		if !trader.HasEnergyOffer {
			continue
		}
		id := OfferID{TraderID: traderID, TradeType: trader.EnergyOffer}
		total := b.v.TraderTotal[id]

		if trader.EffRampUp != nil {
			up := b.slack(fmt.Sprintf("cv_trader_ramp_up[%s]", traderID), b.p.Prices.RampRate)
			b.m.Add(fmt.Sprintf("trader_ramp_up[%s]", traderID),
				milp.NewExpr(2).Add(total, 1).Add(up, -1).Terms(),
				milp.LE, rampUpRHS(trader))
		}

		if trader.EffRampDn != nil {
			dn := b.slack(fmt.Sprintf("cv_trader_ramp_down[%s]", traderID), b.p.Prices.RampRate)
			b.m.Add(fmt.Sprintf("trader_ramp_down[%s]", traderID),
				milp.NewExpr(2).Add(total, 1).Add(dn, 1).Terms(),
				milp.GE, trader.InitialMW-*trader.EffRampDn/12)
		}
	}
}

// rampUpRHS is the highest energy target reachable this interval. Fast start
// units synchronising or climbing to minimum loading follow the startup
// trajectory; everything else ramps from its initial MW at the effective
// rate. InitialMW is not trusted for mode 1 and 2 units because AGC may
// read zero while the trajectory says otherwise.
func rampUpRHS(trader *TraderParams) float64 {
	if trader.FastStart && trader.CurrentMode != nil && trader.CurrentModeTime != nil {
		switch *trader.CurrentMode {
		case 1:
			return ModeOneRampCapability(trader.T1, trader.T2, trader.MinLoading, *trader.CurrentModeTime, *trader.EffRampUp)
		case 2:
			return ModeTwoInitialMW(trader.T2, trader.MinLoading, *trader.CurrentModeTime) +
				ModeTwoRampCapability(trader.T2, trader.MinLoading, *trader.CurrentModeTime, *trader.EffRampUp)
		}
	}
	return trader.InitialMW + *trader.EffRampUp/12
}
