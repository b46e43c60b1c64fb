package formulation

import (
	"fmt"
	"math"

	"github.com/kilianp07/nemspd/core/milp"
)

// upperSlopeCoefficient is the rise of the right trapezium edge per MW of
// service: (EnablementMax - HighBreakpoint) / MaxAvail. Undefined for an
// offer with no availability; callers skip the edge constraint.
func upperSlopeCoefficient(t *Trapezium) (float64, bool) {
	if t.MaxAvail == 0 {
		return 0, false
	}
	return (t.EnablementMax - t.HighBreakpoint) / t.MaxAvail, true
}

// lowerSlopeCoefficient mirrors upperSlopeCoefficient for the left edge.
func lowerSlopeCoefficient(t *Trapezium) (float64, bool) {
	if t.MaxAvail == 0 {
		return 0, false
	}
	return (t.LowBreakpoint - t.EnablementMin) / t.MaxAvail, true
}

// effectiveEnablementMax tightens a regulating offer's upper enablement
// limit by the AGC upper bound and, for semi-dispatchable plant, the
// forecast.
func effectiveEnablementMax(offer *OfferParams, trader *TraderParams) float64 {
	v := offer.Trapezium.EnablementMax
	if trader.HMW != nil && *trader.HMW < v {
		v = *trader.HMW
	}
	if trader.SemiDispatch && trader.UIGF != nil && *trader.UIGF < v {
		v = *trader.UIGF
	}
	return v
}

// effectiveEnablementMin tightens a regulating offer's lower enablement
// limit by the AGC lower bound.
func effectiveEnablementMin(offer *OfferParams, trader *TraderParams) float64 {
	v := offer.Trapezium.EnablementMin
	if trader.LMW != nil && *trader.LMW > v {
		v = *trader.LMW
	}
	return v
}

// regulationRampBound is the SCADA rate capping a regulating service: raise
// draws on a generator's ramp-up and a load's ramp-down, lower the reverse.
// Nil when the rate is not telemetered or the service is contingency.
func regulationRampBound(tradeType string, trader *TraderParams) *float64 {
	if !IsRegulating(tradeType) {
		return nil
	}
	up := (tradeType == RaiseRegulation) == (trader.Type == TraderGenerator)
	if up {
		return trader.SCADARampUp
	}
	return trader.SCADARampDn
}

// defineFCASConstraints builds the trapezium coupling between each FCAS
// service and its trader's energy dispatch. Unavailable services are pinned
// to zero; available ones get the flat-top ceiling, the joint ramping or
// joint capacity edges, and the enablement band on the energy target.
func (b *builder) defineFCASConstraints() {
	for _, id := range b.sets.Offers {
		if !IsFCAS(id.TradeType) {
			continue
		}
		offer := b.p.Offers[id]
		trader := b.p.Traders[id.TraderID]
		total := b.v.TraderTotal[id]

		if !offer.Available {
			cv := b.slack(fmt.Sprintf("cv_fcas_max_avail[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASMaxAvail)
			b.m.Add(fmt.Sprintf("fcas_unavailable[%s,%s]", id.TraderID, id.TradeType),
				milp.NewExpr(2).Add(total, 1).Add(cv, -1).Terms(), milp.EQ, 0)
			continue
		}

		b.fcasMaxAvailable(id, offer, trader, total)

		if !trader.HasEnergyOffer {
			continue
		}
		energy := b.v.TraderTotal[OfferID{TraderID: id.TraderID, TradeType: trader.EnergyOffer}]
		if IsRegulating(id.TradeType) {
			b.jointRamping(id, trader, total, energy)
			b.energyRegulatingBounds(id, offer, trader, total, energy)
		} else {
			b.jointCapacityBounds(id, offer, trader, total, energy)
		}
		b.enablementBounds(id, offer, trader, energy)
	}
}

// fcasMaxAvailable caps the service at its offered availability, further
// reduced for regulating services by what the telemetered AGC ramp rate can
// deliver over the interval. A rate that is absent or zero leaves the
// offered ceiling alone.
func (b *builder) fcasMaxAvailable(id OfferID, offer *OfferParams, trader *TraderParams, total milp.VarID) {
	ceiling := offer.MaxAvail
	if scada := regulationRampBound(id.TradeType, trader); scada != nil && *scada > 0 {
		ceiling = math.Min(*scada/12, ceiling)
	}
	cv := b.slack(fmt.Sprintf("cv_fcas_max_avail[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASMaxAvail)
	b.m.Add(fmt.Sprintf("fcas_max_avail[%s,%s]", id.TraderID, id.TradeType),
		milp.NewExpr(2).Add(total, 1).Add(cv, -1).Terms(), milp.LE, ceiling)
}

// jointRamping shares the unit's ramp capability between energy movement and
// regulation. A raise from a generator and a lower from a load both push the
// unit up against its ramp-up rate; the mirror cases press on ramp-down.
// Skipped when the binding SCADA rate is absent or non-positive.
func (b *builder) jointRamping(id OfferID, trader *TraderParams, total, energy milp.VarID) {
	name := "fcas_joint_ramp_up"
	if id.TradeType == LowerRegulation {
		name = "fcas_joint_ramp_down"
	}

	rampUpBinds := (id.TradeType == RaiseRegulation) == (trader.Type == TraderGenerator)
	if rampUpBinds {
		if trader.SCADARampUp == nil || *trader.SCADARampUp <= 0 {
			return
		}
		cv := b.slack(fmt.Sprintf("cv_%s[%s]", name, id.TraderID), b.p.Prices.ASMaxAvail)
		b.m.Add(fmt.Sprintf("%s[%s]", name, id.TraderID),
			milp.NewExpr(3).Add(energy, 1).Add(total, 1).Add(cv, -1).Terms(),
			milp.LE, trader.InitialMW+*trader.SCADARampUp/12)
		return
	}
	if trader.SCADARampDn == nil || *trader.SCADARampDn <= 0 {
		return
	}
	cv := b.slack(fmt.Sprintf("cv_%s[%s]", name, id.TraderID), b.p.Prices.ASMaxAvail)
	b.m.Add(fmt.Sprintf("%s[%s]", name, id.TraderID),
		milp.NewExpr(3).Add(energy, 1).Add(total, -1).Add(cv, 1).Terms(),
		milp.GE, trader.InitialMW-*trader.SCADARampDn/12)
}

// jointCapacityBounds walks the energy target along a contingency
// trapezium's sloped edges, reserving headroom for any regulating service
// the trader also offers: raise regulation crowds the upper edge of a
// generator, lower regulation its lower edge, transposed for loads.
func (b *builder) jointCapacityBounds(id OfferID, offer *OfferParams, trader *TraderParams, total, energy milp.VarID) {
	upperCompanion := RaiseRegulation
	lowerCompanion := LowerRegulation
	if trader.Type != TraderGenerator {
		upperCompanion, lowerCompanion = lowerCompanion, upperCompanion
	}

	if usc, ok := upperSlopeCoefficient(offer.Trapezium); ok {
		expr := milp.NewExpr(4).Add(energy, 1).Add(total, usc)
		if companion, exists := b.v.TraderTotal[OfferID{TraderID: id.TraderID, TradeType: upperCompanion}]; exists {
			expr.Add(companion, 1)
		}
		cv := b.slack(fmt.Sprintf("cv_fcas_joint_capacity_rhs[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASMaxAvail)
		b.m.Add(fmt.Sprintf("fcas_joint_capacity_rhs[%s,%s]", id.TraderID, id.TradeType),
			expr.Add(cv, -1).Terms(), milp.LE, offer.Trapezium.EnablementMax)
	}

	if lsc, ok := lowerSlopeCoefficient(offer.Trapezium); ok {
		expr := milp.NewExpr(4).Add(energy, 1).Add(total, -lsc)
		if companion, exists := b.v.TraderTotal[OfferID{TraderID: id.TraderID, TradeType: lowerCompanion}]; exists {
			expr.Add(companion, -1)
		}
		cv := b.slack(fmt.Sprintf("cv_fcas_joint_capacity_lhs[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASMaxAvail)
		b.m.Add(fmt.Sprintf("fcas_joint_capacity_lhs[%s,%s]", id.TraderID, id.TradeType),
			expr.Add(cv, 1).Terms(), milp.GE, offer.Trapezium.EnablementMin)
	}
}

// energyRegulatingBounds walks the energy target along a regulating
// trapezium's sloped edges against the effective enablement limits.
func (b *builder) energyRegulatingBounds(id OfferID, offer *OfferParams, trader *TraderParams, total, energy milp.VarID) {
	if usc, ok := upperSlopeCoefficient(offer.Trapezium); ok {
		cv := b.slack(fmt.Sprintf("cv_fcas_energy_regulating_rhs[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASMaxAvail)
		b.m.Add(fmt.Sprintf("fcas_energy_regulating_rhs[%s,%s]", id.TraderID, id.TradeType),
			milp.NewExpr(3).Add(energy, 1).Add(total, usc).Add(cv, -1).Terms(),
			milp.LE, effectiveEnablementMax(offer, trader))
	}
	if lsc, ok := lowerSlopeCoefficient(offer.Trapezium); ok {
		cv := b.slack(fmt.Sprintf("cv_fcas_energy_regulating_lhs[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASMaxAvail)
		b.m.Add(fmt.Sprintf("fcas_energy_regulating_lhs[%s,%s]", id.TraderID, id.TradeType),
			milp.NewExpr(3).Add(energy, 1).Add(total, -lsc).Add(cv, 1).Terms(),
			milp.GE, effectiveEnablementMin(offer, trader))
	}
}

// enablementBounds keeps the energy target inside the band where the
// service may be enabled. Regulating offers use the effective limits.
func (b *builder) enablementBounds(id OfferID, offer *OfferParams, trader *TraderParams, energy milp.VarID) {
	lower := offer.Trapezium.EnablementMin
	upper := offer.Trapezium.EnablementMax
	if IsRegulating(id.TradeType) {
		lower = effectiveEnablementMin(offer, trader)
		upper = effectiveEnablementMax(offer, trader)
	}

	lo := b.slack(fmt.Sprintf("cv_fcas_enablement_min[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASEnablementMin)
	b.m.Add(fmt.Sprintf("fcas_enablement_min[%s,%s]", id.TraderID, id.TradeType),
		milp.NewExpr(2).Add(energy, 1).Add(lo, 1).Terms(), milp.GE, lower)

	hi := b.slack(fmt.Sprintf("cv_fcas_enablement_max[%s,%s]", id.TraderID, id.TradeType), b.p.Prices.ASEnablementMax)
	b.m.Add(fmt.Sprintf("fcas_enablement_max[%s,%s]", id.TraderID, id.TradeType),
		milp.NewExpr(2).Add(energy, 1).Add(hi, -1).Terms(), milp.LE, upper)
}
