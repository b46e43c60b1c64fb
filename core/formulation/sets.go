package formulation

import (
	"github.com/kilianp07/nemspd/core/casefile"
)

// Sets holds the model index sets. Slices follow case document order so two
// builds of the same case produce identical models.
type Sets struct {
	Regions         []string
	Traders         []string
	Offers          []OfferID
	FastStart       []string
	Interconnectors []string
	MNSPs           []string
	MNSPOffers      []MNSPOfferID
	Constraints     []string

	// Variable index sets for generic constraints: the distinct trader
	// offers, interconnectors and region aggregates referenced by any
	// active constraint LHS.
	GCTraderVars         []OfferID
	GCInterconnectorVars []string
	GCRegionVars         []RegionOfferID
}

// HasOffer reports whether the given offer was submitted for the interval.
func (s *Sets) HasOffer(id OfferID) bool {
	for _, o := range s.Offers {
		if o == id {
			return true
		}
	}
	return false
}

// BuildSets derives the model index sets from a case file. Generic
// constraints listed for the period but lacking a definition with LHS terms
// are dropped.
func BuildSets(cf *casefile.CaseFile) (*Sets, error) {
	s := &Sets{}
	period := &cf.Inputs.Period.Period

	for _, rp := range period.Regions.RegionPeriod {
		s.Regions = append(s.Regions, rp.RegionID)
	}

	for _, tp := range period.Traders.TraderPeriod {
		s.Traders = append(s.Traders, tp.TraderID)
		for _, trade := range tp.Trades.Trade {
			s.Offers = append(s.Offers, OfferID{TraderID: tp.TraderID, TradeType: trade.TradeType})
		}
	}

	// Fast start commitment applies to traders flagged in the static
	// collection that also trade this interval.
	for _, tr := range cf.Inputs.Traders.Trader {
		if tr.FastStart != "1" {
			continue
		}
		for _, id := range s.Traders {
			if id == tr.TraderID {
				s.FastStart = append(s.FastStart, tr.TraderID)
				break
			}
		}
	}

	for _, ip := range period.Interconnectors.InterconnectorPeriod {
		s.Interconnectors = append(s.Interconnectors, ip.InterconnectorID)
		if ip.MNSP != "1" {
			continue
		}
		s.MNSPs = append(s.MNSPs, ip.InterconnectorID)
		if ip.MNSPOffers != nil {
			for _, offer := range ip.MNSPOffers.MNSPOffer {
				s.MNSPOffers = append(s.MNSPOffers, MNSPOfferID{
					InterconnectorID: ip.InterconnectorID,
					RegionID:         offer.RegionID,
				})
			}
		}
	}

	seenTrader := make(map[OfferID]bool)
	seenIC := make(map[string]bool)
	seenRegion := make(map[RegionOfferID]bool)
	for _, gcp := range period.GenericConstraints.GenericConstraintPeriod {
		gc, err := cf.GenericConstraint(gcp.ConstraintID)
		if err != nil {
			return nil, err
		}
		factors := gc.LHSFactors
		if len(factors.TraderFactors) == 0 && len(factors.InterconnectorFactors) == 0 && len(factors.RegionFactors) == 0 {
			continue
		}
		s.Constraints = append(s.Constraints, gcp.ConstraintID)
		for _, f := range factors.TraderFactors {
			id := OfferID{TraderID: f.TraderID, TradeType: f.TradeType}
			if !seenTrader[id] {
				seenTrader[id] = true
				s.GCTraderVars = append(s.GCTraderVars, id)
			}
		}
		for _, f := range factors.InterconnectorFactors {
			if !seenIC[f.InterconnectorID] {
				seenIC[f.InterconnectorID] = true
				s.GCInterconnectorVars = append(s.GCInterconnectorVars, f.InterconnectorID)
			}
		}
		for _, f := range factors.RegionFactors {
			id := RegionOfferID{RegionID: f.RegionID, TradeType: f.TradeType}
			if !seenRegion[id] {
				seenRegion[id] = true
				s.GCRegionVars = append(s.GCRegionVars, id)
			}
		}
	}

	return s, nil
}
