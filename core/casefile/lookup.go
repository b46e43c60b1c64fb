package casefile

// Typed access to case elements. Getters return *LookupError wrapping one of
// the package sentinels, so callers can distinguish an unknown element from a
// missing attribute and a missing initial condition. Elements are resolved
// through key maps built once per case, so a batch of lookups never rescans
// the raw collections.

type constraintRow struct {
	id           string
	intervention string
}

type caseIndex struct {
	traders         map[string]*Trader
	traderPeriods   map[string]*TraderPeriod
	regions         map[string]*Region
	regionPeriods   map[string]*RegionPeriod
	interconnectors map[string]*Interconnector
	icPeriods       map[string]*InterconnectorPeriod
	constraints     map[string]*GenericConstraint
	constraintRHS   map[constraintRow]*ConstraintSolutionRow
}

func (c *CaseFile) index() *caseIndex {
	c.indexOnce.Do(func() {
		idx := &c.idx
		idx.traders = make(map[string]*Trader, len(c.Inputs.Traders.Trader))
		for i := range c.Inputs.Traders.Trader {
			t := &c.Inputs.Traders.Trader[i]
			idx.traders[t.TraderID] = t
		}
		period := &c.Inputs.Period.Period
		idx.traderPeriods = make(map[string]*TraderPeriod, len(period.Traders.TraderPeriod))
		for i := range period.Traders.TraderPeriod {
			tp := &period.Traders.TraderPeriod[i]
			idx.traderPeriods[tp.TraderID] = tp
		}
		idx.regions = make(map[string]*Region, len(c.Inputs.Regions.Region))
		for i := range c.Inputs.Regions.Region {
			r := &c.Inputs.Regions.Region[i]
			idx.regions[r.RegionID] = r
		}
		idx.regionPeriods = make(map[string]*RegionPeriod, len(period.Regions.RegionPeriod))
		for i := range period.Regions.RegionPeriod {
			rp := &period.Regions.RegionPeriod[i]
			idx.regionPeriods[rp.RegionID] = rp
		}
		idx.interconnectors = make(map[string]*Interconnector, len(c.Inputs.Interconnectors.Interconnector))
		for i := range c.Inputs.Interconnectors.Interconnector {
			ic := &c.Inputs.Interconnectors.Interconnector[i]
			idx.interconnectors[ic.InterconnectorID] = ic
		}
		idx.icPeriods = make(map[string]*InterconnectorPeriod, len(period.Interconnectors.InterconnectorPeriod))
		for i := range period.Interconnectors.InterconnectorPeriod {
			ip := &period.Interconnectors.InterconnectorPeriod[i]
			idx.icPeriods[ip.InterconnectorID] = ip
		}
		idx.constraints = make(map[string]*GenericConstraint, len(c.Inputs.Constraints.GenericConstraint))
		for i := range c.Inputs.Constraints.GenericConstraint {
			gc := &c.Inputs.Constraints.GenericConstraint[i]
			idx.constraints[gc.ConstraintID] = gc
		}
		idx.constraintRHS = make(map[constraintRow]*ConstraintSolutionRow, len(c.Outputs.ConstraintSolution))
		for i := range c.Outputs.ConstraintSolution {
			row := &c.Outputs.ConstraintSolution[i]
			idx.constraintRHS[constraintRow{row.ConstraintID, row.Intervention}] = row
		}
	})
	return &c.idx
}

// RunMode selects which run of an intervened case is modelled.
type RunMode string

const (
	// RunModeTarget models the physical run: the targets actually sent to
	// plant, including any intervention constraints.
	RunModeTarget RunMode = "target"
	// RunModePricing models the pricing run: intervention effects are
	// excluded when computing prices.
	RunModePricing RunMode = "pricing"
)

// Intervention returns the intervention flag ("0" or "1") to use when
// selecting observed solution rows and initial MW values for the given run
// mode.
func (c *CaseFile) Intervention(mode RunMode) (string, error) {
	flag := c.Inputs.Case.Intervention
	switch {
	case flag == "False":
		return "0", nil
	case flag == "True" && mode == RunModeTarget:
		return "1", nil
	case flag == "True" && mode == RunModePricing:
		return "0", nil
	default:
		return "", &LookupError{Kind: "case", ID: c.Inputs.Case.CaseID, Attribute: string(mode), err: ErrRunMode}
	}
}

// Trader returns the trader definition for the given ID.
func (c *CaseFile) Trader(id string) (*Trader, error) {
	if t, ok := c.index().traders[id]; ok {
		return t, nil
	}
	return nil, newElementError("trader", id)
}

// TraderPeriod returns the interval record for the given trader.
func (c *CaseFile) TraderPeriod(id string) (*TraderPeriod, error) {
	if tp, ok := c.index().traderPeriods[id]; ok {
		return tp, nil
	}
	return nil, newElementError("trader period", id)
}

// Trade returns the offer of the given trade type for a trader.
func (c *CaseFile) Trade(traderID, tradeType string) (*Trade, error) {
	period, err := c.TraderPeriod(traderID)
	if err != nil {
		return nil, err
	}
	for i := range period.Trades.Trade {
		if period.Trades.Trade[i].TradeType == tradeType {
			return &period.Trades.Trade[i], nil
		}
	}
	return nil, newElementError("trade", traderID+"/"+tradeType)
}

// InitialCondition resolves a named initial condition on a trader.
func (t *Trader) InitialCondition(id string) (float64, error) {
	for _, ic := range t.InitialConditions.Items {
		if ic.InitialConditionID == id {
			if ic.Value == nil {
				return 0, newLookupError("trader", t.TraderID, id)
			}
			return float64(*ic.Value), nil
		}
	}
	return 0, newInitialConditionError("trader", t.TraderID, id)
}

// PriceBands returns the price bands for one of the trader's trade types.
func (t *Trader) PriceBands(tradeType string) ([10]float64, error) {
	for _, ps := range t.PriceStructure.Structure.TradeTypes.Items {
		if ps.TradeType == tradeType {
			return ps.PriceBands()
		}
	}
	var zero [10]float64
	return zero, newElementError("trade price structure", t.TraderID+"/"+tradeType)
}

// Region returns the region definition for the given ID.
func (c *CaseFile) Region(id string) (*Region, error) {
	if r, ok := c.index().regions[id]; ok {
		return r, nil
	}
	return nil, newElementError("region", id)
}

// InitialCondition resolves a named initial condition on a region.
func (r *Region) InitialCondition(id string) (float64, error) {
	for _, ic := range r.InitialConditions.Items {
		if ic.InitialConditionID == id {
			if ic.Value == nil {
				return 0, newLookupError("region", r.RegionID, id)
			}
			return float64(*ic.Value), nil
		}
	}
	return 0, newInitialConditionError("region", r.RegionID, id)
}

// RegionPeriod returns the interval record for the given region.
func (c *CaseFile) RegionPeriod(id string) (*RegionPeriod, error) {
	if rp, ok := c.index().regionPeriods[id]; ok {
		return rp, nil
	}
	return nil, newElementError("region period", id)
}

// Interconnector returns the interconnector definition for the given ID.
func (c *CaseFile) Interconnector(id string) (*Interconnector, error) {
	if ic, ok := c.index().interconnectors[id]; ok {
		return ic, nil
	}
	return nil, newElementError("interconnector", id)
}

// InterconnectorPeriod returns the interval record for an interconnector.
func (c *CaseFile) InterconnectorPeriod(id string) (*InterconnectorPeriod, error) {
	if ip, ok := c.index().icPeriods[id]; ok {
		return ip, nil
	}
	return nil, newElementError("interconnector period", id)
}

// InitialCondition resolves a named initial condition on an interconnector.
func (ic *Interconnector) InitialCondition(id string) (float64, error) {
	for _, item := range ic.InitialConditions.Items {
		if item.InitialConditionID == id {
			if item.Value == nil {
				return 0, newLookupError("interconnector", ic.InterconnectorID, id)
			}
			return float64(*item.Value), nil
		}
	}
	return 0, newInitialConditionError("interconnector", ic.InterconnectorID, id)
}

// MNSPPriceBands returns the MNSP price bands for the given region end.
func (ic *Interconnector) MNSPPriceBands(regionID string) ([10]float64, error) {
	var zero [10]float64
	if ic.MNSPPrices == nil {
		return zero, newElementError("mnsp price structure", ic.InterconnectorID)
	}
	for _, ps := range ic.MNSPPrices.Structure.Regions.Items {
		if ps.RegionID == regionID {
			return ps.PriceBands()
		}
	}
	return zero, newElementError("mnsp price structure", ic.InterconnectorID+"/"+regionID)
}

// GenericConstraint returns the constraint definition for the given ID.
func (c *CaseFile) GenericConstraint(id string) (*GenericConstraint, error) {
	if gc, ok := c.index().constraints[id]; ok {
		return gc, nil
	}
	return nil, newElementError("generic constraint", id)
}

// ConstraintRHS returns the observed RHS for a constraint under the given
// intervention flag.
func (c *CaseFile) ConstraintRHS(id, intervention string) (float64, error) {
	row, ok := c.index().constraintRHS[constraintRow{id, intervention}]
	if !ok {
		return 0, newElementError("constraint solution", id)
	}
	if row.RHS == nil {
		return 0, newLookupError("constraint solution", id, "@RHS")
	}
	return float64(*row.RHS), nil
}

// ObservedTrader returns the observed trader solution row, if present.
func (c *CaseFile) ObservedTrader(id, intervention string) (*TraderSolutionRow, bool) {
	for i := range c.Outputs.TraderSolution {
		row := &c.Outputs.TraderSolution[i]
		if row.TraderID == id && row.Intervention == intervention {
			return row, true
		}
	}
	return nil, false
}

// ObservedRegion returns the observed region solution row, if present.
func (c *CaseFile) ObservedRegion(id, intervention string) (*RegionSolutionRow, bool) {
	for i := range c.Outputs.RegionSolution {
		row := &c.Outputs.RegionSolution[i]
		if row.RegionID == id && row.Intervention == intervention {
			return row, true
		}
	}
	return nil, false
}

// ObservedInterconnector returns the observed interconnector solution row.
func (c *CaseFile) ObservedInterconnector(id, intervention string) (*InterconnectorSolutionRow, bool) {
	for i := range c.Outputs.InterconnectorSolution {
		row := &c.Outputs.InterconnectorSolution[i]
		if row.InterconnectorID == id && row.Intervention == intervention {
			return row, true
		}
	}
	return nil, false
}

// ObservedObjective returns the observed total objective, if present.
func (c *CaseFile) ObservedObjective(intervention string) (float64, bool) {
	for _, row := range c.Outputs.PeriodSolution {
		if row.Intervention == intervention && row.TotalObjective != nil {
			return float64(*row.TotalObjective), true
		}
	}
	return 0, false
}

// TraderEffectiveInitialMW returns the initial MW snapshot for the selected
// run. The pricing run of an intervened case replaces InitialMW with the
// counterfactual WhatIfInitialMW published alongside it.
func (c *CaseFile) TraderEffectiveInitialMW(id, intervention string) (float64, error) {
	t, err := c.Trader(id)
	if err != nil {
		return 0, err
	}
	if c.Inputs.Case.Intervention == "True" && intervention == "0" {
		return t.InitialCondition("WhatIfInitialMW")
	}
	return t.InitialCondition("InitialMW")
}

// InterconnectorEffectiveInitialMW returns the initial flow snapshot for the
// selected run, following the same intervention rule as traders.
func (c *CaseFile) InterconnectorEffectiveInitialMW(id, intervention string) (float64, error) {
	ic, err := c.Interconnector(id)
	if err != nil {
		return 0, err
	}
	if c.Inputs.Case.Intervention == "True" && intervention == "0" {
		return ic.InitialCondition("WhatIfInitialMW")
	}
	return ic.InitialCondition("InitialMW")
}

// Required unwraps an attribute pointer or reports a lookup error naming the
// element and attribute.
func Required(p *Attr, kind, id, name string) (float64, error) {
	if p == nil {
		return 0, newLookupError(kind, id, name)
	}
	return float64(*p), nil
}

// Optional unwraps an attribute pointer, reporting presence.
func Optional(p *Attr) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}
