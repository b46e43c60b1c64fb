package formulation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/nemspd/core/casefile"
)

// TraderParams carries the per-trader inputs for one interval. InitialMW is
// the effective snapshot for the selected run mode. Pointer fields are nil
// when the underlying telemetry or attribute is absent.
type TraderParams struct {
	ID           string
	Type         string
	RegionID     string
	SemiDispatch bool
	InitialMW    float64

	UIGF        *float64
	HMW         *float64
	LMW         *float64
	AGCStatus   *float64
	SCADARampUp *float64
	SCADARampDn *float64

	// Effective energy ramp rates: the offer rate capped by a positive
	// SCADA telemetry rate when one is present.
	EffRampUp *float64
	EffRampDn *float64

	EnergyOffer    string
	HasEnergyOffer bool

	FastStart       bool
	MinLoading      float64
	T1, T2, T3, T4  float64
	CurrentMode     *int
	CurrentModeTime *float64
}

// OfferParams carries one trade offer: its bands, availability ceiling and,
// for FCAS services, the raw and scaled trapezium and availability status.
type OfferParams struct {
	ID            OfferID
	PriceBands    [10]float64
	QuantityBands [10]float64
	MaxAvail      float64

	RampUp *float64
	RampDn *float64

	Trapezium *Trapezium
	Scaled    *Trapezium
	Available bool
}

// RegionParams carries the demand composition for one region. FixedDemand is
// the non-dispatchable part of demand the model must meet.
type RegionParams struct {
	ID                   string
	DF                   float64
	ADE                  float64
	InitialDemand        float64
	InitialScheduledLoad float64
	InitialAllocatedLoss float64
	InitialMNSPLoss      float64
	FixedDemand          float64
}

// InterconnectorParams carries flow limits and the linearised loss model for
// one interconnector. The MNSP loss factors are bound for market
// interconnectors only.
type InterconnectorParams struct {
	ID         string
	FromRegion string
	ToRegion   string
	MNSP       bool
	LowerLimit float64
	UpperLimit float64
	InitialMW  float64

	LossShare   float64
	Segments    []LossSegment
	BreakX      []float64
	BreakY      []float64
	InitialLoss float64

	FromLFExport float64
	FromLFImport float64
	ToLFExport   float64
	ToLFImport   float64

	// Loss indicators mark the sending end: 1 on the from side when the
	// initial flow is forward, 1 on the to side when it is reverse.
	FromRegionLossIndicator float64
	ToRegionLossIndicator   float64
}

// MNSPOfferParams carries the offer a market interconnector makes at one
// region end.
type MNSPOfferParams struct {
	ID            MNSPOfferID
	PriceBands    [10]float64
	QuantityBands [10]float64
	MaxAvail      float64
	RampUp        float64
	RampDn        float64
}

// TraderTerm, InterconnectorTerm and RegionTerm are generic constraint LHS
// factors.
type TraderTerm struct {
	Offer  OfferID
	Factor float64
}

type InterconnectorTerm struct {
	InterconnectorID string
	Factor           float64
}

type RegionTerm struct {
	Region RegionOfferID
	Factor float64
}

// ConstraintParams is one active generic constraint with its observed RHS.
type ConstraintParams struct {
	ID                  string
	Type                string
	ViolationPrice      float64
	RHS                 float64
	TraderTerms         []TraderTerm
	InterconnectorTerms []InterconnectorTerm
	RegionTerms         []RegionTerm
}

// ViolationPrices carries the case-level constraint violation prices used to
// weight soft-constraint slacks in the objective.
type ViolationPrices struct {
	VoLL            float64
	TieBreak        float64
	Offer           float64
	Capacity        float64
	RampRate        float64
	UIGFSurplus     float64
	ASProfile       float64
	ASMaxAvail      float64
	ASEnablementMin float64
	ASEnablementMax float64
	EnergyDeficit   float64
	EnergySurplus   float64
	Interconnector  float64
	MNSPOffer       float64
	MNSPRampRate    float64
	MNSPCapacity    float64
	MNSPLosses      float64
	FastStart       float64
	Generic         float64
	Satisfactory    float64
}

// Params is the fully bound parameter set for one model build.
type Params struct {
	CaseID       string
	Intervention string
	Prices       ViolationPrices

	Traders         map[string]*TraderParams
	Offers          map[OfferID]*OfferParams
	Regions         map[string]*RegionParams
	Interconnectors map[string]*InterconnectorParams
	MNSPOffers      map[MNSPOfferID]*MNSPOfferParams
	Constraints     map[string]*ConstraintParams

	PriceTiedGenerators []TiedPair
	PriceTiedLoads      []TiedPair
}

// ErrConstraintType marks a generic constraint whose relation is not one of
// LE, GE or EQ.
var ErrConstraintType = errors.New("unhandled constraint type")

// ErrFastStartMode marks a fast start commitment mode outside 0 through 4.
var ErrFastStartMode = errors.New("unhandled fast start mode")

// optionalValue converts an initial condition lookup into a pointer: absent
// entries and absent values read as nil, other failures propagate.
func optionalValue(v float64, err error) (*float64, error) {
	if err != nil {
		if errors.Is(err, casefile.ErrInitialConditionNotFound) || errors.Is(err, casefile.ErrAttributeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// BindParams resolves every model parameter from the case file for the given
// run mode. Required attributes that are absent surface as lookup errors;
// optional telemetry reads as nil and the dependent transform is skipped.
func BindParams(cf *casefile.CaseFile, sets *Sets, mode casefile.RunMode) (*Params, error) {
	intervention, err := cf.Intervention(mode)
	if err != nil {
		return nil, err
	}

	p := &Params{
		CaseID:          cf.Inputs.Case.CaseID,
		Intervention:    intervention,
		Traders:         make(map[string]*TraderParams, len(sets.Traders)),
		Offers:          make(map[OfferID]*OfferParams, len(sets.Offers)),
		Regions:         make(map[string]*RegionParams, len(sets.Regions)),
		Interconnectors: make(map[string]*InterconnectorParams, len(sets.Interconnectors)),
		MNSPOffers:      make(map[MNSPOfferID]*MNSPOfferParams, len(sets.MNSPOffers)),
		Constraints:     make(map[string]*ConstraintParams, len(sets.Constraints)),
	}

	if err := bindViolationPrices(cf, &p.Prices); err != nil {
		return nil, err
	}
	if err := bindTraders(cf, sets, intervention, p); err != nil {
		return nil, err
	}
	if err := bindInterconnectors(cf, sets, intervention, p); err != nil {
		return nil, err
	}
	if err := bindRegions(cf, sets, p); err != nil {
		return nil, err
	}
	if err := bindConstraints(cf, sets, intervention, p); err != nil {
		return nil, err
	}

	p.PriceTiedGenerators = priceTiedPairs(sets, p, EnergyGeneration)
	p.PriceTiedLoads = priceTiedPairs(sets, p, EnergyLoad)
	return p, nil
}

func bindViolationPrices(cf *casefile.CaseFile, out *ViolationPrices) error {
	c := &cf.Inputs.Case
	fields := []struct {
		dst  *float64
		src  *casefile.Attr
		name string
	}{
		{&out.VoLL, c.VoLL, "VoLL"},
		{&out.TieBreak, c.TieBreakPrice, "TieBreakPrice"},
		{&out.Offer, c.OfferPrice, "OfferPrice"},
		{&out.Capacity, c.CapacityPrice, "CapacityPrice"},
		{&out.RampRate, c.RampRatePrice, "RampRatePrice"},
		{&out.UIGFSurplus, c.UIGFSurplusPrice, "UIGFSurplusPrice"},
		{&out.ASProfile, c.ASProfilePrice, "ASProfilePrice"},
		{&out.ASMaxAvail, c.ASMaxAvailPrice, "ASMaxAvailPrice"},
		{&out.ASEnablementMin, c.ASEnablementMinPrice, "ASEnablementMinPrice"},
		{&out.ASEnablementMax, c.ASEnablementMaxPrice, "ASEnablementMaxPrice"},
		{&out.EnergyDeficit, c.EnergyDeficitPrice, "EnergyDeficitPrice"},
		{&out.EnergySurplus, c.EnergySurplusPrice, "EnergySurplusPrice"},
		{&out.Interconnector, c.InterconnectorPrice, "InterconnectorPrice"},
		{&out.MNSPOffer, c.MNSPOfferPrice, "MNSPOfferPrice"},
		{&out.MNSPRampRate, c.MNSPRampRatePrice, "MNSPRampRatePrice"},
		{&out.MNSPCapacity, c.MNSPCapacityPrice, "MNSPCapacityPrice"},
		{&out.MNSPLosses, c.MNSPLossesPrice, "MNSPLossesPrice"},
		{&out.FastStart, c.FastStartPrice, "FastStartPrice"},
		{&out.Generic, c.GenericConstraintPrice, "GenericConstraintPrice"},
		{&out.Satisfactory, c.SatisfactoryPrice, "Satisfactory_Network_Price"},
	}
	for _, f := range fields {
		v, err := casefile.Required(f.src, "case", c.CaseID, f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func bindTraders(cf *casefile.CaseFile, sets *Sets, intervention string, p *Params) error {
	for _, traderID := range sets.Traders {
		trader, err := cf.Trader(traderID)
		if err != nil {
			return err
		}
		period, err := cf.TraderPeriod(traderID)
		if err != nil {
			return err
		}
		initialMW, err := cf.TraderEffectiveInitialMW(traderID, intervention)
		if err != nil {
			return err
		}

		tp := &TraderParams{
			ID:           traderID,
			Type:         trader.TraderType,
			RegionID:     period.RegionID,
			SemiDispatch: trader.SemiDispatch == "1",
			InitialMW:    initialMW,
			FastStart:    trader.FastStart == "1",
		}
		if v, ok := casefile.Optional(period.UIGF); ok {
			tp.UIGF = &v
		}

		conditions := []struct {
			dst  **float64
			name string
		}{
			{&tp.HMW, "HMW"},
			{&tp.LMW, "LMW"},
			{&tp.AGCStatus, "AGCStatus"},
			{&tp.SCADARampUp, "SCADARampUpRate"},
			{&tp.SCADARampDn, "SCADARampDnRate"},
		}
		for _, c := range conditions {
			v, err := optionalValue(trader.InitialCondition(c.name))
			if err != nil {
				return err
			}
			*c.dst = v
		}

		if tp.FastStart {
			if err := bindFastStart(trader, tp); err != nil {
				return err
			}
		}

		tp.EnergyOffer, err = EnergyOfferType(trader.TraderType)
		if err != nil {
			return fmt.Errorf("trader %s: %w", traderID, err)
		}

		for i := range period.Trades.Trade {
			offer, err := bindOffer(trader, &period.Trades.Trade[i])
			if err != nil {
				return err
			}
			p.Offers[offer.ID] = offer
			if offer.ID.TradeType == tp.EnergyOffer {
				tp.HasEnergyOffer = true
				tp.EffRampUp = effectiveRamp(offer.RampUp, tp.SCADARampUp)
				tp.EffRampDn = effectiveRamp(offer.RampDn, tp.SCADARampDn)
			}
		}
		p.Traders[traderID] = tp
	}

	// FCAS scaling and availability need the energy offer ceiling, so they
	// run after every offer is bound.
	for _, id := range sets.Offers {
		if !IsFCAS(id.TradeType) {
			continue
		}
		offer := p.Offers[id]
		trader := p.Traders[id.TraderID]
		fcas := FCASOffer{
			TradeType:     id.TradeType,
			TraderType:    trader.Type,
			SemiDispatch:  trader.SemiDispatch,
			Trapezium:     *offer.Trapezium,
			QuantityBands: offer.QuantityBands,
			InitialMW:     trader.InitialMW,
			UIGF:          trader.UIGF,
			HMW:           trader.HMW,
			LMW:           trader.LMW,
			AGCStatus:     trader.AGCStatus,
			AGCRampUp:     trader.SCADARampUp,
			AGCRampDn:     trader.SCADARampDn,
		}
		if energy, ok := p.Offers[OfferID{TraderID: id.TraderID, TradeType: trader.EnergyOffer}]; ok {
			fcas.EnergyMaxAvail = &energy.MaxAvail
		}
		scaled := ScaledTrapezium(fcas)
		offer.Scaled = &scaled
		offer.Available = Available(fcas)
	}
	return nil
}

func bindFastStart(trader *casefile.Trader, tp *TraderParams) error {
	required := []struct {
		dst  *float64
		src  *casefile.Attr
		name string
	}{
		{&tp.MinLoading, trader.MinLoadingMW, "MinLoadingMW"},
		{&tp.T1, trader.T1, "T1"},
		{&tp.T2, trader.T2, "T2"},
		{&tp.T3, trader.T3, "T3"},
		{&tp.T4, trader.T4, "T4"},
	}
	for _, f := range required {
		v, err := casefile.Required(f.src, "trader", trader.TraderID, f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	if v, ok := casefile.Optional(trader.CurrentMode); ok {
		mode := int(v)
		if mode < 0 || mode > 4 {
			return fmt.Errorf("trader %s: mode %d: %w", trader.TraderID, mode, ErrFastStartMode)
		}
		tp.CurrentMode = &mode
	}
	if v, ok := casefile.Optional(trader.CurrentModeTime); ok {
		tp.CurrentModeTime = &v
	}
	return nil
}

func bindOffer(trader *casefile.Trader, trade *casefile.Trade) (*OfferParams, error) {
	id := OfferID{TraderID: trader.TraderID, TradeType: trade.TradeType}
	prices, err := trader.PriceBands(trade.TradeType)
	if err != nil {
		return nil, err
	}
	quantities, err := trade.BandAvails()
	if err != nil {
		return nil, err
	}
	maxAvail, err := casefile.Required(trade.MaxAvail, "trade", trader.TraderID+"/"+trade.TradeType, "MaxAvail")
	if err != nil {
		return nil, err
	}

	offer := &OfferParams{
		ID:            id,
		PriceBands:    prices,
		QuantityBands: quantities,
		MaxAvail:      maxAvail,
	}

	if IsEnergy(trade.TradeType) {
		up, err := casefile.Required(trade.RampUpRate, "trade", trader.TraderID+"/"+trade.TradeType, "RampUpRate")
		if err != nil {
			return nil, err
		}
		dn, err := casefile.Required(trade.RampDnRate, "trade", trader.TraderID+"/"+trade.TradeType, "RampDnRate")
		if err != nil {
			return nil, err
		}
		offer.RampUp = &up
		offer.RampDn = &dn
		return offer, nil
	}

	t := Trapezium{MaxAvail: maxAvail}
	envelope := []struct {
		dst  *float64
		src  *casefile.Attr
		name string
	}{
		{&t.EnablementMin, trade.EnablementMin, "EnablementMin"},
		{&t.LowBreakpoint, trade.LowBreakpoint, "LowBreakpoint"},
		{&t.HighBreakpoint, trade.HighBreakpoint, "HighBreakpoint"},
		{&t.EnablementMax, trade.EnablementMax, "EnablementMax"},
	}
	for _, f := range envelope {
		v, err := casefile.Required(f.src, "trade", trader.TraderID+"/"+trade.TradeType, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	offer.Trapezium = &t
	return offer, nil
}

// effectiveRamp caps the offer ramp rate by a positive SCADA rate.
func effectiveRamp(offer, scada *float64) *float64 {
	if offer == nil {
		return nil
	}
	rate := *offer
	if scada != nil && *scada > 0 && *scada < rate {
		rate = *scada
	}
	return &rate
}

func bindInterconnectors(cf *casefile.CaseFile, sets *Sets, intervention string, p *Params) error {
	for _, icID := range sets.Interconnectors {
		ic, err := cf.Interconnector(icID)
		if err != nil {
			return err
		}
		period, err := cf.InterconnectorPeriod(icID)
		if err != nil {
			return err
		}
		initialMW, err := cf.InterconnectorEffectiveInitialMW(icID, intervention)
		if err != nil {
			return err
		}

		ip := &InterconnectorParams{
			ID:         icID,
			FromRegion: period.FromRegion,
			ToRegion:   period.ToRegion,
			MNSP:       period.MNSP == "1",
			InitialMW:  initialMW,
		}
		if ip.LowerLimit, err = casefile.Required(period.LowerLimit, "interconnector period", icID, "LowerLimit"); err != nil {
			return err
		}
		if ip.UpperLimit, err = casefile.Required(period.UpperLimit, "interconnector period", icID, "UpperLimit"); err != nil {
			return err
		}

		loss := ic.Loss()
		lowerLimit, err := casefile.Required(loss.LossLowerLimit, "loss model", icID, "LossLowerLimit")
		if err != nil {
			return err
		}
		if ip.LossShare, err = casefile.Required(loss.LossShare, "loss model", icID, "LossShare"); err != nil {
			return err
		}
		raw, err := loss.SegmentList(icID)
		if err != nil {
			return err
		}
		ip.Segments = ParseLossSegments(raw, lowerLimit)
		ip.BreakX = BreakpointsX(raw, lowerLimit)
		ip.BreakY = BreakpointsY(ip.Segments, ip.BreakX)
		ip.InitialLoss = IntegrateLoss(ip.Segments, initialMW)

		if ip.MNSP {
			if initialMW >= 0 {
				ip.FromRegionLossIndicator = 1
			} else {
				ip.ToRegionLossIndicator = 1
			}
			factors := []struct {
				dst  *float64
				src  *casefile.Attr
				name string
			}{
				{&ip.FromLFExport, period.FromRegionLFExport, "FromRegionLFExport"},
				{&ip.FromLFImport, period.FromRegionLFImport, "FromRegionLFImport"},
				{&ip.ToLFExport, period.ToRegionLFExport, "ToRegionLFExport"},
				{&ip.ToLFImport, period.ToRegionLFImport, "ToRegionLFImport"},
			}
			for _, f := range factors {
				v, err := casefile.Required(f.src, "interconnector period", icID, f.name)
				if err != nil {
					return err
				}
				*f.dst = v
			}
			if err := bindMNSPOffers(ic, period, p); err != nil {
				return err
			}
		}
		p.Interconnectors[icID] = ip
	}
	return nil
}

func bindMNSPOffers(ic *casefile.Interconnector, period *casefile.InterconnectorPeriod, p *Params) error {
	if period.MNSPOffers == nil {
		return nil
	}
	for i := range period.MNSPOffers.MNSPOffer {
		offer := &period.MNSPOffers.MNSPOffer[i]
		id := MNSPOfferID{InterconnectorID: ic.InterconnectorID, RegionID: offer.RegionID}
		prices, err := ic.MNSPPriceBands(offer.RegionID)
		if err != nil {
			return err
		}
		quantities, err := offer.BandAvails()
		if err != nil {
			return err
		}
		mp := &MNSPOfferParams{ID: id, PriceBands: prices, QuantityBands: quantities}
		required := []struct {
			dst  *float64
			src  *casefile.Attr
			name string
		}{
			{&mp.MaxAvail, offer.MaxAvail, "MaxAvail"},
			{&mp.RampUp, offer.RampUpRate, "RampUpRate"},
			{&mp.RampDn, offer.RampDnRate, "RampDnRate"},
		}
		for _, f := range required {
			v, err := casefile.Required(f.src, "mnsp offer", ic.InterconnectorID+"/"+offer.RegionID, f.name)
			if err != nil {
				return err
			}
			*f.dst = v
		}
		p.MNSPOffers[id] = mp
	}
	return nil
}

func bindRegions(cf *casefile.CaseFile, sets *Sets, p *Params) error {
	for _, regionID := range sets.Regions {
		region, err := cf.Region(regionID)
		if err != nil {
			return err
		}
		period, err := cf.RegionPeriod(regionID)
		if err != nil {
			return err
		}

		rp := &RegionParams{ID: regionID}
		if rp.DF, err = casefile.Required(period.DF, "region period", regionID, "DF"); err != nil {
			return err
		}
		if rp.ADE, err = region.InitialCondition("ADE"); err != nil {
			return err
		}
		if rp.InitialDemand, err = region.InitialCondition("InitialDemand"); err != nil {
			return err
		}

		for _, id := range sets.Offers {
			if id.TradeType != EnergyLoad {
				continue
			}
			trader := p.Traders[id.TraderID]
			if trader.RegionID == regionID && !trader.SemiDispatch {
				rp.InitialScheduledLoad += trader.InitialMW
			}
		}

		for _, icID := range sets.Interconnectors {
			ic := p.Interconnectors[icID]
			rp.InitialAllocatedLoss += initialAllocatedLoss(ic, regionID)
			rp.InitialMNSPLoss += initialMNSPLoss(ic, regionID)
		}

		rp.FixedDemand = rp.InitialDemand + rp.ADE + rp.DF -
			rp.InitialScheduledLoad - rp.InitialAllocatedLoss - rp.InitialMNSPLoss
		p.Regions[regionID] = rp
	}
	return nil
}

// initialAllocatedLoss apportions an interconnector's initial loss estimate
// to a region. Regulated links split by loss share; an MNSP assigns the
// whole loss to its sending end.
func initialAllocatedLoss(ic *InterconnectorParams, regionID string) float64 {
	if regionID != ic.FromRegion && regionID != ic.ToRegion {
		return 0
	}
	if ic.MNSP {
		sendingFrom := ic.InitialMW >= 0 && regionID == ic.FromRegion
		sendingTo := ic.InitialMW < 0 && regionID == ic.ToRegion
		if sendingFrom || sendingTo {
			return ic.InitialLoss
		}
		return 0
	}
	if regionID == ic.FromRegion {
		return ic.InitialLoss * ic.LossShare
	}
	return ic.InitialLoss * (1 - ic.LossShare)
}

// initialMNSPLoss estimates the loss-factor component of an MNSP's initial
// flow as seen from a region's connection point.
func initialMNSPLoss(ic *InterconnectorParams, regionID string) float64 {
	if !ic.MNSP {
		return 0
	}
	switch {
	case regionID == ic.FromRegion && ic.InitialMW >= 0:
		export := ic.InitialMW + ic.InitialLoss
		return (ic.FromLFExport - 1) * export
	case regionID == ic.FromRegion:
		return (ic.FromLFImport - 1) * ic.InitialMW
	case regionID == ic.ToRegion && ic.InitialMW >= 0:
		return -(ic.ToLFImport - 1) * ic.InitialMW
	case regionID == ic.ToRegion:
		export := ic.InitialMW - ic.InitialLoss
		return -(ic.ToLFExport - 1) * export
	default:
		return 0
	}
}

func bindConstraints(cf *casefile.CaseFile, sets *Sets, intervention string, p *Params) error {
	for _, constraintID := range sets.Constraints {
		gc, err := cf.GenericConstraint(constraintID)
		if err != nil {
			return err
		}
		switch gc.Type {
		case "LE", "GE", "EQ":
		default:
			return fmt.Errorf("constraint %s: type %q: %w", constraintID, gc.Type, ErrConstraintType)
		}

		cp := &ConstraintParams{ID: constraintID, Type: gc.Type}
		if cp.ViolationPrice, err = casefile.Required(gc.ViolationPrice, "generic constraint", constraintID, "ViolationPrice"); err != nil {
			return err
		}
		if cp.RHS, err = cf.ConstraintRHS(constraintID, intervention); err != nil {
			return err
		}
		for _, f := range gc.LHSFactors.TraderFactors {
			factor, err := casefile.Required(f.Factor, "trader factor", constraintID+"/"+f.TraderID, "Factor")
			if err != nil {
				return err
			}
			cp.TraderTerms = append(cp.TraderTerms, TraderTerm{
				Offer:  OfferID{TraderID: f.TraderID, TradeType: f.TradeType},
				Factor: factor,
			})
		}
		for _, f := range gc.LHSFactors.InterconnectorFactors {
			factor, err := casefile.Required(f.Factor, "interconnector factor", constraintID+"/"+f.InterconnectorID, "Factor")
			if err != nil {
				return err
			}
			cp.InterconnectorTerms = append(cp.InterconnectorTerms, InterconnectorTerm{
				InterconnectorID: f.InterconnectorID,
				Factor:           factor,
			})
		}
		for _, f := range gc.LHSFactors.RegionFactors {
			factor, err := casefile.Required(f.Factor, "region factor", constraintID+"/"+f.RegionID, "Factor")
			if err != nil {
				return err
			}
			cp.RegionTerms = append(cp.RegionTerms, RegionTerm{
				Region: RegionOfferID{RegionID: f.RegionID, TradeType: f.TradeType},
				Factor: factor,
			})
		}
		p.Constraints[constraintID] = cp
	}
	return nil
}

// priceTiedPairs finds pairs of energy offer bands in the same region whose
// prices differ by less than a tenth of a cent. Pairs are stored with the
// lexically smaller trader first and deduplicated.
func priceTiedPairs(sets *Sets, p *Params, tradeType string) []TiedPair {
	type bandEntry struct {
		id     BandID
		price  float64
		qb     float64
		region string
	}
	var entries []bandEntry
	for _, id := range sets.Offers {
		if id.TradeType != tradeType {
			continue
		}
		offer := p.Offers[id]
		region := p.Traders[id.TraderID].RegionID
		for band := 1; band <= 10; band++ {
			entries = append(entries, bandEntry{
				id:     BandID{OfferID: id, Band: band},
				price:  offer.PriceBands[band-1],
				qb:     offer.QuantityBands[band-1],
				region: region,
			})
		}
	}

	seen := make(map[TiedPair]bool)
	var pairs []TiedPair
	for _, a := range entries {
		for _, b := range entries {
			if a.id == b.id || a.region != b.region {
				continue
			}
			if diff := a.price - b.price; diff >= 1e-6 || diff <= -1e-6 {
				continue
			}
			if a.qb == 0 || b.qb == 0 {
				continue
			}
			pair := TiedPair{First: a.id, Second: b.id}
			if pair.First.TraderID > pair.Second.TraderID ||
				(pair.First.TraderID == pair.Second.TraderID && pair.First.Band > pair.Second.Band) {
				pair.First, pair.Second = pair.Second, pair.First
			}
			if !seen[pair] {
				seen[pair] = true
				pairs = append(pairs, pair)
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.First != b.First {
			if a.First.TraderID != b.First.TraderID {
				return a.First.TraderID < b.First.TraderID
			}
			return a.First.Band < b.First.Band
		}
		if a.Second.TraderID != b.Second.TraderID {
			return a.Second.TraderID < b.Second.TraderID
		}
		return a.Second.Band < b.Second.Band
	})
	return pairs
}
