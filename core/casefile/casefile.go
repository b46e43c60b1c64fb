package casefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Attr is a scalar attribute from a market case document. Case documents are
// mechanical XML-to-JSON conversions, so every value arrives as a quoted
// string; Attr also accepts bare JSON numbers for hand-written fixtures.
type Attr float64

func (a *Attr) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", s, err)
		}
		*a = Attr(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = Attr(v)
	return nil
}

func (a Attr) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(a), 'f', -1, 64))
}

// List is a slice that also accepts a single JSON object. XML-to-JSON
// conversion collapses single-element collections into a bare object.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var s []T
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = s
		return nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*l = List[T]{one}
	return nil
}

// Document is the root of a market case file.
type Document struct {
	CaseFile CaseFile `json:"NEMSPDCaseFile"`
}

// CaseFile holds the dispatch inputs and the observed solution published for
// the same interval. The observed solution supplies generic constraint RHS
// values and is the reference for validation reports.
type CaseFile struct {
	Inputs  Inputs  `json:"NemSpdInputs"`
	Outputs Outputs `json:"NemSpdOutputs"`

	indexOnce sync.Once
	idx       caseIndex
}

// Inputs mirrors the NemSpdInputs element. Collections not listed here are
// ignored by the decoder.
type Inputs struct {
	Case            Case             `json:"Case"`
	Regions         regionCollection `json:"RegionCollection"`
	Traders         traderCollection `json:"TraderCollection"`
	Interconnectors icCollection     `json:"InterconnectorCollection"`
	Constraints     gcCollection     `json:"GenericConstraintCollection"`
	Period          PeriodCollection `json:"PeriodCollection"`
}

// Case carries interval-wide attributes, most importantly the constraint
// violation prices used to weight soft-constraint slacks.
type Case struct {
	CaseID       string `json:"@CaseID"`
	Intervention string `json:"@Intervention"`

	VoLL                   *Attr `json:"@VoLL"`
	TieBreakPrice          *Attr `json:"@TieBreakPrice"`
	OfferPrice             *Attr `json:"@OfferPrice"`
	CapacityPrice          *Attr `json:"@CapacityPrice"`
	RampRatePrice          *Attr `json:"@RampRatePrice"`
	ASProfilePrice         *Attr `json:"@ASProfilePrice"`
	ASMaxAvailPrice        *Attr `json:"@ASMaxAvailPrice"`
	ASEnablementMinPrice   *Attr `json:"@ASEnablementMinPrice"`
	ASEnablementMaxPrice   *Attr `json:"@ASEnablementMaxPrice"`
	EnergyDeficitPrice     *Attr `json:"@EnergyDeficitPrice"`
	EnergySurplusPrice     *Attr `json:"@EnergySurplusPrice"`
	UIGFSurplusPrice       *Attr `json:"@UIGFSurplusPrice"`
	InterconnectorPrice    *Attr `json:"@InterconnectorPrice"`
	MNSPOfferPrice         *Attr `json:"@MNSPOfferPrice"`
	MNSPRampRatePrice      *Attr `json:"@MNSPRampRatePrice"`
	MNSPCapacityPrice      *Attr `json:"@MNSPCapacityPrice"`
	FastStartPrice         *Attr `json:"@FastStartPrice"`
	GenericConstraintPrice *Attr `json:"@GenericConstraintPrice"`
	MNSPLossesPrice        *Attr `json:"@MNSPLossesPrice"`
	SatisfactoryPrice      *Attr `json:"@Satisfactory_Network_Price"`
}

type regionCollection struct {
	Region List[Region] `json:"Region"`
}

// Region is a region definition with its initial conditions.
type Region struct {
	RegionID          string              `json:"@RegionID"`
	InitialConditions initialConditionSet `json:"RegionInitialConditionCollection"`
}

type initialConditionSet struct {
	Items List[InitialCondition] `json:"RegionInitialCondition"`
}

// InitialCondition is a named SCADA snapshot value.
type InitialCondition struct {
	InitialConditionID string `json:"@InitialConditionID"`
	Value              *Attr  `json:"@Value"`
}

type traderCollection struct {
	Trader List[Trader] `json:"Trader"`
}

// Trader is a scheduled or semi-scheduled unit with price structures and
// initial conditions. Fast-start commitment attributes are only present on
// fast-start plant.
type Trader struct {
	TraderID     string `json:"@TraderID"`
	TraderType   string `json:"@TraderType"`
	SemiDispatch string `json:"@SemiDispatch"`
	FastStart    string `json:"@FastStart"`

	MinLoadingMW    *Attr `json:"@MinLoadingMW"`
	CurrentMode     *Attr `json:"@CurrentMode"`
	CurrentModeTime *Attr `json:"@CurrentModeTime"`
	T1              *Attr `json:"@T1"`
	T2              *Attr `json:"@T2"`
	T3              *Attr `json:"@T3"`
	T4              *Attr `json:"@T4"`

	InitialConditions traderInitialConditionSet `json:"TraderInitialConditionCollection"`
	PriceStructure    tradePriceStructureSet    `json:"TradePriceStructureCollection"`
}

type traderInitialConditionSet struct {
	Items List[InitialCondition] `json:"TraderInitialCondition"`
}

type tradePriceStructureSet struct {
	Structure tradePriceStructure `json:"TradePriceStructure"`
}

type tradePriceStructure struct {
	TradeTypes tradeTypePriceStructureSet `json:"TradeTypePriceStructureCollection"`
}

type tradeTypePriceStructureSet struct {
	Items List[TradeTypePriceStructure] `json:"TradeTypePriceStructure"`
}

// TradeTypePriceStructure carries the ten price bands for one trade type.
type TradeTypePriceStructure struct {
	TradeType   string `json:"@TradeType"`
	PriceBand1  *Attr  `json:"@PriceBand1"`
	PriceBand2  *Attr  `json:"@PriceBand2"`
	PriceBand3  *Attr  `json:"@PriceBand3"`
	PriceBand4  *Attr  `json:"@PriceBand4"`
	PriceBand5  *Attr  `json:"@PriceBand5"`
	PriceBand6  *Attr  `json:"@PriceBand6"`
	PriceBand7  *Attr  `json:"@PriceBand7"`
	PriceBand8  *Attr  `json:"@PriceBand8"`
	PriceBand9  *Attr  `json:"@PriceBand9"`
	PriceBand10 *Attr  `json:"@PriceBand10"`
}

// PriceBands collects the band attributes into an ordered array. A missing
// band surfaces as a lookup error naming the band.
func (s TradeTypePriceStructure) PriceBands() ([10]float64, error) {
	ptrs := [10]*Attr{
		s.PriceBand1, s.PriceBand2, s.PriceBand3, s.PriceBand4, s.PriceBand5,
		s.PriceBand6, s.PriceBand7, s.PriceBand8, s.PriceBand9, s.PriceBand10,
	}
	var out [10]float64
	for i, p := range ptrs {
		if p == nil {
			return out, newLookupError("trade price structure", s.TradeType, fmt.Sprintf("@PriceBand%d", i+1))
		}
		out[i] = float64(*p)
	}
	return out, nil
}

type icCollection struct {
	Interconnector List[Interconnector] `json:"Interconnector"`
}

// Interconnector carries the piecewise loss model and, for market
// interconnectors, the MNSP price structures. Region endpoints and loss
// factors live on the period element.
type Interconnector struct {
	InterconnectorID string `json:"@InterconnectorID"`

	InitialConditions icInitialConditionSet  `json:"InterconnectorInitialConditionCollection"`
	LossModel         lossModelSet           `json:"LossModelCollection"`
	MNSPPrices        *mnspPriceStructureSet `json:"MNSPPriceStructureCollection"`
}

type icInitialConditionSet struct {
	Items List[InitialCondition] `json:"InterconnectorInitialCondition"`
}

type lossModelSet struct {
	LossModel LossModel `json:"LossModel"`
}

// LossModel is the piecewise-linear loss description of an interconnector.
type LossModel struct {
	LossLowerLimit *Attr      `json:"@LossLowerLimit"`
	LossShare      *Attr      `json:"@LossShare"`
	Segments       segmentSet `json:"SegmentCollection"`
}

type segmentSet struct {
	Segment List[RawSegment] `json:"Segment"`
}

// RawSegment is one loss-curve segment as stored in the case document.
type RawSegment struct {
	Limit  *Attr `json:"@Limit"`
	Factor *Attr `json:"@Factor"`
}

type mnspPriceStructureSet struct {
	Structure mnspPriceStructure `json:"MNSPPriceStructure"`
}

type mnspPriceStructure struct {
	Regions mnspRegionPriceStructureSet `json:"MNSPRegionPriceStructureCollection"`
}

type mnspRegionPriceStructureSet struct {
	Items List[MNSPRegionPriceStructure] `json:"MNSPRegionPriceStructure"`
}

// MNSPRegionPriceStructure carries MNSP price bands for one region end.
type MNSPRegionPriceStructure struct {
	RegionID    string `json:"@RegionID"`
	PriceBand1  *Attr  `json:"@PriceBand1"`
	PriceBand2  *Attr  `json:"@PriceBand2"`
	PriceBand3  *Attr  `json:"@PriceBand3"`
	PriceBand4  *Attr  `json:"@PriceBand4"`
	PriceBand5  *Attr  `json:"@PriceBand5"`
	PriceBand6  *Attr  `json:"@PriceBand6"`
	PriceBand7  *Attr  `json:"@PriceBand7"`
	PriceBand8  *Attr  `json:"@PriceBand8"`
	PriceBand9  *Attr  `json:"@PriceBand9"`
	PriceBand10 *Attr  `json:"@PriceBand10"`
}

func (s MNSPRegionPriceStructure) PriceBands() ([10]float64, error) {
	ptrs := [10]*Attr{
		s.PriceBand1, s.PriceBand2, s.PriceBand3, s.PriceBand4, s.PriceBand5,
		s.PriceBand6, s.PriceBand7, s.PriceBand8, s.PriceBand9, s.PriceBand10,
	}
	var out [10]float64
	for i, p := range ptrs {
		if p == nil {
			return out, newLookupError("mnsp price structure", s.RegionID, fmt.Sprintf("@PriceBand%d", i+1))
		}
		out[i] = float64(*p)
	}
	return out, nil
}

type gcCollection struct {
	GenericConstraint List[GenericConstraint] `json:"GenericConstraint"`
}

// GenericConstraint is a network or FCAS requirement constraint. The RHS is
// not stored here; it is taken from the observed constraint solution for the
// matching intervention flag.
type GenericConstraint struct {
	ConstraintID   string              `json:"@ConstraintID"`
	Type           string              `json:"@Type"`
	ViolationPrice *Attr               `json:"@ViolationPrice"`
	LHSFactors     LHSFactorCollection `json:"LHSFactorCollection"`
}

// LHSFactorCollection lists the LHS terms of a generic constraint.
type LHSFactorCollection struct {
	TraderFactors         List[TraderFactor]         `json:"TraderFactor"`
	InterconnectorFactors List[InterconnectorFactor] `json:"InterconnectorFactor"`
	RegionFactors         List[RegionFactor]         `json:"RegionFactor"`
}

// TraderFactor scales one trader trade type on a constraint LHS.
type TraderFactor struct {
	TraderID  string `json:"@TraderID"`
	TradeType string `json:"@TradeType"`
	Factor    *Attr  `json:"@Factor"`
}

// InterconnectorFactor scales an interconnector flow on a constraint LHS.
type InterconnectorFactor struct {
	InterconnectorID string `json:"@InterconnectorID"`
	Factor           *Attr  `json:"@Factor"`
}

// RegionFactor scales a regional trade-type aggregate on a constraint LHS.
type RegionFactor struct {
	RegionID  string `json:"@RegionID"`
	TradeType string `json:"@TradeType"`
	Factor    *Attr  `json:"@Factor"`
}

// PeriodCollection carries the interval-specific market data.
type PeriodCollection struct {
	Period Period `json:"Period"`
}

// Period groups the per-interval trader, interconnector, region and generic
// constraint data.
type Period struct {
	Traders            traderPeriodCollection `json:"TraderPeriodCollection"`
	Interconnectors    icPeriodCollection     `json:"InterconnectorPeriodCollection"`
	Regions            regionPeriodCollection `json:"RegionPeriodCollection"`
	GenericConstraints gcPeriodCollection     `json:"GenericConstraintPeriodCollection"`
}

type gcPeriodCollection struct {
	GenericConstraintPeriod List[GenericConstraintPeriod] `json:"GenericConstraintPeriod"`
}

// GenericConstraintPeriod activates a generic constraint for the interval.
// Only constraints listed here enter the model.
type GenericConstraintPeriod struct {
	ConstraintID string `json:"@ConstraintID"`
}

type traderPeriodCollection struct {
	TraderPeriod List[TraderPeriod] `json:"TraderPeriod"`
}

// TraderPeriod attaches a trader to a region and lists its offers. UIGF is
// present for semi-dispatchable plant only.
type TraderPeriod struct {
	TraderID string   `json:"@TraderID"`
	RegionID string   `json:"@RegionID"`
	UIGF     *Attr    `json:"@UIGF"`
	Trades   tradeSet `json:"TradeCollection"`
}

type tradeSet struct {
	Trade List[Trade] `json:"Trade"`
}

// Trade is one offer for a single trade type: quantity bands, the offer
// trapezium for FCAS services and ramp rates for energy.
type Trade struct {
	TradeType string `json:"@TradeType"`

	BandAvail1  *Attr `json:"@BandAvail1"`
	BandAvail2  *Attr `json:"@BandAvail2"`
	BandAvail3  *Attr `json:"@BandAvail3"`
	BandAvail4  *Attr `json:"@BandAvail4"`
	BandAvail5  *Attr `json:"@BandAvail5"`
	BandAvail6  *Attr `json:"@BandAvail6"`
	BandAvail7  *Attr `json:"@BandAvail7"`
	BandAvail8  *Attr `json:"@BandAvail8"`
	BandAvail9  *Attr `json:"@BandAvail9"`
	BandAvail10 *Attr `json:"@BandAvail10"`

	MaxAvail       *Attr `json:"@MaxAvail"`
	EnablementMin  *Attr `json:"@EnablementMin"`
	EnablementMax  *Attr `json:"@EnablementMax"`
	LowBreakpoint  *Attr `json:"@LowBreakpoint"`
	HighBreakpoint *Attr `json:"@HighBreakpoint"`
	RampUpRate     *Attr `json:"@RampUpRate"`
	RampDnRate     *Attr `json:"@RampDnRate"`
}

// BandAvails collects the quantity band attributes into an ordered array.
func (t Trade) BandAvails() ([10]float64, error) {
	ptrs := [10]*Attr{
		t.BandAvail1, t.BandAvail2, t.BandAvail3, t.BandAvail4, t.BandAvail5,
		t.BandAvail6, t.BandAvail7, t.BandAvail8, t.BandAvail9, t.BandAvail10,
	}
	var out [10]float64
	for i, p := range ptrs {
		if p == nil {
			return out, newLookupError("trade", t.TradeType, fmt.Sprintf("@BandAvail%d", i+1))
		}
		out[i] = float64(*p)
	}
	return out, nil
}

type icPeriodCollection struct {
	InterconnectorPeriod List[InterconnectorPeriod] `json:"InterconnectorPeriod"`
}

// InterconnectorPeriod carries interval limits, region endpoints and, for
// MNSPs, the loss factors and region offer quantities.
type InterconnectorPeriod struct {
	InterconnectorID string `json:"@InterconnectorID"`
	MNSP             string `json:"@MNSP"`
	FromRegion       string `json:"@FromRegion"`
	ToRegion         string `json:"@ToRegion"`
	LowerLimit       *Attr  `json:"@LowerLimit"`
	UpperLimit       *Attr  `json:"@UpperLimit"`

	FromRegionLF       *Attr `json:"@FromRegionLF"`
	FromRegionLFExport *Attr `json:"@FromRegionLFExport"`
	FromRegionLFImport *Attr `json:"@FromRegionLFImport"`
	ToRegionLF         *Attr `json:"@ToRegionLF"`
	ToRegionLFExport   *Attr `json:"@ToRegionLFExport"`
	ToRegionLFImport   *Attr `json:"@ToRegionLFImport"`

	MNSPOffers *mnspOfferSet `json:"MNSPOfferCollection"`
}

type mnspOfferSet struct {
	MNSPOffer List[MNSPOffer] `json:"MNSPOffer"`
}

// MNSPOffer lists the interval quantity bands for one MNSP region end.
type MNSPOffer struct {
	RegionID string `json:"@RegionID"`

	BandAvail1  *Attr `json:"@BandAvail1"`
	BandAvail2  *Attr `json:"@BandAvail2"`
	BandAvail3  *Attr `json:"@BandAvail3"`
	BandAvail4  *Attr `json:"@BandAvail4"`
	BandAvail5  *Attr `json:"@BandAvail5"`
	BandAvail6  *Attr `json:"@BandAvail6"`
	BandAvail7  *Attr `json:"@BandAvail7"`
	BandAvail8  *Attr `json:"@BandAvail8"`
	BandAvail9  *Attr `json:"@BandAvail9"`
	BandAvail10 *Attr `json:"@BandAvail10"`

	MaxAvail   *Attr `json:"@MaxAvail"`
	RampUpRate *Attr `json:"@RampUpRate"`
	RampDnRate *Attr `json:"@RampDnRate"`
}

func (o MNSPOffer) BandAvails() ([10]float64, error) {
	ptrs := [10]*Attr{
		o.BandAvail1, o.BandAvail2, o.BandAvail3, o.BandAvail4, o.BandAvail5,
		o.BandAvail6, o.BandAvail7, o.BandAvail8, o.BandAvail9, o.BandAvail10,
	}
	var out [10]float64
	for i, p := range ptrs {
		if p == nil {
			return out, newLookupError("mnsp offer", o.RegionID, fmt.Sprintf("@BandAvail%d", i+1))
		}
		out[i] = float64(*p)
	}
	return out, nil
}

type regionPeriodCollection struct {
	RegionPeriod List[RegionPeriod] `json:"RegionPeriod"`
}

// RegionPeriod carries the interval demand forecast increment for a region.
type RegionPeriod struct {
	RegionID string `json:"@RegionID"`
	DF       *Attr  `json:"@DF"`
}

// Outputs mirrors NemSpdOutputs: the observed solution for the interval.
type Outputs struct {
	PeriodSolution         List[PeriodSolutionRow]         `json:"PeriodSolution"`
	RegionSolution         List[RegionSolutionRow]         `json:"RegionSolution"`
	TraderSolution         List[TraderSolutionRow]         `json:"TraderSolution"`
	InterconnectorSolution List[InterconnectorSolutionRow] `json:"InterconnectorSolution"`
	ConstraintSolution     List[ConstraintSolutionRow]     `json:"ConstraintSolution"`
}

// PeriodSolutionRow is the observed interval summary.
type PeriodSolutionRow struct {
	Intervention   string `json:"@Intervention"`
	TotalObjective *Attr  `json:"@TotalObjective"`
}

// RegionSolutionRow is the observed solution for one region.
type RegionSolutionRow struct {
	RegionID             string `json:"@RegionID"`
	Intervention         string `json:"@Intervention"`
	EnergyPrice          *Attr  `json:"@EnergyPrice"`
	DispatchedGeneration *Attr  `json:"@DispatchedGeneration"`
	DispatchedLoad       *Attr  `json:"@DispatchedLoad"`
	FixedDemand          *Attr  `json:"@FixedDemand"`
	ClearedDemand        *Attr  `json:"@ClearedDemand"`
	NetExport            *Attr  `json:"@NetExport"`
}

// TraderSolutionRow is the observed solution for one trader.
type TraderSolutionRow struct {
	TraderID     string `json:"@TraderID"`
	Intervention string `json:"@Intervention"`
	EnergyTarget *Attr  `json:"@EnergyTarget"`
	R6Target     *Attr  `json:"@R6Target"`
	R60Target    *Attr  `json:"@R60Target"`
	R5Target     *Attr  `json:"@R5Target"`
	R5RegTarget  *Attr  `json:"@R5RegTarget"`
	L6Target     *Attr  `json:"@L6Target"`
	L60Target    *Attr  `json:"@L60Target"`
	L5Target     *Attr  `json:"@L5Target"`
	L5RegTarget  *Attr  `json:"@L5RegTarget"`
}

// InterconnectorSolutionRow is the observed solution for one interconnector.
type InterconnectorSolutionRow struct {
	InterconnectorID string `json:"@InterconnectorID"`
	Intervention     string `json:"@Intervention"`
	Flow             *Attr  `json:"@Flow"`
	Losses           *Attr  `json:"@Losses"`
}

// ConstraintSolutionRow is the observed solution for one generic constraint.
// Its RHS feeds the model because constraint RHS values are computed by
// upstream SCADA equations and only published here.
type ConstraintSolutionRow struct {
	ConstraintID  string `json:"@ConstraintID"`
	Intervention  string `json:"@Intervention"`
	RHS           *Attr  `json:"@RHS"`
	MarginalValue *Attr  `json:"@MarginalValue"`
	Deficit       *Attr  `json:"@Deficit"`
}
