package formulation

import (
	"context"
	"math"
	"testing"

	"github.com/kilianp07/nemspd/core/milp"
)

func testPrices() ViolationPrices {
	return ViolationPrices{
		VoLL:            14700,
		TieBreak:        1e-6,
		Offer:           2205000,
		Capacity:        5512500,
		RampRate:        16537500,
		UIGFSurplus:     5512500,
		ASProfile:       2205000,
		ASMaxAvail:      2205000,
		ASEnablementMin: 1102500,
		ASEnablementMax: 1102500,
		EnergyDeficit:   2205000,
		EnergySurplus:   2205000,
		Interconnector:  16537500,
		MNSPOffer:       2205000,
		MNSPRampRate:    16537500,
		MNSPCapacity:    5512500,
		MNSPLosses:      2205000,
		FastStart:       16537500,
		Generic:         420000,
		Satisfactory:    16537500,
	}
}

func emptyParams() *Params {
	return &Params{
		Prices:          testPrices(),
		Traders:         make(map[string]*TraderParams),
		Offers:          make(map[OfferID]*OfferParams),
		Regions:         make(map[string]*RegionParams),
		Interconnectors: make(map[string]*InterconnectorParams),
		MNSPOffers:      make(map[MNSPOfferID]*MNSPOfferParams),
		Constraints:     make(map[string]*ConstraintParams),
	}
}

func addGenerator(sets *Sets, p *Params, id, region string, price, quantity float64) OfferID {
	up, dn := 7200.0, 7200.0
	p.Traders[id] = &TraderParams{
		ID:             id,
		Type:           TraderGenerator,
		RegionID:       region,
		EnergyOffer:    EnergyGeneration,
		HasEnergyOffer: true,
		EffRampUp:      &up,
		EffRampDn:      &dn,
	}
	oid := OfferID{TraderID: id, TradeType: EnergyGeneration}
	offer := &OfferParams{ID: oid, MaxAvail: quantity}
	offer.PriceBands[0] = price
	offer.QuantityBands[0] = quantity
	p.Offers[oid] = offer
	sets.Traders = append(sets.Traders, id)
	sets.Offers = append(sets.Offers, oid)
	return oid
}

func addRegion(sets *Sets, p *Params, id string, demand float64) {
	sets.Regions = append(sets.Regions, id)
	p.Regions[id] = &RegionParams{ID: id, FixedDemand: demand}
}

func runSolve(t *testing.T, sets *Sets, p *Params, opts Options) (*Model, *milp.Result) {
	t.Helper()
	model, err := Construct(sets, p, opts)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	res, err := milp.Solve(context.Background(), model.MILP, milp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	return model, res
}

func near(t *testing.T, what string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: expected %v got %v", what, want, got)
	}
}

func TestConstruct_SingleTraderMeetsDemand(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 60)
	oid := addGenerator(sets, p, "G1", "R1", 50, 100)

	model, res := runSolve(t, sets, p, Options{})
	near(t, "objective", res.Objective, 3000, 1e-6)
	near(t, "energy target", res.X[model.Vars.TraderTotal[oid]], 60, 1e-6)
	near(t, "deficit", res.X[model.Vars.RegionDeficit["R1"]], 0, 1e-6)
	near(t, "surplus", res.X[model.Vars.RegionSurplus["R1"]], 0, 1e-6)
}

func TestConstruct_MeritOrder(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 150)
	cheap := addGenerator(sets, p, "G1", "R1", 40, 100)
	dear := addGenerator(sets, p, "G2", "R1", 60, 100)

	model, res := runSolve(t, sets, p, Options{})
	near(t, "objective", res.Objective, 7000, 1e-6)
	near(t, "cheap unit", res.X[model.Vars.TraderTotal[cheap]], 100, 1e-6)
	near(t, "marginal unit", res.X[model.Vars.TraderTotal[dear]], 50, 1e-6)
}

// fcasRequirement wires a region-level generic constraint demanding the
// given MW of a service, the way ancillary requirements arrive in practice.
func fcasRequirement(sets *Sets, p *Params, region, tradeType string, mw float64) string {
	id := "F_" + region + "_" + tradeType
	rv := RegionOfferID{RegionID: region, TradeType: tradeType}
	sets.Constraints = append(sets.Constraints, id)
	sets.GCRegionVars = append(sets.GCRegionVars, rv)
	p.Constraints[id] = &ConstraintParams{
		ID:             id,
		Type:           "GE",
		ViolationPrice: 420000,
		RHS:            mw,
		RegionTerms:    []RegionTerm{{Region: rv, Factor: 1}},
	}
	return id
}

func addFCASOffer(sets *Sets, p *Params, trader, tradeType string, price float64, trap Trapezium, available bool) OfferID {
	oid := OfferID{TraderID: trader, TradeType: tradeType}
	offer := &OfferParams{ID: oid, MaxAvail: trap.MaxAvail, Available: available}
	offer.PriceBands[0] = price
	offer.QuantityBands[0] = trap.MaxAvail
	raw := trap
	offer.Trapezium = &raw
	scaled := trap
	offer.Scaled = &scaled
	p.Offers[oid] = offer
	sets.Offers = append(sets.Offers, oid)
	return oid
}

func TestConstruct_FCASCoOptimisation(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 60)
	energy := addGenerator(sets, p, "G1", "R1", 50, 100)
	r6 := addFCASOffer(sets, p, "G1", Raise6Second, 1,
		Trapezium{EnablementMin: 0, LowBreakpoint: 0, HighBreakpoint: 100, EnablementMax: 100, MaxAvail: 50}, true)
	fcasRequirement(sets, p, "R1", Raise6Second, 30)

	model, res := runSolve(t, sets, p, Options{})
	near(t, "objective", res.Objective, 3030, 1e-6)
	near(t, "energy target", res.X[model.Vars.TraderTotal[energy]], 60, 1e-6)
	near(t, "raise 6s target", res.X[model.Vars.TraderTotal[r6]], 30, 1e-6)
}

func TestConstruct_UnavailableFCASPinnedToZero(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 50, 100)
	r6 := addFCASOffer(sets, p, "G1", Raise6Second, 1,
		Trapezium{EnablementMin: 0, LowBreakpoint: 0, HighBreakpoint: 100, EnablementMax: 100, MaxAvail: 50}, false)
	gcID := fcasRequirement(sets, p, "R1", Raise6Second, 30)

	model, res := runSolve(t, sets, p, Options{})
	near(t, "pinned service", res.X[model.Vars.TraderTotal[r6]], 0, 1e-6)
	near(t, "requirement shortfall", res.X[model.Vars.GCSlack[gcID][0]], 30, 1e-6)
}

func TestConstruct_RegulatingCeilingFollowsSCADARamp(t *testing.T) {
	build := func(rate *float64, initialMW float64) (*Model, *milp.Result, OfferID) {
		sets := &Sets{}
		p := emptyParams()
		addRegion(sets, p, "R1", 60)
		addGenerator(sets, p, "G1", "R1", 50, 100)
		p.Traders["G1"].SCADARampUp = rate
		p.Traders["G1"].InitialMW = initialMW
		reg := addFCASOffer(sets, p, "G1", RaiseRegulation, 1,
			Trapezium{EnablementMin: 0, LowBreakpoint: 0, HighBreakpoint: 100, EnablementMax: 100, MaxAvail: 50}, true)
		fcasRequirement(sets, p, "R1", RaiseRegulation, 30)
		model, res := runSolve(t, sets, p, Options{})
		return model, res, reg
	}

	// No telemetered rate: the offered availability stands.
	model, res, reg := build(nil, 0)
	near(t, "untelemetered target", res.X[model.Vars.TraderTotal[reg]], 30, 1e-6)

	// A rate of exactly zero means no scaling, not a zero ceiling.
	zero := 0.0
	model, res, reg = build(&zero, 0)
	near(t, "zero rate target", res.X[model.Vars.TraderTotal[reg]], 30, 1e-6)

	// A positive rate caps the service at what AGC can deliver over the
	// interval: 120 MW/h is 10 MW in five minutes.
	rate := 120.0
	model, res, reg = build(&rate, 60)
	near(t, "capped target", res.X[model.Vars.TraderTotal[reg]], 10, 1e-6)
}

func TestConstruct_JointCapacityLimitsService(t *testing.T) {
	// Upper slope 1: every MW of energy above the high breakpoint removes a
	// MW of contingency capability.
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 80)
	energy := addGenerator(sets, p, "G1", "R1", 50, 100)
	r6 := addFCASOffer(sets, p, "G1", Raise6Second, 1,
		Trapezium{EnablementMin: 0, LowBreakpoint: 0, HighBreakpoint: 50, EnablementMax: 100, MaxAvail: 50}, true)
	fcasRequirement(sets, p, "R1", Raise6Second, 30)

	model, res := runSolve(t, sets, p, Options{})
	near(t, "energy target", res.X[model.Vars.TraderTotal[energy]], 80, 1e-6)
	near(t, "derated service", res.X[model.Vars.TraderTotal[r6]], 20, 1e-6)
}

func TestConstruct_InterconnectorLosses(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 0)
	addRegion(sets, p, "R2", 100)
	gen := addGenerator(sets, p, "G1", "R1", 20, 200)

	sets.Interconnectors = append(sets.Interconnectors, "I1")
	p.Interconnectors["I1"] = &InterconnectorParams{
		ID:         "I1",
		FromRegion: "R1",
		ToRegion:   "R2",
		LowerLimit: 200,
		UpperLimit: 200,
		LossShare:  0.5,
		BreakX:     []float64{-200, 0, 200},
		BreakY:     []float64{20, 0, 20},
	}

	model, res := runSolve(t, sets, p, Options{})
	flow := res.X[model.Vars.Flow["I1"]]
	loss := res.X[model.Vars.Loss["I1"]]
	near(t, "flow", flow, 2000.0/19, 1e-4)
	near(t, "loss", loss, 200.0/19, 1e-4)
	near(t, "generation", res.X[model.Vars.TraderTotal[gen]], 2100.0/19, 1e-4)
	near(t, "objective", res.Objective, 42000.0/19, 1e-3)

	// Interpolation weights must sit on one segment with adjacent support.
	var active int
	for k := 0; k < 2; k++ {
		y := res.X[model.Vars.LossY[LossIndex{InterconnectorID: "I1", Index: k}]]
		if y > 0.5 {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active interval, got %d", active)
	}
	lam0 := res.X[model.Vars.LossLambda[LossIndex{InterconnectorID: "I1", Index: 0}]]
	near(t, "reverse breakpoint weight", lam0, 0, 1e-6)
}

func TestConstruct_MNSPFlowDecomposition(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 0)
	addRegion(sets, p, "R2", 100)
	addGenerator(sets, p, "G1", "R1", 20, 200)

	sets.Interconnectors = append(sets.Interconnectors, "MNSP1")
	sets.MNSPs = append(sets.MNSPs, "MNSP1")
	p.Interconnectors["MNSP1"] = &InterconnectorParams{
		ID:                      "MNSP1",
		FromRegion:              "R1",
		ToRegion:                "R2",
		MNSP:                    true,
		LowerLimit:              200,
		UpperLimit:              200,
		FromLFExport:            1,
		FromLFImport:            1,
		ToLFExport:              1,
		ToLFImport:              1,
		FromRegionLossIndicator: 1,
	}
	for _, region := range []string{"R1", "R2"} {
		id := MNSPOfferID{InterconnectorID: "MNSP1", RegionID: region}
		offer := &MNSPOfferParams{ID: id, MaxAvail: 150, RampUp: 2400, RampDn: 2400}
		offer.PriceBands[0] = 5
		offer.QuantityBands[0] = 150
		p.MNSPOffers[id] = offer
		sets.MNSPOffers = append(sets.MNSPOffers, id)
	}

	model, res := runSolve(t, sets, p, Options{})
	near(t, "objective", res.Objective, 2500, 1e-6)
	near(t, "flow", res.X[model.Vars.Flow["MNSP1"]], 100, 1e-6)
	near(t, "direction", res.X[model.Vars.FlowDirection["MNSP1"]], 1, 1e-6)
	near(t, "from export", res.X[model.Vars.FromExport["MNSP1"]], 100, 1e-6)
	near(t, "to import", res.X[model.Vars.ToImport["MNSP1"]], 100, 1e-6)
	near(t, "from import", res.X[model.Vars.FromImport["MNSP1"]], 0, 1e-6)
	near(t, "to export", res.X[model.Vars.ToExport["MNSP1"]], 0, 1e-6)
	to := MNSPOfferID{InterconnectorID: "MNSP1", RegionID: "R2"}
	near(t, "to offer", res.X[model.Vars.MNSPTotal[to]], 100, 1e-6)
}

func TestConstruct_UncommittedFastStartPinnedByProfiles(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 60)
	fs := addGenerator(sets, p, "FS", "R1", 10, 100)
	other := addGenerator(sets, p, "G2", "R1", 50, 100)

	mode := 0
	modeTime := 0.0
	trader := p.Traders["FS"]
	trader.FastStart = true
	trader.MinLoading = 6
	trader.T1, trader.T2, trader.T3, trader.T4 = 2, 10, 5, 2
	trader.CurrentMode = &mode
	trader.CurrentModeTime = &modeTime
	sets.FastStart = append(sets.FastStart, "FS")

	// Without profiles the cheap unit clears the whole demand.
	model, res := runSolve(t, sets, p, Options{})
	near(t, "unconstrained target", res.X[model.Vars.TraderTotal[fs]], 60, 1e-6)

	// With profiles an uncommitted unit cannot move off zero.
	model, res = runSolve(t, sets, p, Options{InflexibilityProfiles: true})
	near(t, "pinned target", res.X[model.Vars.TraderTotal[fs]], 0, 1e-6)
	near(t, "covering unit", res.X[model.Vars.TraderTotal[other]], 60, 1e-6)
	near(t, "objective", res.Objective, 3000, 1e-6)
}

func TestConstruct_FastStartTrajectoryPin(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 60)
	fs := addGenerator(sets, p, "FS", "R1", 10, 100)
	other := addGenerator(sets, p, "G2", "R1", 50, 100)

	mode := 2
	modeTime := 5.0
	rate := 60.0
	trader := p.Traders["FS"]
	trader.FastStart = true
	trader.MinLoading = 6
	trader.T1, trader.T2, trader.T3, trader.T4 = 2, 10, 5, 2
	trader.CurrentMode = &mode
	trader.CurrentModeTime = &modeTime
	trader.EffRampUp = &rate
	sets.FastStart = append(sets.FastStart, "FS")

	model, res := runSolve(t, sets, p, Options{InflexibilityProfiles: true})
	near(t, "trajectory target", res.X[model.Vars.TraderTotal[fs]], 6, 1e-6)
	near(t, "covering unit", res.X[model.Vars.TraderTotal[other]], 54, 1e-6)
	near(t, "objective", res.Objective, 10*6+50*54, 1e-6)
}

func TestConstruct_TieBreakSplitsEvenly(t *testing.T) {
	sets := &Sets{}
	p := emptyParams()
	addRegion(sets, p, "R1", 100)
	g1 := addGenerator(sets, p, "G1", "R1", 30, 100)
	g2 := addGenerator(sets, p, "G2", "R1", 30, 100)
	p.PriceTiedGenerators = []TiedPair{{
		First:  BandID{OfferID: g1, Band: 1},
		Second: BandID{OfferID: g2, Band: 1},
	}}

	model, res := runSolve(t, sets, p, Options{})
	x1 := res.X[model.Vars.TraderTotal[g1]]
	x2 := res.X[model.Vars.TraderTotal[g2]]
	near(t, "split sum", x1+x2, 100, 1e-6)
	near(t, "even split", x1, 50, 1e-3)
	near(t, "dispatch cost", res.Objective, 3000, 1)
}
