package solution

import (
	"context"
	"math"
	"testing"

	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/formulation"
	"github.com/kilianp07/nemspd/core/milp"
)

func testPrices() formulation.ViolationPrices {
	return formulation.ViolationPrices{
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

func newCase() (*formulation.Sets, *formulation.Params) {
	sets := &formulation.Sets{}
	p := &formulation.Params{
		CaseID:          "20250801001",
		Intervention:    "0",
		Prices:          testPrices(),
		Traders:         make(map[string]*formulation.TraderParams),
		Offers:          make(map[formulation.OfferID]*formulation.OfferParams),
		Regions:         make(map[string]*formulation.RegionParams),
		Interconnectors: make(map[string]*formulation.InterconnectorParams),
		MNSPOffers:      make(map[formulation.MNSPOfferID]*formulation.MNSPOfferParams),
		Constraints:     make(map[string]*formulation.ConstraintParams),
	}
	return sets, p
}

func addRegion(sets *formulation.Sets, p *formulation.Params, id string, demand float64) {
	sets.Regions = append(sets.Regions, id)
	p.Regions[id] = &formulation.RegionParams{ID: id, FixedDemand: demand}
}

func addGenerator(sets *formulation.Sets, p *formulation.Params, id, region string, price, quantity float64) formulation.OfferID {
	up, dn := 7200.0, 7200.0
	p.Traders[id] = &formulation.TraderParams{
		ID:             id,
		Type:           formulation.TraderGenerator,
		RegionID:       region,
		EnergyOffer:    formulation.EnergyGeneration,
		HasEnergyOffer: true,
		EffRampUp:      &up,
		EffRampDn:      &dn,
	}
	oid := formulation.OfferID{TraderID: id, TradeType: formulation.EnergyGeneration}
	offer := &formulation.OfferParams{ID: oid, MaxAvail: quantity}
	offer.PriceBands[0] = price
	offer.QuantityBands[0] = quantity
	p.Offers[oid] = offer
	sets.Traders = append(sets.Traders, id)
	sets.Offers = append(sets.Offers, oid)
	return oid
}

func addFCASOffer(sets *formulation.Sets, p *formulation.Params, trader, tradeType string, price float64, trap formulation.Trapezium) formulation.OfferID {
	oid := formulation.OfferID{TraderID: trader, TradeType: tradeType}
	offer := &formulation.OfferParams{ID: oid, MaxAvail: trap.MaxAvail, Available: true}
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

func fcasRequirement(sets *formulation.Sets, p *formulation.Params, region, tradeType string, mw float64) string {
	id := "F_" + region + "_" + tradeType
	rv := formulation.RegionOfferID{RegionID: region, TradeType: tradeType}
	sets.Constraints = append(sets.Constraints, id)
	sets.GCRegionVars = append(sets.GCRegionVars, rv)
	p.Constraints[id] = &formulation.ConstraintParams{
		ID:             id,
		Type:           "GE",
		ViolationPrice: 420000,
		RHS:            mw,
		RegionTerms:    []formulation.RegionTerm{{Region: rv, Factor: 1}},
	}
	return id
}

func solve(t *testing.T, sets *formulation.Sets, p *formulation.Params) (*formulation.Model, *milp.Result) {
	t.Helper()
	model, err := formulation.Construct(sets, p, formulation.Options{})
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

func TestExtract_SingleRegionBalance(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 30, 100)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	if sol.CaseID != "20250801001" || sol.Intervention != "0" {
		t.Fatalf("case identity: %q %q", sol.CaseID, sol.Intervention)
	}
	near(t, "objective", sol.Objective, 1800, 1e-6)
	near(t, "dispatch cost", sol.DispatchCost, 1800, 1e-6)
	near(t, "violation", sol.ViolationMW, 0, 1e-6)
	if sol.Nodes != 1 {
		t.Fatalf("expected one node for a pure LP, got %d", sol.Nodes)
	}

	ts := sol.Traders["G1"]
	if ts == nil {
		t.Fatalf("missing trader G1")
	}
	near(t, "energy target", ts.Targets[formulation.EnergyGeneration], 60, 1e-6)

	rs := sol.Regions["R1"]
	if rs == nil {
		t.Fatalf("missing region R1")
	}
	near(t, "generation", rs.DispatchedGeneration, 60, 1e-6)
	near(t, "load", rs.DispatchedLoad, 0, 1e-6)
	near(t, "fixed demand", rs.FixedDemand, 60, 1e-6)
	near(t, "cleared demand", rs.ClearedDemand, 60, 1e-6)
	near(t, "net export", rs.NetExport, 0, 1e-6)
	near(t, "raise 6s total", rs.FCASTotals[formulation.Raise6Second], 0, 1e-6)
	if sol.Priced {
		t.Fatalf("extraction must not mark the solution priced")
	}
}

func TestExtract_RegionFCASTotals(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 50, 100)
	addFCASOffer(sets, p, "G1", formulation.Raise6Second, 1,
		formulation.Trapezium{EnablementMin: 0, LowBreakpoint: 0, HighBreakpoint: 100, EnablementMax: 100, MaxAvail: 50})
	fcasRequirement(sets, p, "R1", formulation.Raise6Second, 30)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	near(t, "objective", sol.Objective, 3030, 1e-6)
	near(t, "region raise 6s", sol.Regions["R1"].FCASTotals[formulation.Raise6Second], 30, 1e-6)
	near(t, "trader raise 6s", sol.Traders["G1"].Targets[formulation.Raise6Second], 30, 1e-6)
	near(t, "constraint deficit", sol.Constraints["F_R1_R6SE"].Deficit, 0, 1e-6)
}

func TestExtract_ViolationTotals(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 50)
	addGenerator(sets, p, "G1", "R1", 10, 30)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	near(t, "objective", sol.Objective, 300+20*2205000, 1e-3)
	near(t, "dispatch cost", sol.DispatchCost, 300, 1e-6)
	near(t, "deficit", sol.Regions["R1"].DeficitMW, 20, 1e-6)
	near(t, "surplus", sol.Regions["R1"].SurplusMW, 0, 1e-6)
	near(t, "violation", sol.ViolationMW, 20, 1e-6)
}

func TestExtract_ConstraintDeficit(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 0)
	gcID := fcasRequirement(sets, p, "R1", formulation.Raise6Second, 30)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	near(t, "objective", sol.Objective, 30*420000, 1e-3)
	near(t, "constraint deficit", sol.Constraints[gcID].Deficit, 30, 1e-6)
	near(t, "violation", sol.ViolationMW, 30, 1e-6)
}

func addLosslessInterconnector(sets *formulation.Sets, p *formulation.Params, id, from, to string, limit float64) {
	sets.Interconnectors = append(sets.Interconnectors, id)
	p.Interconnectors[id] = &formulation.InterconnectorParams{
		ID:         id,
		FromRegion: from,
		ToRegion:   to,
		LowerLimit: limit,
		UpperLimit: limit,
		LossShare:  0.5,
	}
}

func TestExtract_InterconnectorFlow(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 20)
	addRegion(sets, p, "R2", 40)
	addGenerator(sets, p, "G1", "R1", 25, 200)
	addLosslessInterconnector(sets, p, "I1", "R1", "R2", 100)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	near(t, "objective", sol.Objective, 1500, 1e-6)
	ic := sol.Interconnectors["I1"]
	if ic == nil {
		t.Fatalf("missing interconnector I1")
	}
	near(t, "flow", ic.Flow, 40, 1e-6)
	near(t, "losses", ic.Losses, 0, 1e-6)
	near(t, "exporter net export", sol.Regions["R1"].NetExport, 40, 1e-6)
	near(t, "importer net export", sol.Regions["R2"].NetExport, -40, 1e-6)
	near(t, "exporter generation", sol.Regions["R1"].DispatchedGeneration, 60, 1e-6)
	near(t, "importer cleared demand", sol.Regions["R2"].ClearedDemand, 40, 1e-6)
}

func TestPrice_SingleRegionMarginal(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 30, 100)

	model, res := solve(t, sets, p)
	prices, err := Price(context.Background(), model, res, milp.Options{})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	near(t, "energy price", prices["R1"], 30, 1e-4)
}

func TestPrice_MarginalUnitSetsPrice(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 30, 50)
	addGenerator(sets, p, "G2", "R1", 50, 100)

	model, res := solve(t, sets, p)
	near(t, "objective", res.Objective, 30*50+50*10, 1e-6)

	prices, err := Price(context.Background(), model, res, milp.Options{})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	near(t, "energy price", prices["R1"], 50, 1e-4)

	sol := Extract(model, res)
	sol.ApplyPrices(prices)
	if !sol.Priced {
		t.Fatalf("solution not marked priced")
	}
	near(t, "applied price", sol.Regions["R1"].EnergyPrice, 50, 1e-4)
}

func TestPrice_TransfersAcrossInterconnector(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 20)
	addRegion(sets, p, "R2", 40)
	addGenerator(sets, p, "G1", "R1", 25, 200)
	addLosslessInterconnector(sets, p, "I1", "R1", "R2", 100)

	model, res := solve(t, sets, p)
	prices, err := Price(context.Background(), model, res, milp.Options{})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	near(t, "exporter price", prices["R1"], 25, 1e-4)
	near(t, "importer price", prices["R2"], 25, 1e-4)
}

func attr(v float64) *casefile.Attr {
	a := casefile.Attr(v)
	return &a
}

func TestCompare_FlagsDeviations(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 30, 100)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	cf := &casefile.CaseFile{}
	cf.Outputs.PeriodSolution = casefile.List[casefile.PeriodSolutionRow]{
		{Intervention: "0", TotalObjective: attr(1800)},
	}
	cf.Outputs.RegionSolution = casefile.List[casefile.RegionSolutionRow]{
		{
			RegionID:             "R1",
			Intervention:         "0",
			EnergyPrice:          attr(30),
			DispatchedGeneration: attr(61),
			DispatchedLoad:       attr(0),
			FixedDemand:          attr(60),
			ClearedDemand:        attr(60),
			NetExport:            attr(0),
		},
	}
	cf.Outputs.TraderSolution = casefile.List[casefile.TraderSolutionRow]{
		{TraderID: "G1", Intervention: "0", EnergyTarget: attr(60)},
	}

	rep := Compare(sol, cf, 1e-3)
	// EnergyPrice is skipped because the solution carries no prices.
	if rep.Checked != 7 {
		t.Fatalf("expected 7 checks, got %d", rep.Checked)
	}
	worst, ok := rep.Worst()
	if !ok {
		t.Fatalf("expected a delta")
	}
	if worst.Kind != "region" || worst.ID != "R1" || worst.Field != "DispatchedGeneration" {
		t.Fatalf("unexpected worst delta: %+v", worst)
	}
	near(t, "worst gap", worst.Gap(), 1, 1e-6)
	if len(rep.Deltas) != 1 {
		t.Fatalf("expected exactly one delta, got %d", len(rep.Deltas))
	}
}

func TestCompare_PassesWithinTolerance(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 30, 100)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	cf := &casefile.CaseFile{}
	cf.Outputs.TraderSolution = casefile.List[casefile.TraderSolutionRow]{
		{TraderID: "G1", Intervention: "0", EnergyTarget: attr(60.0004)},
	}

	rep := Compare(sol, cf, 1e-3)
	if rep.Checked != 1 || len(rep.Deltas) != 0 {
		t.Fatalf("expected clean report, got %+v", rep)
	}
}

func TestCompare_SkipsOtherIntervention(t *testing.T) {
	sets, p := newCase()
	addRegion(sets, p, "R1", 60)
	addGenerator(sets, p, "G1", "R1", 30, 100)

	model, res := solve(t, sets, p)
	sol := Extract(model, res)

	cf := &casefile.CaseFile{}
	cf.Outputs.TraderSolution = casefile.List[casefile.TraderSolutionRow]{
		{TraderID: "G1", Intervention: "1", EnergyTarget: attr(0)},
	}

	rep := Compare(sol, cf, 1e-3)
	if rep.Checked != 0 {
		t.Fatalf("intervention 1 rows must be ignored, checked %d", rep.Checked)
	}
}
