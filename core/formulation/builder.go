package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// Options select optional constraint families for a build.
type Options struct {
	// InflexibilityProfiles enables the fast start commitment constraints.
	// The first solve pass runs without them so the engine can see which
	// uncommitted units the market wants to start.
	InflexibilityProfiles bool
}

// RegionExpr keeps the linear expressions behind a region's power balance so
// solution reports can re-evaluate them against the solved vector.
type RegionExpr struct {
	DispatchedGeneration []milp.Term
	DispatchedLoad       []milp.Term
	AllocatedLoss        []milp.Term
	MNSPLoss             []milp.Term
	NetExport            []milp.Term

	// BalanceRow is the power balance constraint index. Pricing runs
	// perturb its right hand side to measure the marginal cost of demand.
	BalanceRow int
}

// Vars indexes the decision variables by market entity. Violation slacks are
// unnamed objective terms except where reports need them.
type Vars struct {
	TraderOffer map[BandID]milp.VarID
	TraderTotal map[OfferID]milp.VarID
	MNSPOffer   map[MNSPBandID]milp.VarID
	MNSPTotal   map[MNSPOfferID]milp.VarID

	GCTrader map[OfferID]milp.VarID
	GCRegion map[RegionOfferID]milp.VarID
	// Flow doubles as the generic constraint interconnector variable.
	Flow map[string]milp.VarID

	Loss       map[string]milp.VarID
	LossLambda map[LossIndex]milp.VarID
	LossY      map[LossIndex]milp.VarID

	FlowDirection map[string]milp.VarID
	FromExport    map[string]milp.VarID
	FromImport    map[string]milp.VarID
	ToExport      map[string]milp.VarID
	ToImport      map[string]milp.VarID

	TieGen1  map[TiedPair]milp.VarID
	TieGen2  map[TiedPair]milp.VarID
	TieLoad1 map[TiedPair]milp.VarID
	TieLoad2 map[TiedPair]milp.VarID

	// Named violation slacks surfaced in solution reports.
	GCSlack       map[string][]milp.VarID
	RegionDeficit map[string]milp.VarID
	RegionSurplus map[string]milp.VarID

	// CostTerms is the dispatch cost part of the objective: offer prices
	// times band dispatch, excluding violation penalties and tie breaking.
	CostTerms []milp.Term
}

func newVars() *Vars {
	return &Vars{
		TraderOffer:   make(map[BandID]milp.VarID),
		TraderTotal:   make(map[OfferID]milp.VarID),
		MNSPOffer:     make(map[MNSPBandID]milp.VarID),
		MNSPTotal:     make(map[MNSPOfferID]milp.VarID),
		GCTrader:      make(map[OfferID]milp.VarID),
		GCRegion:      make(map[RegionOfferID]milp.VarID),
		Flow:          make(map[string]milp.VarID),
		Loss:          make(map[string]milp.VarID),
		LossLambda:    make(map[LossIndex]milp.VarID),
		LossY:         make(map[LossIndex]milp.VarID),
		FlowDirection: make(map[string]milp.VarID),
		FromExport:    make(map[string]milp.VarID),
		FromImport:    make(map[string]milp.VarID),
		ToExport:      make(map[string]milp.VarID),
		ToImport:      make(map[string]milp.VarID),
		TieGen1:       make(map[TiedPair]milp.VarID),
		TieGen2:       make(map[TiedPair]milp.VarID),
		TieLoad1:      make(map[TiedPair]milp.VarID),
		TieLoad2:      make(map[TiedPair]milp.VarID),
		GCSlack:       make(map[string][]milp.VarID),
		RegionDeficit: make(map[string]milp.VarID),
		RegionSurplus: make(map[string]milp.VarID),
	}
}

// Model bundles the assembled program with the index sets, bound parameters
// and variable maps needed to interpret a solution vector.
type Model struct {
	MILP    *milp.Model
	Sets    *Sets
	Params  *Params
	Vars    *Vars
	Opts    Options
	Regions map[string]*RegionExpr
}

type builder struct {
	m       *milp.Model
	sets    *Sets
	p       *Params
	v       *Vars
	opts    Options
	regions map[string]*RegionExpr
}

// Construct assembles the dispatch program for one interval from bound
// parameters. Construction is deterministic: the same sets and parameters
// yield an identical model.
func Construct(sets *Sets, p *Params, opts Options) (*Model, error) {
	b := &builder{
		m:       milp.New(),
		sets:    sets,
		p:       p,
		v:       newVars(),
		opts:    opts,
		regions: make(map[string]*RegionExpr, len(sets.Regions)),
	}

	b.defineOfferVariables()
	b.defineNetworkVariables()
	b.defineOfferConstraints()
	if err := b.defineGenericConstraints(); err != nil {
		return nil, err
	}
	b.defineUnitConstraints()
	b.defineRegionConstraints()
	b.defineInterconnectorConstraints()
	b.defineMNSPConstraints()
	b.defineFCASConstraints()
	b.defineLossModelConstraints()
	if opts.InflexibilityProfiles {
		b.defineInflexibilityConstraints()
	}
	b.defineTieBreakConstraints()

	return &Model{
		MILP:    b.m,
		Sets:    sets,
		Params:  p,
		Vars:    b.v,
		Opts:    opts,
		Regions: b.regions,
	}, nil
}

// slack adds a non-negative violation variable priced into the objective.
func (b *builder) slack(name string, price float64) milp.VarID {
	v := b.m.NewNonNeg(name)
	b.m.AddObjective(v, price)
	return v
}

// cost adds an offer dispatch cost coefficient to the objective and records
// it for reporting.
func (b *builder) cost(v milp.VarID, coef float64) {
	b.m.AddObjective(v, coef)
	b.v.CostTerms = append(b.v.CostTerms, milp.Term{Var: v, Coef: coef})
}

// defineOfferVariables creates trader and MNSP band and total variables and
// prices the bands into the objective. Energy consumed by a dispatchable
// load enters the cost function negated: dispatching load lowers cost.
func (b *builder) defineOfferVariables() {
	for _, id := range b.sets.Offers {
		offer := b.p.Offers[id]
		factor := 1.0
		if id.TradeType == EnergyLoad {
			factor = -1
		}
		b.v.TraderTotal[id] = b.m.NewNonNeg(fmt.Sprintf("trader_total[%s,%s]", id.TraderID, id.TradeType))
		for band := 1; band <= 10; band++ {
			bid := BandID{OfferID: id, Band: band}
			v := b.m.NewNonNeg(fmt.Sprintf("trader_offer[%s,%s,%d]", id.TraderID, id.TradeType, band))
			b.v.TraderOffer[bid] = v
			b.cost(v, factor*offer.PriceBands[band-1])
		}
	}

	for _, id := range b.sets.MNSPOffers {
		offer := b.p.MNSPOffers[id]
		b.v.MNSPTotal[id] = b.m.NewNonNeg(fmt.Sprintf("mnsp_total[%s,%s]", id.InterconnectorID, id.RegionID))
		for band := 1; band <= 10; band++ {
			bid := MNSPBandID{MNSPOfferID: id, Band: band}
			v := b.m.NewNonNeg(fmt.Sprintf("mnsp_offer[%s,%s,%d]", id.InterconnectorID, id.RegionID, band))
			b.v.MNSPOffer[bid] = v
			b.cost(v, offer.PriceBands[band-1])
		}
	}
}

// defineNetworkVariables creates flow and loss variables for every
// interconnector plus the flow direction machinery for MNSPs. Flow variables
// are also created for interconnectors referenced only by generic
// constraints so those constraints stay well formed.
func (b *builder) defineNetworkVariables() {
	for _, icID := range b.sets.Interconnectors {
		b.v.Flow[icID] = b.m.NewFree(fmt.Sprintf("flow[%s]", icID))
		b.v.Loss[icID] = b.m.NewFree(fmt.Sprintf("loss[%s]", icID))
		ic := b.p.Interconnectors[icID]
		for k := range ic.BreakX {
			idx := LossIndex{InterconnectorID: icID, Index: k}
			b.v.LossLambda[idx] = b.m.NewNonNeg(fmt.Sprintf("loss_lambda[%s,%d]", icID, k))
			if k < len(ic.BreakX)-1 {
				b.v.LossY[idx] = b.m.NewBinary(fmt.Sprintf("loss_y[%s,%d]", icID, k))
			}
		}
		if ic.MNSP {
			b.v.FlowDirection[icID] = b.m.NewBinary(fmt.Sprintf("mnsp_direction[%s]", icID))
			b.v.FromExport[icID] = b.m.NewFree(fmt.Sprintf("mnsp_from_export[%s]", icID))
			b.v.FromImport[icID] = b.m.NewFree(fmt.Sprintf("mnsp_from_import[%s]", icID))
			b.v.ToExport[icID] = b.m.NewFree(fmt.Sprintf("mnsp_to_export[%s]", icID))
			b.v.ToImport[icID] = b.m.NewFree(fmt.Sprintf("mnsp_to_import[%s]", icID))
		}
	}
	for _, icID := range b.sets.GCInterconnectorVars {
		if _, ok := b.v.Flow[icID]; !ok {
			b.v.Flow[icID] = b.m.NewFree(fmt.Sprintf("flow[%s]", icID))
		}
	}
}
