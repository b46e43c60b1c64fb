package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// defineTieBreakConstraints splits dispatch pro rata between price bands
// offered at the same price. Deviation from proportional loading is priced
// at a small multiple of the market price cap so ties never distort the
// economic dispatch itself.
func (b *builder) defineTieBreakConstraints() {
	price := b.p.Prices.TieBreak * b.p.Prices.VoLL
	for _, pair := range b.p.PriceTiedGenerators {
		b.tieBreak("gen", pair, price, b.v.TieGen1, b.v.TieGen2)
	}
	for _, pair := range b.p.PriceTiedLoads {
		b.tieBreak("load", pair, price, b.v.TieLoad1, b.v.TieLoad2)
	}
}

func (b *builder) tieBreak(kind string, pair TiedPair, price float64, s1map, s2map map[TiedPair]milp.VarID) {
	q1 := b.p.Offers[pair.First.OfferID].QuantityBands[pair.First.Band-1]
	q2 := b.p.Offers[pair.Second.OfferID].QuantityBands[pair.Second.Band-1]
	if q1 == 0 || q2 == 0 {
		return
	}
	label := fmt.Sprintf("%s,%d,%s,%d", pair.First.TraderID, pair.First.Band, pair.Second.TraderID, pair.Second.Band)
	s1 := b.slack(fmt.Sprintf("cv_tie_break_%s_1[%s]", kind, label), price)
	s2 := b.slack(fmt.Sprintf("cv_tie_break_%s_2[%s]", kind, label), price)
	s1map[pair] = s1
	s2map[pair] = s2
	b.m.Add(fmt.Sprintf("tie_break_%s[%s]", kind, label),
		milp.NewExpr(4).
			Add(b.v.TraderOffer[pair.First], 1/q1).
			Add(b.v.TraderOffer[pair.Second], -1/q2).
			Add(s1, -1).Add(s2, 1).Terms(),
		milp.EQ, 0)
}
