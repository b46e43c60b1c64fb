package formulation

import (
	"fmt"

	"github.com/kilianp07/nemspd/core/milp"
)

// defineLossModelConstraints ties each interconnector's loss variable to its
// piecewise linear loss curve. Flow and loss are convex combinations of the
// breakpoint coordinates, and the binary interval selectors force the
// weights onto one segment so the combination stays on the curve even where
// it is non-convex.
func (b *builder) defineLossModelConstraints() {
	for _, icID := range b.sets.Interconnectors {
		ic := b.p.Interconnectors[icID]

		if len(ic.BreakX) < 2 {
			b.m.Add(fmt.Sprintf("loss_def[%s]", icID),
				milp.NewExpr(1).Add(b.v.Loss[icID], 1).Terms(), milp.EQ, 0)
			continue
		}

		lossDef := milp.NewExpr(len(ic.BreakX) + 1).Add(b.v.Loss[icID], 1)
		flowDef := milp.NewExpr(len(ic.BreakX) + 1).Add(b.v.Flow[icID], 1)
		weightSum := milp.NewExpr(len(ic.BreakX))
		for k := range ic.BreakX {
			lambda := b.v.LossLambda[LossIndex{InterconnectorID: icID, Index: k}]
			lossDef.Add(lambda, -ic.BreakY[k])
			flowDef.Add(lambda, -ic.BreakX[k])
			weightSum.Add(lambda, 1)
		}
		b.m.Add(fmt.Sprintf("loss_def[%s]", icID), lossDef.Terms(), milp.EQ, 0)
		b.m.Add(fmt.Sprintf("sos2_flow[%s]", icID), flowDef.Terms(), milp.EQ, 0)
		b.m.Add(fmt.Sprintf("sos2_weights[%s]", icID), weightSum.Terms(), milp.EQ, 1)

		intervals := len(ic.BreakX) - 1
		intervalSum := milp.NewExpr(intervals)
		for k := 0; k < intervals; k++ {
			intervalSum.Add(b.v.LossY[LossIndex{InterconnectorID: icID, Index: k}], 1)
		}
		b.m.Add(fmt.Sprintf("sos2_intervals[%s]", icID), intervalSum.Terms(), milp.EQ, 1)

		// A breakpoint weight may only be nonzero when one of the two
		// intervals it borders is selected.
		for k := range ic.BreakX {
			adj := milp.NewExpr(3).Add(b.v.LossLambda[LossIndex{InterconnectorID: icID, Index: k}], 1)
			if k-1 >= 0 {
				adj.Add(b.v.LossY[LossIndex{InterconnectorID: icID, Index: k - 1}], -1)
			}
			if k < intervals {
				adj.Add(b.v.LossY[LossIndex{InterconnectorID: icID, Index: k}], -1)
			}
			b.m.Add(fmt.Sprintf("sos2_adjacency[%s,%d]", icID, k), adj.Terms(), milp.LE, 0)
		}
	}
}
