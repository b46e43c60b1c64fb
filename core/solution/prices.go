package solution

import (
	"context"
	"fmt"

	"github.com/kilianp07/nemspd/core/formulation"
	"github.com/kilianp07/nemspd/core/milp"
)

// Price recovers the marginal energy price of every region: the interval is
// re-solved with the region's fixed demand raised by one megawatt and all
// binaries held at their incumbent values, and the price is the objective
// difference. With binaries fixed each pricing run is a single linear
// program.
func Price(ctx context.Context, m *formulation.Model, res *milp.Result, opts milp.Options) (map[string]float64, error) {
	prices := make(map[string]float64, len(m.Sets.Regions))
	for _, regionID := range m.Sets.Regions {
		re := m.Regions[regionID]
		region := m.Params.Regions[regionID]

		bumped := m.MILP.Clone()
		bumped.SetRHS(re.BalanceRow, region.FixedDemand+1)
		r, err := milp.SolveFixed(ctx, bumped, res.X, opts)
		if err != nil {
			return nil, fmt.Errorf("price region %s: %w", regionID, err)
		}
		prices[regionID] = r.Objective - res.Objective
	}
	return prices, nil
}

// ApplyPrices writes recovered regional prices into the solution and marks
// it priced.
func (s *Solution) ApplyPrices(prices map[string]float64) {
	for regionID, price := range prices {
		if rs, ok := s.Regions[regionID]; ok {
			rs.EnergyPrice = price
		}
	}
	s.Priced = true
}
