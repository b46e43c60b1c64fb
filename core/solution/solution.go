// Package solution reads a solved dispatch program back into market terms:
// cleared targets per trader and service, regional balances and marginal
// prices, interconnector flows and losses, and constraint violations. It
// also diffs a model solution against the observed solution published in
// the case file.
package solution

// TraderSolution holds the cleared quantities for one trader.
type TraderSolution struct {
	TraderID string `json:"trader_id"`
	// Targets maps trade type to the cleared quantity in MW. Energy
	// appears under ENOF or LDOF depending on the trader kind.
	Targets map[string]float64 `json:"targets"`
}

// RegionSolution holds the cleared balance for one region. EnergyPrice is
// populated only when a pricing pass ran; Solution.Priced reports that.
type RegionSolution struct {
	RegionID             string  `json:"region_id"`
	EnergyPrice          float64 `json:"energy_price"`
	DispatchedGeneration float64 `json:"dispatched_generation"`
	DispatchedLoad       float64 `json:"dispatched_load"`
	FixedDemand          float64 `json:"fixed_demand"`
	ClearedDemand        float64 `json:"cleared_demand"`
	NetExport            float64 `json:"net_export"`
	DeficitMW            float64 `json:"deficit_mw"`
	SurplusMW            float64 `json:"surplus_mw"`

	// FCASTotals sums the cleared quantity of each frequency control
	// service over the region's traders.
	FCASTotals map[string]float64 `json:"fcas_totals"`
}

// InterconnectorSolution holds the cleared flow for one interconnector.
// Flow is signed in the from-to-to direction.
type InterconnectorSolution struct {
	InterconnectorID string  `json:"interconnector_id"`
	Flow             float64 `json:"flow"`
	Losses           float64 `json:"losses"`
}

// ConstraintSolution holds the violation of one generic constraint.
type ConstraintSolution struct {
	ConstraintID string  `json:"constraint_id"`
	Deficit      float64 `json:"deficit"`
}

// Solution is the full cleared interval.
type Solution struct {
	// RunID identifies one engine solve, tying log lines, stored records
	// and published results together.
	RunID        string `json:"run_id"`
	CaseID       string `json:"case_id"`
	Intervention string `json:"intervention"`

	// Objective is the solved objective value including violation
	// penalties and tie break terms. DispatchCost is the offer cost
	// component alone.
	Objective    float64 `json:"objective"`
	DispatchCost float64 `json:"dispatch_cost"`

	// ViolationMW totals the named slacks: regional deficit and surplus
	// plus generic constraint violations.
	ViolationMW float64 `json:"violation_mw"`

	Traders         map[string]*TraderSolution         `json:"traders"`
	Regions         map[string]*RegionSolution         `json:"regions"`
	Interconnectors map[string]*InterconnectorSolution `json:"interconnectors"`
	Constraints     map[string]*ConstraintSolution     `json:"constraints"`

	// Priced reports whether regional energy prices were recovered.
	Priced bool `json:"priced"`

	// Nodes is the branch and bound node count of the final solve pass.
	Nodes int `json:"nodes"`
}
