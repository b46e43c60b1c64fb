package scenarios

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Expected lists the solution values a scenario asserts. The violation entry
// defaults to zero, so a scenario without one expects a clean solve.
type Expected struct {
	Objective           float64                       `yaml:"objective"`
	Tolerance           float64                       `yaml:"tolerance,omitempty"`
	ViolationMW         float64                       `yaml:"violation_mw,omitempty"`
	TraderTargets       map[string]map[string]float64 `yaml:"trader_targets,omitempty"`
	RegionPrices        map[string]float64            `yaml:"region_prices,omitempty"`
	InterconnectorFlows map[string]float64            `yaml:"interconnector_flows,omitempty"`
}

// Scenario pairs a case document with the expected dispatch outcome.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	CaseFile    string   `yaml:"case_file"`
	Mode        string   `yaml:"mode,omitempty"`
	Pricing     bool     `yaml:"pricing,omitempty"`
	Expected    Expected `yaml:"expected"`
}

// Load reads a scenario definition. The case file path is resolved against
// the scenario's own directory.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.CaseFile == "" {
		return nil, fmt.Errorf("scenario %s: case_file required", path)
	}
	if !filepath.IsAbs(sc.CaseFile) {
		sc.CaseFile = filepath.Join(filepath.Dir(path), sc.CaseFile)
	}
	if sc.Mode == "" {
		sc.Mode = "target"
	}
	if sc.Expected.Tolerance == 0 {
		sc.Expected.Tolerance = 1e-3
	}
	return &sc, nil
}
