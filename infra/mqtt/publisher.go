package mqtt

import (
	"fmt"
	"sync"

	"github.com/kilianp07/nemspd/core/solution"
)

// Publisher pushes solved dispatch results to downstream consumers.
type Publisher interface {
	PublishSolution(sol *solution.Solution) error
	Disconnect()
}

// NopPublisher discards results. It stands in when publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSolution(*solution.Solution) error { return nil }

func (NopPublisher) Disconnect() {}

// Build returns the configured publisher. A disabled config yields a
// NopPublisher.
func Build(cfg Config) (Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("publisher config: %w", err)
	}
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	return NewPahoPublisher(cfg)
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Published []*solution.Solution
	Fail      bool
	mu        sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishSolution records the solution or returns an error if configured
// to fail.
func (m *MockPublisher) PublishSolution(sol *solution.Solution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Published = append(m.Published, sol)
	return nil
}

// Disconnect is a no-op.
func (m *MockPublisher) Disconnect() {}
