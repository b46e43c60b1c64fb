// Package store persists solved dispatch runs for later inspection.
package store

import (
	"context"
	"time"

	"github.com/kilianp07/nemspd/core/solution"
)

// RunRecord captures one solved dispatch interval.
type RunRecord struct {
	Time         time.Time          `json:"time"`
	RunID        string             `json:"run_id"`
	CaseID       string             `json:"case_id"`
	Intervention string             `json:"intervention"`
	Mode         string             `json:"mode"`
	Solution     *solution.Solution `json:"solution"`
}

// RunQuery defines filters for retrieving records.
type RunQuery struct {
	Start  time.Time
	End    time.Time
	CaseID string
	Mode   string
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// NopStore discards records. It stands in when no backend is configured.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error { return nil }

func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }

func (NopStore) Close() error { return nil }
