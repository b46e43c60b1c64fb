package store

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/nemspd/core/solution"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	st, err := NewSQLiteStore("file:test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = st.Close() }()

	rec := RunRecord{
		Time:         time.Now(),
		RunID:        "run-1",
		CaseID:       "20260801001",
		Intervention: "0",
		Mode:         "target",
		Solution: &solution.Solution{
			CaseID:    "20260801001",
			Objective: 1800,
			Regions: map[string]*solution.RegionSolution{
				"R1": {RegionID: "R1", FixedDemand: 60},
			},
		},
	}
	if err := st.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := st.Query(context.Background(), RunQuery{CaseID: "20260801001"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Solution.Regions["R1"].FixedDemand != 60 {
		t.Fatalf("solution not round-tripped: %+v", out[0].Solution)
	}

	out, err = st.Query(context.Background(), RunQuery{Mode: "pricing"})
	if err != nil {
		t.Fatalf("query mode: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no pricing records, got %d", len(out))
	}
}
