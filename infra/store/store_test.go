package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kilianp07/nemspd/core/solution"
)

func TestRunRecord_JSON(t *testing.T) {
	rec := RunRecord{
		Time:         time.Unix(0, 0),
		RunID:        "run-1",
		CaseID:       "20260801001",
		Intervention: "0",
		Mode:         "target",
		Solution: &solution.Solution{
			CaseID:    "20260801001",
			Objective: 1800,
		},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := []string{"time", "run_id", "case_id", "intervention", "mode", "solution"}
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
}

func TestBuild_Backends(t *testing.T) {
	dir := t.TempDir()

	s, err := Build(Config{Backend: "jsonl", Path: dir + "/runs.jsonl"})
	if err != nil {
		t.Fatalf("jsonl build: %v", err)
	}
	if _, ok := s.(*JSONLStore); !ok {
		t.Fatalf("expected JSONLStore, got %T", s)
	}

	s, err = Build(Config{Backend: "sqlite", Path: dir + "/runs.db"})
	if err != nil {
		t.Fatalf("sqlite build: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("expected SQLiteStore, got %T", s)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Build(Config{})
	if err != nil {
		t.Fatalf("nop build: %v", err)
	}
	if _, ok := s.(NopStore); !ok {
		t.Fatalf("expected NopStore, got %T", s)
	}

	if _, err := Build(Config{Backend: "bolt", Path: "x"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := Build(Config{Backend: "sqlite"}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
