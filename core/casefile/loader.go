package casefile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load reads a case document from a JSON file.
func Load(path string) (*CaseFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read decodes a case document from r.
func Read(r io.Reader) (*CaseFile, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode case file: %w", err)
	}
	return &doc.CaseFile, nil
}
