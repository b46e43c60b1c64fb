package config

import (
	"fmt"
	"path/filepath"
)

// SpoolConfig drives the spool service watching a directory for case files.
type SpoolConfig struct {
	// Dir is scanned for incoming case files. The spool service refuses to
	// start without it; the one-shot commands ignore it.
	Dir string `json:"dir"`
	// ProcessedDir receives solved case files.
	ProcessedDir string `json:"processed_dir"`
	// FailedDir receives case files that could not be solved.
	FailedDir string `json:"failed_dir"`
	// PollIntervalSeconds is the directory scan period.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
}

// SetDefaults applies sane defaults. The processed and failed directories
// default to subdirectories of the spool directory.
func (c *SpoolConfig) SetDefaults() {
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 5
	}
	if c.Dir != "" {
		if c.ProcessedDir == "" {
			c.ProcessedDir = filepath.Join(c.Dir, "processed")
		}
		if c.FailedDir == "" {
			c.FailedDir = filepath.Join(c.Dir, "failed")
		}
	}
}

// Validate checks the scan period.
func (c SpoolConfig) Validate() error {
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	return nil
}
