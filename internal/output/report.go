package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/blackwell-systems/devprune/internal/cleaner"
	"github.com/blackwell-systems/devprune/internal/project"
)

// Report modes.
const (
	ModeDryRun    = "dry_run"
	ModeCleaned   = "cleaned"
	ModeCancelled = "cancelled"
)

// Report is the machine-readable summary printed by --json.
type Report struct {
	Mode        string            `json:"mode"`
	Root        string            `json:"root"`
	Projects    []project.Project `json:"projects"`
	TotalSize   int64             `json:"total_size"`
	Result      *cleaner.Result   `json:"result,omitempty"`
	RunID       int64             `json:"run_id,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

// NewReport builds a report for the given projects.
func NewReport(mode, root string, projects []project.Project) *Report {
	if projects == nil {
		projects = []project.Project{}
	}
	return &Report{
		Mode:      mode,
		Root:      root,
		Projects:  projects,
		TotalSize: project.TotalSize(projects),
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
