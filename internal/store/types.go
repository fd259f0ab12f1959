package store

import "time"

// Removal modes recorded for a run.
const (
	ModeTrash     = "trash"
	ModePermanent = "permanent"
)

// Run is one recorded clean invocation.
type Run struct {
	ID        int64
	StartedAt time.Time
	Root      string
	Mode      string // ModeTrash or ModePermanent
	Estimated int64
	Freed     int64
	Succeeded int
	Failed    int
}

// RunProject is the outcome for a single project within a run.
// TrashedPath is empty for permanent removals and failures.
type RunProject struct {
	ID          int64
	RunID       int64
	Kind        string
	Name        string
	RootPath    string
	BuildPath   string
	Bytes       int64
	Status      string
	Reason      string
	TrashedPath string
	DeletedAt   time.Time
	Restored    bool
}

// Restorable reports whether the project still has a trashed copy to restore.
func (p *RunProject) Restorable() bool {
	return p.TrashedPath != "" && !p.Restored
}
