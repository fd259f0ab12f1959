package app

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/blackwell-systems/devprune/internal/cleaner"
	"github.com/blackwell-systems/devprune/internal/logger"
	"github.com/blackwell-systems/devprune/internal/store"
)

// freeSpace returns the free bytes on the filesystem holding path.
func freeSpace(path string) (uint64, bool) {
	usage, err := disk.Usage(path)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("failed to read disk usage")
		return 0, false
	}
	return usage.Free, true
}

// openStore opens the history database and makes sure its schema exists.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return st, nil
}

// recordRun saves a clean batch to the history database and returns its
// run ID. History is best effort: failures are logged and yield 0.
func recordRun(root string, started time.Time, res *cleaner.Result, useTrash bool) int64 {
	st, err := openStore()
	if err != nil {
		logger.Warn().Err(err).Msg("clean not recorded in history")
		return 0
	}
	defer st.Close()

	run, projects := runRecord(root, started, res, useTrash)
	id, err := st.RecordRun(run, projects)
	if err != nil {
		logger.Warn().Err(err).Msg("clean not recorded in history")
		return 0
	}
	return id
}

// runRecord converts a clean result into its history rows.
func runRecord(root string, started time.Time, res *cleaner.Result, useTrash bool) (*store.Run, []store.RunProject) {
	mode := store.ModePermanent
	if useTrash {
		mode = store.ModeTrash
	}

	run := &store.Run{
		StartedAt: started,
		Root:      root,
		Mode:      mode,
		Estimated: res.Estimated,
		Freed:     res.TotalBytesFreed,
		Succeeded: res.Succeeded,
		Failed:    len(res.Failed),
	}

	projects := make([]store.RunProject, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		rp := store.RunProject{
			Kind:      o.Project.Kind.String(),
			Name:      o.Project.Name,
			RootPath:  o.Project.RootPath,
			BuildPath: o.Project.Build.Path,
			Bytes:     o.BytesFreed,
			Status:    string(o.Status),
			Reason:    o.Reason,
		}
		if o.Status == cleaner.StatusFailed {
			rp.Bytes = o.Project.Build.Size
		}
		if o.Trashed != nil {
			rp.TrashedPath = o.Trashed.Trashed
			rp.DeletedAt = o.Trashed.DeletedAt
		}
		projects = append(projects, rp)
	}
	return run, projects
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
