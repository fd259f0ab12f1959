// Package cleaner removes the build directories of selected projects.
//
// Projects are cleaned concurrently and independently: a failure in one
// project is recorded against it and never stops the others.
package cleaner

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/fsutil"
	"github.com/blackwell-systems/devprune/internal/preserve"
	"github.com/blackwell-systems/devprune/internal/project"
	"github.com/blackwell-systems/devprune/internal/trash"
	"github.com/blackwell-systems/devprune/internal/workpool"
)

// ErrNoTrash is returned by New when trash removal is requested without a trash.
var ErrNoTrash = errors.New("trash removal requested but no trash is available")

// Trasher moves a directory somewhere it can be recovered from.
type Trasher interface {
	Move(path string) (trash.Entry, error)
}

// Options is the removal policy for a batch.
type Options struct {
	Workers         int // 0 uses every processor
	KeepExecutables bool
	UseTrash        bool
}

// Status is the outcome of cleaning one project.
type Status string

const (
	StatusCleaned Status = "cleaned"
	StatusFailed  Status = "failed"
)

// Outcome records what happened to a single project.
type Outcome struct {
	Project    project.Project                `json:"project"`
	Status     Status                         `json:"status"`
	BytesFreed int64                          `json:"bytes_freed"`
	Reason     string                         `json:"reason,omitempty"`
	Trashed    *trash.Entry                   `json:"trashed,omitempty"`
	Preserved  []preserve.PreservedExecutable `json:"preserved,omitempty"`
}

// Failure names a project that could not be cleaned.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`

	index int
}

// Result aggregates a batch. Succeeded plus len(Failed) equals the number of
// projects submitted.
type Result struct {
	TotalBytesFreed int64     `json:"total_bytes_freed"`
	Estimated       int64     `json:"estimated_bytes"`
	Succeeded       int       `json:"succeeded"`
	Failed          []Failure `json:"failed"`
	Outcomes        []Outcome `json:"outcomes"`
}

// Delta is the difference between the bytes actually freed and the scan
// estimate. Directories can change between scan and clean.
func (r *Result) Delta() int64 {
	return r.TotalBytesFreed - r.Estimated
}

// Preserved returns every executable preserved across the batch.
func (r *Result) Preserved() []preserve.PreservedExecutable {
	var all []preserve.PreservedExecutable
	for _, o := range r.Outcomes {
		all = append(all, o.Preserved...)
	}
	return all
}

// Cleaner applies a removal policy to projects on a filesystem.
type Cleaner struct {
	fs    afero.Fs
	trash Trasher
	opts  Options
}

// New returns a Cleaner. t may be nil when opts.UseTrash is false.
func New(fs afero.Fs, t Trasher, opts Options) (*Cleaner, error) {
	if opts.UseTrash && t == nil {
		return nil, ErrNoTrash
	}
	return &Cleaner{fs: fs, trash: t, opts: opts}, nil
}

// Clean removes the build directory of every project and reports the batch.
func (c *Cleaner) Clean(projects []project.Project) (*Result, error) {
	res := &Result{
		Estimated: project.TotalSize(projects),
		Failed:    []Failure{},
		Outcomes:  make([]Outcome, len(projects)),
	}

	// mu guards TotalBytesFreed, Succeeded and Failed. Each worker owns
	// its slot in Outcomes.
	var mu sync.Mutex

	err := workpool.Run(c.opts.Workers, len(projects), func(i int) {
		out := c.cleanOne(projects[i])
		res.Outcomes[i] = out

		mu.Lock()
		defer mu.Unlock()
		if out.Status == StatusCleaned {
			res.TotalBytesFreed += out.BytesFreed
			res.Succeeded++
			return
		}
		res.Failed = append(res.Failed, Failure{Path: out.Project.Build.Path, Reason: out.Reason, index: i})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run cleanup: %w", err)
	}

	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].index < res.Failed[j].index })
	return res, nil
}

func (c *Cleaner) cleanOne(p project.Project) Outcome {
	out := Outcome{Project: p}
	path := p.Build.Path

	if !fsutil.Exists(c.fs, path) {
		out.Status = StatusCleaned
		return out
	}

	size := fsutil.DirSize(c.fs, path)

	if c.opts.KeepExecutables {
		preserved, err := preserve.Preserve(c.fs, p)
		out.Preserved = preserved
		if err != nil {
			return failed(out, fmt.Errorf("failed to preserve executables: %w", err))
		}
	}

	if c.opts.UseTrash {
		entry, err := c.trash.Move(path)
		if err != nil {
			return failed(out, err)
		}
		out.Trashed = &entry
	} else if err := c.fs.RemoveAll(path); err != nil {
		return failed(out, fmt.Errorf("failed to remove %s: %w", path, err))
	}

	out.Status = StatusCleaned
	out.BytesFreed = size
	return out
}

func failed(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Reason = err.Error()
	return out
}
