// Package scanner walks a directory tree, classifies project roots and
// measures their build directories.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/detect"
	"github.com/blackwell-systems/devprune/internal/fsutil"
	"github.com/blackwell-systems/devprune/internal/project"
	"github.com/blackwell-systems/devprune/internal/workpool"
)

// ErrRootUnreadable is returned when the scan root is missing, is not a
// directory or cannot be listed.
var ErrRootUnreadable = errors.New("scan root is not a readable directory")

// maxDiagnostics caps the number of diagnostics kept from one scan.
const maxDiagnostics = 500

// Stage identifies a phase of the scan for progress reporting.
type Stage int

const (
	StageWalking Stage = iota
	StageClassifying
	StageSizing
)

func (s Stage) String() string {
	switch s {
	case StageWalking:
		return "walking"
	case StageClassifying:
		return "classifying"
	case StageSizing:
		return "sizing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. It is called from worker
// goroutines and must be safe for concurrent use.
type ProgressFunc func(stage Stage, done, total int)

// Options configures a scan.
type Options struct {
	Filter   project.Filter
	Skip     []string
	Workers  int // 0 uses every processor
	Progress ProgressFunc
}

// Result is the outcome of a scan.
type Result struct {
	Projects    []project.Project
	Diagnostics []string
	Dropped     int // diagnostics discarded past the cap
}

// Scanner finds development projects below a root directory.
type Scanner struct {
	fs   afero.Fs
	opts Options
}

// New creates a Scanner over fs.
func New(fs afero.Fs, opts Options) *Scanner {
	return &Scanner{fs: fs, opts: opts}
}

// Scan walks root and returns every classified project whose build
// directory holds at least one byte. Read errors below the root are
// returned as diagnostics; only an unreadable root fails the scan.
func (s *Scanner) Scan(root string) (*Result, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, root)
	}

	diags := &diagnostics{}

	dirs, err := s.walk(root, diags)
	if err != nil {
		return nil, err
	}

	detected, err := s.classify(dirs, diags)
	if err != nil {
		return nil, err
	}

	projects, err := s.size(detected)
	if err != nil {
		return nil, err
	}

	return &Result{
		Projects:    projects,
		Diagnostics: diags.items,
		Dropped:     diags.dropped,
	}, nil
}

// walk returns every directory that survives pruning, root included.
func (s *Scanner) walk(root string, diags *diagnostics) ([]string, error) {
	pruner := NewPruner(root, s.opts.Skip)
	var dirs []string

	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
			}
			diags.add(fmt.Sprintf("Error reading %s: %v", path, err))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if !pruner.Descend(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		s.progress(StageWalking, len(dirs), 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// classify runs the classifier over every walked directory in parallel.
func (s *Scanner) classify(dirs []string, diags *diagnostics) ([]project.Detected, error) {
	classifier := detect.New(s.fs, s.opts.Filter)

	var (
		mu       sync.Mutex
		detected []project.Detected
		done     int
	)
	err := workpool.Run(s.opts.Workers, len(dirs), func(i int) {
		d, ok, warnings := classifier.Classify(dirs[i])
		for _, w := range warnings {
			diags.add(w)
		}

		mu.Lock()
		if ok {
			detected = append(detected, d)
		}
		done++
		n := done
		mu.Unlock()

		s.progress(StageClassifying, n, len(dirs))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify directories: %w", err)
	}
	return detected, nil
}

// size measures every detected build directory in parallel and drops the
// empty ones.
func (s *Scanner) size(detected []project.Detected) ([]project.Project, error) {
	sizes := make([]int64, len(detected))

	var (
		mu   sync.Mutex
		done int
	)
	err := workpool.Run(s.opts.Workers, len(detected), func(i int) {
		sizes[i] = fsutil.DirSize(s.fs, detected[i].BuildPath)

		mu.Lock()
		done++
		n := done
		mu.Unlock()

		s.progress(StageSizing, n, len(detected))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to size build directories: %w", err)
	}

	projects := make([]project.Project, 0, len(detected))
	for i, d := range detected {
		if sizes[i] == 0 {
			continue
		}
		projects = append(projects, d.WithSize(sizes[i]))
	}
	return projects, nil
}

func (s *Scanner) progress(stage Stage, done, total int) {
	if s.opts.Progress != nil {
		s.opts.Progress(stage, done, total)
	}
}

// diagnostics collects non-fatal messages from concurrent workers.
type diagnostics struct {
	mu      sync.Mutex
	items   []string
	dropped int
}

func (d *diagnostics) add(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) >= maxDiagnostics {
		d.dropped++
		return
	}
	d.items = append(d.items, msg)
}
