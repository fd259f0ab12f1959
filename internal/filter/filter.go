// Package filter drops projects that fall below the size or age thresholds
// and orders what remains.
package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/project"
)

// Options holds the filtering and ordering criteria.
type Options struct {
	KeepSize string // minimum build directory size, e.g. "50MB"; empty or "0" keeps all
	KeepDays int    // only keep projects untouched for at least this many days; 0 disables
	Sort     project.SortKey
	Reverse  bool
}

// ParseSize converts a human size such as "100KB", "1.5GiB" or "42" to
// bytes. Decimal suffixes are powers of 1000, binary suffixes powers of 1024.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}
	return int64(n), nil
}

// Filter applies Options to project listings on a filesystem.
type Filter struct {
	fs  afero.Fs
	now func() time.Time
}

// New returns a Filter that reads modification times from fs.
func New(fs afero.Fs) *Filter {
	return &Filter{fs: fs, now: time.Now}
}

// Apply returns the projects meeting the thresholds in opts, sorted by
// opts.Sort. The input slice is not modified. Only an unparsable size
// threshold is an error.
func (f *Filter) Apply(projects []project.Project, opts Options) ([]project.Project, error) {
	minSize, err := ParseSize(opts.KeepSize)
	if err != nil {
		return nil, err
	}
	if opts.KeepDays < 0 {
		return nil, fmt.Errorf("invalid keep-days %d: must not be negative", opts.KeepDays)
	}

	cutoff := f.now().AddDate(0, 0, -opts.KeepDays)
	kept := make([]project.Project, 0, len(projects))
	for _, p := range projects {
		if p.Build.Size < minSize {
			continue
		}
		if opts.KeepDays > 0 && !f.oldEnough(p, cutoff) {
			continue
		}
		kept = append(kept, p)
	}

	if err := f.Sort(kept, opts.Sort, opts.Reverse); err != nil {
		return nil, err
	}
	return kept, nil
}

// oldEnough reports whether the build directory was last modified at or
// before cutoff. Projects whose metadata cannot be read are kept.
func (f *Filter) oldEnough(p project.Project, cutoff time.Time) bool {
	info, err := f.fs.Stat(p.Build.Path)
	if err != nil {
		return true
	}
	return !info.ModTime().After(cutoff)
}

// Sort orders projects in place. Sorting is stable so equal keys keep their
// relative order.
func (f *Filter) Sort(projects []project.Project, key project.SortKey, reverse bool) error {
	var less func(a, b project.Project) bool

	switch key {
	case "", project.SortBySize:
		less = func(a, b project.Project) bool { return a.Build.Size > b.Build.Size }
	case project.SortByName:
		less = func(a, b project.Project) bool {
			return strings.ToLower(a.DisplayName()) < strings.ToLower(b.DisplayName())
		}
	case project.SortByType:
		less = func(a, b project.Project) bool {
			if a.Kind != b.Kind {
				return a.Kind < b.Kind
			}
			return strings.ToLower(a.DisplayName()) < strings.ToLower(b.DisplayName())
		}
	case project.SortByAge:
		mtimes := make(map[string]time.Time, len(projects))
		for _, p := range projects {
			mtimes[p.Build.Path] = f.modTime(p.Build.Path)
		}
		less = func(a, b project.Project) bool { return mtimes[a.Build.Path].Before(mtimes[b.Build.Path]) }
	default:
		return fmt.Errorf("invalid sort key %q", key)
	}

	if reverse {
		forward := less
		less = func(a, b project.Project) bool { return forward(b, a) }
	}
	sort.SliceStable(projects, func(i, j int) bool { return less(projects[i], projects[j]) })
	return nil
}

// modTime returns the zero time when the path cannot be stat'ed, which sorts
// unreadable directories as the oldest.
func (f *Filter) modTime(path string) time.Time {
	info, err := f.fs.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
