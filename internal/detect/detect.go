// Package detect classifies a directory as the root of a Rust, Node, Python
// or Go project by looking for marker files next to a build directory.
package detect

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/fsutil"
	"github.com/blackwell-systems/devprune/internal/project"
)

// Build directory names for each ecosystem.
const (
	RustTarget  = "target"
	NodeModules = "node_modules"
	GoVendor    = "vendor"
)

// match is the outcome of a successful rule.
type match struct {
	buildPath string
	name      string
}

// A rule inspects dir and reports whether it is a project root of its kind.
// Warnings describe metadata that could not be read or parsed; they never
// veto detection.
type rule struct {
	kind   project.Kind
	detect func(fs afero.Fs, dir string) (match, bool, []string)
}

// rules are evaluated in order and the first hit wins.
var rules = []rule{
	{project.Rust, detectRust},
	{project.Node, detectNode},
	{project.Python, detectPython},
	{project.Go, detectGo},
}

// Classifier decides which ecosystem, if any, a directory belongs to.
type Classifier struct {
	fs     afero.Fs
	filter project.Filter
}

// New returns a Classifier over fs that only reports kinds allowed by filter.
func New(fs afero.Fs, filter project.Filter) *Classifier {
	return &Classifier{fs: fs, filter: filter}
}

// Classify inspects dir. The boolean is false when dir is not a project root
// of an allowed kind. Warnings are returned even when classification fails.
func (c *Classifier) Classify(dir string) (project.Detected, bool, []string) {
	var warnings []string
	for _, r := range rules {
		if !c.filter.Allows(r.kind) {
			continue
		}
		m, ok, warns := r.detect(c.fs, dir)
		warnings = append(warnings, warns...)
		if !ok {
			continue
		}
		return project.Detected{
			Kind:      r.kind,
			RootPath:  dir,
			BuildPath: m.buildPath,
			Name:      m.name,
		}, true, warnings
	}
	return project.Detected{}, false, warnings
}

// hasMarkerPair reports whether dir holds the marker file and build directory.
func hasMarkerPair(fs afero.Fs, dir, marker, build string) bool {
	return fsutil.IsFile(fs, filepath.Join(dir, marker)) && fsutil.IsDir(fs, filepath.Join(dir, build))
}

func detectRust(fs afero.Fs, dir string) (match, bool, []string) {
	if !hasMarkerPair(fs, dir, "Cargo.toml", RustTarget) {
		return match{}, false, nil
	}
	name, warn := cargoName(fs, filepath.Join(dir, "Cargo.toml"))
	return match{buildPath: filepath.Join(dir, RustTarget), name: name}, true, warnings(warn)
}

func detectNode(fs afero.Fs, dir string) (match, bool, []string) {
	if !hasMarkerPair(fs, dir, "package.json", NodeModules) {
		return match{}, false, nil
	}
	name, warn := packageJSONName(fs, filepath.Join(dir, "package.json"))
	return match{buildPath: filepath.Join(dir, NodeModules), name: name}, true, warnings(warn)
}

func detectGo(fs afero.Fs, dir string) (match, bool, []string) {
	if !hasMarkerPair(fs, dir, "go.mod", GoVendor) {
		return match{}, false, nil
	}
	name, warn := goModuleName(fs, filepath.Join(dir, "go.mod"))
	return match{buildPath: filepath.Join(dir, GoVendor), name: name}, true, warnings(warn)
}

func warnings(w string) []string {
	if w == "" {
		return nil
	}
	return []string{w}
}
