package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/devprune/internal/detect"
)

// excludedDirs are never descended into: version control metadata, common
// build output names and language caches or virtual environments.
var excludedDirs = map[string]bool{
	"target":      true,
	"build":       true,
	"dist":        true,
	"out":         true,
	".git":        true,
	".svn":        true,
	".hg":         true,
	"__pycache__": true,
	"venv":        true,
	".venv":       true,
	"env":         true,
	".env":        true,
	"temp":        true,
	"tmp":         true,
}

// allowedHidden is the one dot-directory that is still walked.
const allowedHidden = ".cargo"

// Pruner decides whether the walk should descend into a directory.
// Rules are evaluated against the path relative to the scan root, and the
// root itself is always descended into.
type Pruner struct {
	root string
	skip []string
}

// NewPruner returns a Pruner for a walk rooted at root.
func NewPruner(root string, skip []string) *Pruner {
	patterns := make([]string, 0, len(skip))
	for _, s := range skip {
		if s = strings.TrimSpace(s); s != "" {
			patterns = append(patterns, filepath.Clean(s))
		}
	}
	return &Pruner{root: filepath.Clean(root), skip: patterns}
}

// Descend reports whether the directory at path should be walked.
func (p *Pruner) Descend(path string) bool {
	path = filepath.Clean(path)
	rel, err := filepath.Rel(p.root, path)
	if err != nil || rel == "." {
		return true
	}
	components := strings.Split(rel, string(os.PathSeparator))

	for _, c := range components {
		if c == detect.NodeModules {
			return false
		}
	}

	if p.skipped(path, rel, components) {
		return false
	}

	name := components[len(components)-1]
	if strings.HasPrefix(name, ".") && name != allowedHidden {
		return false
	}

	return !excludedDirs[name]
}

// skipped matches absolute patterns as path prefixes and any other pattern
// as a substring of a path component. Relative patterns spanning several
// components are matched against the whole relative path.
func (p *Pruner) skipped(path, rel string, components []string) bool {
	for _, pattern := range p.skip {
		if filepath.IsAbs(pattern) {
			if path == pattern || strings.HasPrefix(path, pattern+string(os.PathSeparator)) {
				return true
			}
			continue
		}
		if strings.ContainsRune(pattern, os.PathSeparator) {
			if strings.Contains(rel, pattern) {
				return true
			}
			continue
		}
		for _, c := range components {
			if strings.Contains(c, pattern) {
				return true
			}
		}
	}
	return false
}
