package detect

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/fsutil"
)

// PythonMarkers are the files that identify a Python project root.
var PythonMarkers = []string{
	"requirements.txt",
	"setup.py",
	"pyproject.toml",
	"setup.cfg",
	"Pipfile",
	"Pipfile.lock",
	"poetry.lock",
	"pdm.lock",
	"uv.lock",
}

// PythonBuildDirs are the cache and environment directories a Python project
// may own. The order breaks size ties.
var PythonBuildDirs = []string{
	"__pycache__",
	".pytest_cache",
	"venv",
	".venv",
	"build",
	"dist",
	".eggs",
	".tox",
	".mypy_cache",
}

func detectPython(fs afero.Fs, dir string) (match, bool, []string) {
	if !hasAnyFile(fs, dir, PythonMarkers) {
		return match{}, false, nil
	}

	// Only the largest candidate is reported.
	best := ""
	var bestSize int64 = -1
	for _, name := range PythonBuildDirs {
		candidate := filepath.Join(dir, name)
		if !fsutil.IsDir(fs, candidate) {
			continue
		}
		if size := fsutil.DirSize(fs, candidate); size > bestSize {
			best, bestSize = candidate, size
		}
	}
	if best == "" {
		return match{}, false, nil
	}

	name := pythonName(fs, dir)
	if name == "" {
		name = filepath.Base(dir)
	}
	return match{buildPath: best, name: name}, true, nil
}

func hasAnyFile(fs afero.Fs, dir string, names []string) bool {
	for _, name := range names {
		if fsutil.IsFile(fs, filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}
