// Package preserve copies compiled outputs out of a build directory before
// it is removed.
package preserve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/fsutil"
	"github.com/blackwell-systems/devprune/internal/project"
)

// BinDir is the directory below a project root that receives preserved files.
const BinDir = "bin"

// rustProfiles are the cargo output directories searched for binaries.
var rustProfiles = []string{"release", "debug"}

// rustMetadataExts are cargo outputs that carry the executable bit or sit
// beside binaries but are not programs.
var rustMetadataExts = map[string]bool{
	"d":     true,
	"rmeta": true,
	"rlib":  true,
	"a":     true,
	"so":    true,
	"dylib": true,
	"dll":   true,
	"pdb":   true,
}

// PreservedExecutable records one copied file.
type PreservedExecutable struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Preserve copies the executables of p to <root>/bin. Node and Go projects
// have nothing to preserve. Every candidate is attempted; the returned
// records cover the copies that succeeded and the error joins those that
// did not.
func Preserve(fs afero.Fs, p project.Project) ([]PreservedExecutable, error) {
	switch p.Kind {
	case project.Rust:
		return preserveRust(fs, p)
	case project.Python:
		return preservePython(fs, p)
	default:
		return nil, nil
	}
}

func preserveRust(fs afero.Fs, p project.Project) ([]PreservedExecutable, error) {
	var (
		preserved []PreservedExecutable
		errs      []error
	)

	for _, profile := range rustProfiles {
		profileDir := filepath.Join(p.Build.Path, profile)
		if !fsutil.IsDir(fs, profileDir) {
			continue
		}

		entries, err := afero.ReadDir(fs, profileDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", profileDir, err))
			continue
		}

		dest := filepath.Join(p.RootPath, BinDir, profile)
		for _, entry := range entries {
			if !entry.Mode().IsRegular() || !isRustExecutable(entry) {
				continue
			}
			src := filepath.Join(profileDir, entry.Name())
			rec, err := copyInto(fs, src, dest, entry.Mode())
			if err != nil {
				errs = append(errs, err)
				continue
			}
			preserved = append(preserved, rec)
		}
	}

	return preserved, errors.Join(errs...)
}

func isRustExecutable(info os.FileInfo) bool {
	ext := strings.TrimPrefix(filepath.Ext(info.Name()), ".")
	if rustMetadataExts[ext] {
		return false
	}
	return isExecutable(runtime.GOOS, info)
}

// isExecutable uses the .exe suffix on Windows and any execute bit elsewhere.
func isExecutable(goos string, info os.FileInfo) bool {
	if goos == "windows" {
		return strings.EqualFold(filepath.Ext(info.Name()), ".exe")
	}
	return info.Mode().Perm()&0o111 != 0
}

func preservePython(fs afero.Fs, p project.Project) ([]PreservedExecutable, error) {
	var (
		preserved []PreservedExecutable
		errs      []error
	)
	dest := filepath.Join(p.RootPath, BinDir)

	keep := func(src string, info os.FileInfo) {
		rec, err := copyInto(fs, src, dest, info.Mode())
		if err != nil {
			errs = append(errs, err)
			return
		}
		preserved = append(preserved, rec)
	}

	// Wheels sit directly in dist/.
	distDir := filepath.Join(p.RootPath, "dist")
	if entries, err := afero.ReadDir(fs, distDir); err == nil {
		for _, entry := range entries {
			if entry.Mode().IsRegular() && filepath.Ext(entry.Name()) == ".whl" {
				keep(filepath.Join(distDir, entry.Name()), entry)
			}
		}
	}

	// Compiled extension modules can be nested anywhere under build/.
	buildDir := filepath.Join(p.RootPath, "build")
	if fsutil.IsDir(fs, buildDir) {
		_ = afero.Walk(fs, buildDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || !info.Mode().IsRegular() {
				return nil
			}
			if ext := filepath.Ext(path); ext == ".so" || ext == ".pyd" {
				keep(path, info)
			}
			return nil
		})
	}

	return preserved, errors.Join(errs...)
}

// copyInto copies src into the directory dest, overwriting an earlier copy.
func copyInto(fs afero.Fs, src, dest string, mode os.FileMode) (PreservedExecutable, error) {
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return PreservedExecutable{}, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	target := filepath.Join(dest, filepath.Base(src))
	if err := fsutil.CopyFile(fs, src, target, mode); err != nil {
		return PreservedExecutable{}, err
	}
	return PreservedExecutable{Source: src, Destination: target}, nil
}
