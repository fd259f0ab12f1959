// Package fsutil holds the filesystem primitives shared by the scanner,
// preserver, cleaner and trash packages. Everything operates on an afero.Fs
// so the pipeline can run against an in-memory tree in tests.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirSize returns the total size in bytes of every regular file below path.
// Unreadable entries, broken links and files that vanish mid-walk count as
// zero. A missing path yields 0.
func DirSize(fs afero.Fs, path string) int64 {
	var total int64
	_ = afero.Walk(fs, path, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Exists reports whether path exists. Stat errors other than "not found"
// are treated as existing, so callers never overwrite something they could
// not inspect.
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// IsDir reports whether path exists and is a directory.
func IsDir(fs afero.Fs, path string) bool {
	ok, err := afero.DirExists(fs, path)
	return err == nil && ok
}

// IsFile reports whether path exists and is not a directory.
func IsFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

// CopyFile copies src to dst, overwriting an existing file and applying mode.
func CopyFile(fs afero.Fs, src, dst string, mode os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	// An earlier copy may be read-only.
	if info, err := fs.Stat(dst); err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o200 == 0 {
		if err := fs.Chmod(dst, info.Mode().Perm()|0o200); err != nil {
			return fmt.Errorf("failed to make %s writable: %w", dst, err)
		}
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	// OpenFile keeps the mode of an existing file and applies the umask to a new one.
	if err := fs.Chmod(dst, mode.Perm()); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", dst, err)
	}
	return nil
}

// CopyTree recursively copies the directory src to dst. Symlinks are
// recreated when the filesystem supports them and skipped otherwise.
func CopyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return fs.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(fs, path, target)
		case info.Mode().IsRegular():
			return CopyFile(fs, path, target, info.Mode())
		default:
			// sockets, devices and pipes have no place in a build directory
			return nil
		}
	})
}

func copySymlink(fs afero.Fs, path, target string) error {
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return nil
	}
	linker, ok := fs.(afero.Linker)
	if !ok {
		return nil
	}
	dest, err := reader.ReadlinkIfPossible(path)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", path, err)
	}
	return linker.SymlinkIfPossible(dest, target)
}
