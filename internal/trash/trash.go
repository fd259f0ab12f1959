// Package trash moves directories into a recoverable holding area and back.
//
// On Linux and the BSDs the freedesktop.org layout is used
// ($XDG_DATA_HOME/Trash with files/ and info/), on macOS ~/.Trash, and on
// Windows an application-local trash under %LOCALAPPDATA%.
package trash

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/fsutil"
)

// ErrOriginalExists is returned by Restore when something already occupies
// the original location.
var ErrOriginalExists = errors.New("original path already exists")

const infoTimeLayout = "2006-01-02T15:04:05"

// Entry describes one trashed directory.
type Entry struct {
	Original  string    `json:"original"`
	Trashed   string    `json:"trashed"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Trash is a trash location on a filesystem.
type Trash struct {
	fs    afero.Fs
	files string
	info  string // empty when the layout keeps no metadata files
	now   func() time.Time
}

// New returns a trash rooted at dir. With withInfo set, the freedesktop
// layout is used: entries go to dir/files and a .trashinfo record is
// written to dir/info. Otherwise entries are placed directly in dir.
func New(fs afero.Fs, dir string, withInfo bool) *Trash {
	t := &Trash{fs: fs, files: dir, now: time.Now}
	if withInfo {
		t.files = filepath.Join(dir, "files")
		t.info = filepath.Join(dir, "info")
	}
	return t
}

// Default returns the platform trash for the current user on the OS filesystem.
func Default() (*Trash, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	dir, withInfo := location(runtime.GOOS, home, os.Getenv)
	return New(afero.NewOsFs(), dir, withInfo), nil
}

// location resolves the trash directory for goos.
func location(goos, home string, getenv func(string) string) (string, bool) {
	switch goos {
	case "darwin":
		return filepath.Join(home, ".Trash"), false
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "devprune", "Trash"), false
	default:
		data := getenv("XDG_DATA_HOME")
		if data == "" {
			data = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(data, "Trash"), true
	}
}

// Dir returns the directory trashed entries are moved into.
func (t *Trash) Dir() string {
	return t.files
}

// Move relocates path into the trash under a unique name.
func (t *Trash) Move(path string) (Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := t.fs.MkdirAll(t.files, 0o700); err != nil {
		return Entry{}, fmt.Errorf("failed to create trash directory: %w", err)
	}

	name := filepath.Base(abs) + "." + uuid.NewString()[:8]
	entry := Entry{
		Original:  abs,
		Trashed:   filepath.Join(t.files, name),
		DeletedAt: t.now(),
	}

	if t.info != "" {
		if err := t.writeInfo(name, entry); err != nil {
			return Entry{}, err
		}
	}

	if err := t.move(abs, entry.Trashed); err != nil {
		if t.info != "" {
			_ = t.fs.Remove(t.infoPath(name))
		}
		return Entry{}, fmt.Errorf("failed to move %s to trash: %w", abs, err)
	}
	return entry, nil
}

// Restore moves a trashed entry back to its original location.
func (t *Trash) Restore(e Entry) error {
	if fsutil.Exists(t.fs, e.Original) {
		return fmt.Errorf("%w: %s", ErrOriginalExists, e.Original)
	}
	if !fsutil.Exists(t.fs, e.Trashed) {
		return fmt.Errorf("trashed copy %s no longer exists", e.Trashed)
	}
	if err := t.fs.MkdirAll(filepath.Dir(e.Original), 0o755); err != nil {
		return fmt.Errorf("failed to recreate parent of %s: %w", e.Original, err)
	}
	if err := t.move(e.Trashed, e.Original); err != nil {
		return fmt.Errorf("failed to restore %s: %w", e.Original, err)
	}
	if t.info != "" {
		_ = t.fs.Remove(t.infoPath(filepath.Base(e.Trashed)))
	}
	return nil
}

// move renames src to dst, copying across filesystems when a rename is not
// possible.
func (t *Trash) move(src, dst string) error {
	err := t.fs.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := fsutil.CopyTree(t.fs, src, dst); err != nil {
		_ = t.fs.RemoveAll(dst)
		return err
	}
	return t.fs.RemoveAll(src)
}

func (t *Trash) infoPath(name string) string {
	return filepath.Join(t.info, name+".trashinfo")
}

func (t *Trash) writeInfo(name string, e Entry) error {
	if err := t.fs.MkdirAll(t.info, 0o700); err != nil {
		return fmt.Errorf("failed to create trash info directory: %w", err)
	}
	body := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: filepath.ToSlash(e.Original)}).EscapedPath(),
		e.DeletedAt.Format(infoTimeLayout))

	f, err := t.fs.OpenFile(t.infoPath(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create trash info for %s: %w", e.Original, err)
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return fmt.Errorf("failed to write trash info for %s: %w", e.Original, err)
	}
	return f.Close()
}
