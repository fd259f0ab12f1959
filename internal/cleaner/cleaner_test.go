package cleaner

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/filter"
	"github.com/blackwell-systems/devprune/internal/project"
	"github.com/blackwell-systems/devprune/internal/scanner"
	"github.com/blackwell-systems/devprune/internal/trash"
)

// failingFs fails RemoveAll for one path and MkdirAll for another.
type failingFs struct {
	afero.Fs
	failRemove string
	failMkdir  string
}

func (f *failingFs) RemoveAll(path string) error {
	if path == f.failRemove {
		return &os.PathError{Op: "unlinkat", Path: path, Err: os.ErrPermission}
	}
	return f.Fs.RemoveAll(path)
}

func (f *failingFs) MkdirAll(path string, perm os.FileMode) error {
	if path == f.failMkdir {
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrPermission}
	}
	return f.Fs.MkdirAll(path, perm)
}

func put(t *testing.T, fs afero.Fs, path string, size int, mode os.FileMode) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, path, make([]byte, size), mode); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

func putText(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sampleTree(t *testing.T, fs afero.Fs, root string) {
	t.Helper()
	putText(t, fs, filepath.Join(root, "rusty/Cargo.toml"), "[package]\nname = \"rusty\"\n")
	put(t, fs, filepath.Join(root, "rusty/target/debug/a"), 250_000, 0o644)
	put(t, fs, filepath.Join(root, "rusty/target/debug/b"), 250_000, 0o644)
	putText(t, fs, filepath.Join(root, "web/package.json"), `{"name":"web"}`)
	put(t, fs, filepath.Join(root, "web/node_modules/x/index.js"), 300_000, 0o644)
}

func scan(t *testing.T, fs afero.Fs, root string) []project.Project {
	t.Helper()
	res, err := scanner.New(fs, scanner.Options{Filter: project.AllKinds}).Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return res.Projects
}

func newCleaner(t *testing.T, fs afero.Fs, tr Trasher, opts Options) *Cleaner {
	t.Helper()
	c, err := New(fs, tr, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCleanEndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	sampleTree(t, fs, "/src")

	projects := scan(t, fs, "/src")
	if len(projects) != 2 || project.TotalSize(projects) != 800_000 {
		t.Fatalf("scan found %d projects totalling %d", len(projects), project.TotalSize(projects))
	}

	res, err := newCleaner(t, fs, nil, Options{Workers: 2}).Clean(projects)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if res.Succeeded != 2 || len(res.Failed) != 0 || res.TotalBytesFreed != 800_000 {
		t.Errorf("result = succeeded %d failed %v freed %d", res.Succeeded, res.Failed, res.TotalBytesFreed)
	}
	if res.Delta() != 0 {
		t.Errorf("Delta = %d, want 0", res.Delta())
	}
	for _, dir := range []string{"/src/rusty/target", "/src/web/node_modules"} {
		if ok, _ := afero.Exists(fs, dir); ok {
			t.Errorf("%s still exists", dir)
		}
	}
	// Marker files are untouched.
	if ok, _ := afero.Exists(fs, "/src/rusty/Cargo.toml"); !ok {
		t.Error("Cargo.toml was removed")
	}
}

func TestCleanAfterKeepSizeFilter(t *testing.T) {
	fs := afero.NewMemMapFs()
	sampleTree(t, fs, "/src")

	kept, err := filter.New(fs).Apply(scan(t, fs, "/src"), filter.Options{KeepSize: "400KB"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(kept) != 1 || kept[0].Kind != project.Rust {
		t.Fatalf("filtered = %+v, want only the rust project", kept)
	}

	res, err := newCleaner(t, fs, nil, Options{}).Clean(kept)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalBytesFreed != 500_000 {
		t.Errorf("freed %d, want 500000", res.TotalBytesFreed)
	}
	if ok, _ := afero.Exists(fs, "/src/web/node_modules"); !ok {
		t.Error("node_modules should not have been cleaned")
	}
}

func TestCleanPreservesRustExecutable(t *testing.T) {
	fs := afero.NewMemMapFs()
	putText(t, fs, "/app/Cargo.toml", "name = \"app\"")
	put(t, fs, "/app/target/release/app", 1000, 0o755)
	put(t, fs, "/app/target/release/libapp.rlib", 500, 0o644)

	projects := scan(t, fs, "/app")
	res, err := newCleaner(t, fs, nil, Options{KeepExecutables: true}).Clean(projects)
	if err != nil {
		t.Fatal(err)
	}

	preserved := res.Preserved()
	if len(preserved) != 1 {
		t.Fatalf("preserved %d files, want 1: %+v", len(preserved), preserved)
	}
	if preserved[0].Destination != "/app/bin/release/app" {
		t.Errorf("Destination = %s", preserved[0].Destination)
	}
	if ok, _ := afero.Exists(fs, "/app/bin/release/app"); !ok {
		t.Error("executable not copied")
	}
	if ok, _ := afero.Exists(fs, "/app/bin/release/libapp.rlib"); ok {
		t.Error(".rlib should not be preserved")
	}
	if ok, _ := afero.Exists(fs, "/app/target"); ok {
		t.Error("target should be removed after preservation")
	}
}

func TestCleanIsFailIsolated(t *testing.T) {
	base := afero.NewMemMapFs()
	sizes := []int{100, 200, 300, 400}
	var projects []project.Project
	for i, size := range sizes {
		root := filepath.Join("/p", string(rune('a'+i)))
		put(t, base, filepath.Join(root, "node_modules/f"), size, 0o644)
		projects = append(projects, project.Project{
			Kind:     project.Node,
			RootPath: root,
			Build:    project.BuildArtifacts{Path: filepath.Join(root, "node_modules"), Size: int64(size)},
		})
	}
	fs := &failingFs{Fs: base, failRemove: "/p/c/node_modules"}

	res, err := newCleaner(t, fs, nil, Options{Workers: 4}).Clean(projects)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 3 {
		t.Errorf("Succeeded = %d, want 3", res.Succeeded)
	}
	if len(res.Failed) != 1 || res.Failed[0].Path != "/p/c/node_modules" {
		t.Fatalf("Failed = %+v, want /p/c/node_modules", res.Failed)
	}
	if !strings.Contains(res.Failed[0].Reason, "permission") {
		t.Errorf("Reason = %q", res.Failed[0].Reason)
	}
	if res.TotalBytesFreed != 100+200+400 {
		t.Errorf("TotalBytesFreed = %d, want 700", res.TotalBytesFreed)
	}
	if res.Succeeded+len(res.Failed) != len(projects) {
		t.Error("every submitted project must be accounted for")
	}
	if ok, _ := afero.Exists(base, "/p/c/node_modules"); !ok {
		t.Error("the failing project's directory should remain")
	}
}

func TestCleanPreservationFailureSkipsRemoval(t *testing.T) {
	base := afero.NewMemMapFs()
	put(t, base, "/app/target/release/app", 10, 0o755)
	fs := &failingFs{Fs: base, failMkdir: "/app/bin/release"}

	p := project.Project{Kind: project.Rust, RootPath: "/app", Build: project.BuildArtifacts{Path: "/app/target", Size: 10}}
	res, err := newCleaner(t, fs, nil, Options{KeepExecutables: true}).Clean([]project.Project{p})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 0 || len(res.Failed) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Failed[0].Reason, "preserve") {
		t.Errorf("Reason = %q", res.Failed[0].Reason)
	}
	if ok, _ := afero.Exists(base, "/app/target/release/app"); !ok {
		t.Error("build directory must survive a failed preservation")
	}
}

func TestCleanMissingDirectoryIsCleanedZero(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := project.Project{Kind: project.Go, RootPath: "/g", Build: project.BuildArtifacts{Path: "/g/vendor", Size: 42}}

	res, err := newCleaner(t, fs, nil, Options{}).Clean([]project.Project{p})
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 || res.TotalBytesFreed != 0 {
		t.Errorf("result = succeeded %d freed %d", res.Succeeded, res.TotalBytesFreed)
	}
	if res.Delta() != -42 {
		t.Errorf("Delta = %d, want -42", res.Delta())
	}
}

func TestCleanTrashIsRecoverable(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	sampleTree(t, fs, root)
	tr := trash.New(fs, filepath.Join(t.TempDir(), "Trash"), true)

	projects := scan(t, fs, root)
	res, err := newCleaner(t, fs, tr, Options{UseTrash: true}).Clean(projects)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 2 || res.TotalBytesFreed != 800_000 {
		t.Fatalf("result = succeeded %d freed %d failed %v", res.Succeeded, res.TotalBytesFreed, res.Failed)
	}

	for _, out := range res.Outcomes {
		if out.Trashed == nil {
			t.Fatalf("outcome for %s has no trash entry", out.Project.Build.Path)
		}
		if _, err := os.Stat(out.Project.Build.Path); !os.IsNotExist(err) {
			t.Errorf("%s still exists", out.Project.Build.Path)
		}
		if _, err := os.Stat(out.Trashed.Trashed); err != nil {
			t.Errorf("trashed copy missing: %v", err)
		}
		if err := tr.Restore(*out.Trashed); err != nil {
			t.Errorf("Restore: %v", err)
		}
	}

	if info, err := os.Stat(filepath.Join(root, "rusty/target/debug/a")); err != nil || info.Size() != 250_000 {
		t.Errorf("restored file = %v, %v", info, err)
	}
}

type brokenTrash struct{}

func (brokenTrash) Move(path string) (trash.Entry, error) {
	return trash.Entry{}, errors.New("trash is full")
}

func TestCleanTrashFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	put(t, fs, "/w/node_modules/x", 5, 0o644)
	p := project.Project{Kind: project.Node, RootPath: "/w", Build: project.BuildArtifacts{Path: "/w/node_modules", Size: 5}}

	res, err := newCleaner(t, fs, brokenTrash{}, Options{UseTrash: true}).Clean([]project.Project{p})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Reason != "trash is full" {
		t.Errorf("Failed = %+v", res.Failed)
	}
}

func TestNewRequiresTrash(t *testing.T) {
	if _, err := New(afero.NewMemMapFs(), nil, Options{UseTrash: true}); !errors.Is(err, ErrNoTrash) {
		t.Errorf("New error = %v, want ErrNoTrash", err)
	}
}
