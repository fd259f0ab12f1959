package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("devprune", pflag.ContinueOnError)
	fs.String("project-type", "all", "")
	fs.String("dir", ".", "")
	fs.String("keep-size", "0", "")
	fs.Int("keep-days", 0, "")
	fs.String("sort", "size", "")
	fs.Bool("reverse", false, "")
	fs.Int("threads", 0, "")
	fs.Bool("verbose", false, "")
	fs.StringSlice("skip", nil, "")
	fs.Bool("keep-executables", false, "")
	fs.Bool("interactive", false, "")
	fs.Bool("dry-run", false, "")
	fs.Bool("permanent", false, "")
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDir_XDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != filepath.Join("/custom/config", "devprune") {
		t.Errorf("Dir() = %q", dir)
	}
}

func TestDir_DefaultsToHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != filepath.Join(home, ".config", "devprune") {
		t.Errorf("Dir() = %q", dir)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.ProjectType != "all" || s.Dir != "." {
		t.Errorf("unexpected top-level defaults: %+v", s)
	}
	if s.Filtering.KeepSize != "0" || s.Filtering.KeepDays != 0 || s.Filtering.Sort != "size" {
		t.Errorf("unexpected filtering defaults: %+v", s.Filtering)
	}
	if !s.Execution.UseTrash {
		t.Error("use_trash should default to true")
	}
	if s.Execution.DryRun || s.Execution.KeepExecutables || s.Execution.Interactive {
		t.Errorf("unexpected execution defaults: %+v", s.Execution)
	}
}

func TestLoad_DefaultFileFromConfigDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	if err := os.MkdirAll(filepath.Join(base, "devprune"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "devprune", FileName), []byte("project_type = \"rust\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.ProjectType != "rust" {
		t.Errorf("ProjectType = %q, want rust", s.ProjectType)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
project_type = "node"
dir = "/work"

[filtering]
keep_size = "50MB"
keep_days = 14
sort = "age"
reverse = true

[scanning]
threads = 8
verbose = true
skip = ["archive", "third_party"]

[execution]
keep_executables = true
interactive = true
dry_run = true
use_trash = false
`)

	s, err := Load(path, testFlags())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if s.ProjectType != "node" || s.Dir != "/work" {
		t.Errorf("top-level = %+v", s)
	}
	if s.Filtering != (Filtering{KeepSize: "50MB", KeepDays: 14, Sort: "age", Reverse: true}) {
		t.Errorf("Filtering = %+v", s.Filtering)
	}
	if s.Scanning.Threads != 8 || !s.Scanning.Verbose || len(s.Scanning.Skip) != 2 {
		t.Errorf("Scanning = %+v", s.Scanning)
	}
	if s.Execution != (Execution{KeepExecutables: true, Interactive: true, DryRun: true, UseTrash: false}) {
		t.Errorf("Execution = %+v", s.Execution)
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
[filtering]
keep_size = "50MB"
keep_days = 14

[scanning]
threads = 8
`)

	flags := testFlags()
	if err := flags.Parse([]string{"--keep-size", "1GB", "--skip", "a,b", "--dry-run"}); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Filtering.KeepSize != "1GB" {
		t.Errorf("KeepSize = %q, want flag value 1GB", s.Filtering.KeepSize)
	}
	if s.Filtering.KeepDays != 14 {
		t.Errorf("KeepDays = %d, want file value 14", s.Filtering.KeepDays)
	}
	if s.Scanning.Threads != 8 {
		t.Errorf("Threads = %d, want file value 8", s.Scanning.Threads)
	}
	if len(s.Scanning.Skip) != 2 || s.Scanning.Skip[0] != "a" || s.Scanning.Skip[1] != "b" {
		t.Errorf("Skip = %v, want [a b]", s.Scanning.Skip)
	}
	if !s.Execution.DryRun {
		t.Error("DryRun should come from the flag")
	}
}

func TestLoad_PermanentDisablesTrash(t *testing.T) {
	path := writeConfig(t, "[execution]\nuse_trash = true\n")
	flags := testFlags()
	if err := flags.Parse([]string{"--permanent"}); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Execution.UseTrash {
		t.Error("--permanent should force use_trash = false")
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "this is = = not toml [")
	if _, err := Load(path, nil); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestLoad_TildeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "dir = \"~/code\"\n[scanning]\nskip = [\"~/code/archive\", \"tmp\"]\n")

	s, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Dir != filepath.Join(home, "code") {
		t.Errorf("Dir = %q", s.Dir)
	}
	if s.Scanning.Skip[0] != filepath.Join(home, "code", "archive") || s.Scanning.Skip[1] != "tmp" {
		t.Errorf("Skip = %v", s.Scanning.Skip)
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"~", "/h"},
		{"~/x", filepath.Join("/h", "x")},
		{"/abs", "/abs"},
		{"rel/~", "rel/~"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in, "/h"); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
