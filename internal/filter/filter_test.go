package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/blackwell-systems/devprune/internal/project"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestFilter(t *testing.T, ages map[string]int) *Filter {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, days := range ages {
		if err := fs.MkdirAll(path, 0o755); err != nil {
			t.Fatal(err)
		}
		mtime := now.AddDate(0, 0, -days)
		if err := fs.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	f := New(fs)
	f.now = func() time.Time { return now }
	return f
}

func proj(kind project.Kind, name, build string, size int64) project.Project {
	return project.Project{Kind: kind, Name: name, RootPath: "/r/" + name, Build: project.BuildArtifacts{Path: build, Size: size}}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"42", 42, false},
		{"400KB", 400_000, false},
		{"1MB", 1_000_000, false},
		{"1 MiB", 1 << 20, false},
		{"1.5GB", 1_500_000_000, false},
		{"lots", 0, true},
		{"12XB", 0, true},
		{"10EB", 0, true},
		{"9223372036854775808", 0, true},
		{"9EB", 9_000_000_000_000_000_000, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestApplyZeroThresholdsKeepsEverything(t *testing.T) {
	f := newTestFilter(t, nil)
	in := []project.Project{
		proj(project.Rust, "a", "/a/target", 10),
		proj(project.Node, "b", "/b/node_modules", 30),
		proj(project.Go, "c", "/c/vendor", 20),
	}

	got, err := f.Apply(in, Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("Apply dropped projects: %+v", got)
	}
	members := map[string]bool{}
	for _, p := range got {
		members[p.Name] = true
	}
	for _, p := range in {
		if !members[p.Name] {
			t.Errorf("project %s missing from result", p.Name)
		}
	}
	// Input order must not be disturbed.
	if in[0].Name != "a" || in[1].Name != "b" || in[2].Name != "c" {
		t.Error("Apply modified its input slice")
	}
}

func TestApplyKeepSize(t *testing.T) {
	f := newTestFilter(t, nil)
	in := []project.Project{
		proj(project.Rust, "rusty", "/rusty/target", 500_000),
		proj(project.Node, "web", "/web/node_modules", 300_000),
	}

	got, err := f.Apply(in, Options{KeepSize: "400KB"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 1 || got[0].Name != "rusty" {
		t.Fatalf("Apply = %+v, want only rusty", got)
	}

	// The threshold is inclusive.
	got, err = f.Apply(in, Options{KeepSize: "300000"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Apply(300000) kept %d projects, want 2", len(got))
	}
}

func TestApplyInvalidSize(t *testing.T) {
	f := newTestFilter(t, nil)
	if _, err := f.Apply(nil, Options{KeepSize: "huge"}); err == nil {
		t.Error("expected error for invalid size")
	}
	oversized := []project.Project{proj(project.Rust, "a", "/a/target", 10)}
	if got, err := f.Apply(oversized, Options{KeepSize: "10EB"}); err == nil {
		t.Errorf("expected error for a threshold beyond int64, kept %+v", got)
	}
	if _, err := f.Apply(nil, Options{KeepDays: -1}); err == nil {
		t.Error("expected error for negative keep-days")
	}
}

func TestApplyKeepDays(t *testing.T) {
	f := newTestFilter(t, map[string]int{
		"/old/target":   30,
		"/fresh/target": 2,
		"/edge/target":  7,
	})
	in := []project.Project{
		proj(project.Rust, "old", "/old/target", 1),
		proj(project.Rust, "fresh", "/fresh/target", 1),
		proj(project.Rust, "edge", "/edge/target", 1),
		// no directory on disk: metadata unreadable, kept
		proj(project.Rust, "ghost", "/ghost/target", 1),
	}

	got, err := f.Apply(in, Options{KeepDays: 7, Sort: project.SortByName})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	var names []string
	for _, p := range got {
		names = append(names, p.Name)
	}
	want := []string{"edge", "ghost", "old"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("kept %v, want %v", names, want)
	}
}

func TestSort(t *testing.T) {
	f := newTestFilter(t, map[string]int{
		"/a/target":       5,
		"/b/node_modules": 50,
		"/c/vendor":       10,
	})
	base := []project.Project{
		proj(project.Go, "c", "/c/vendor", 20),
		proj(project.Rust, "a", "/a/target", 10),
		proj(project.Node, "B", "/b/node_modules", 30),
	}

	tests := []struct {
		key     project.SortKey
		reverse bool
		want    []string
	}{
		{project.SortBySize, false, []string{"B", "c", "a"}},
		{"", false, []string{"B", "c", "a"}},
		{project.SortBySize, true, []string{"a", "c", "B"}},
		{project.SortByName, false, []string{"a", "B", "c"}},
		{project.SortByType, false, []string{"a", "B", "c"}},
		{project.SortByAge, false, []string{"B", "c", "a"}},
		{project.SortByAge, true, []string{"a", "c", "B"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			projects := append([]project.Project(nil), base...)
			if err := f.Sort(projects, tt.key, tt.reverse); err != nil {
				t.Fatalf("Sort: %v", err)
			}
			var names []string
			for _, p := range projects {
				names = append(names, p.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Sort(%q, reverse=%v) = %v, want %v", tt.key, tt.reverse, names, tt.want)
			}
		})
	}

	if err := f.Sort(base, "weight", false); err == nil {
		t.Error("expected error for unknown sort key")
	}
}

func TestSortIsStable(t *testing.T) {
	f := newTestFilter(t, nil)
	projects := []project.Project{
		proj(project.Rust, "first", "/1", 10),
		proj(project.Rust, "second", "/2", 10),
		proj(project.Rust, "third", "/3", 10),
	}
	if err := f.Sort(projects, project.SortBySize, false); err != nil {
		t.Fatal(err)
	}
	if projects[0].Name != "first" || projects[1].Name != "second" || projects[2].Name != "third" {
		t.Errorf("equal sizes reordered: %+v", projects)
	}
}
