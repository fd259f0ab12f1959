package project

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies the ecosystem a project belongs to.
type Kind int

const (
	Rust Kind = iota
	Node
	Python
	Go
)

// Kinds lists every supported ecosystem in detection priority order.
var Kinds = []Kind{Rust, Node, Python, Go}

// String returns the lowercase ecosystem name used in flags, config and JSON.
func (k Kind) String() string {
	switch k {
	case Rust:
		return "rust"
	case Node:
		return "node"
	case Python:
		return "python"
	case Go:
		return "go"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Icon returns the short marker shown next to a project in listings.
func (k Kind) Icon() string {
	switch k {
	case Rust:
		return "🦀"
	case Node:
		return "📦"
	case Python:
		return "🐍"
	case Go:
		return "🐹"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON reports carry the name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind converts an ecosystem name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rust":
		return Rust, nil
	case "node", "nodejs", "node.js":
		return Node, nil
	case "python", "py":
		return Python, nil
	case "go", "golang":
		return Go, nil
	default:
		return 0, fmt.Errorf("unknown project type %q: must be one of: rust, node, python, go", s)
	}
}

// Filter restricts scanning to a subset of ecosystems.
// The zero value allows every ecosystem.
type Filter struct {
	only *Kind
}

// AllKinds is the filter that accepts every ecosystem.
var AllKinds = Filter{}

// Only returns a filter that accepts a single ecosystem.
func Only(k Kind) Filter {
	return Filter{only: &k}
}

// ParseFilter parses "all" or an ecosystem name.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return AllKinds, nil
	}
	k, err := ParseKind(s)
	if err != nil {
		return Filter{}, err
	}
	return Only(k), nil
}

// Allows reports whether projects of kind k should be considered.
func (f Filter) Allows(k Kind) bool {
	return f.only == nil || *f.only == k
}

// String returns "all" or the single ecosystem name.
func (f Filter) String() string {
	if f.only == nil {
		return "all"
	}
	return f.only.String()
}

// BuildArtifacts describes the cleanable directory of a project.
type BuildArtifacts struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Detected is a classified project whose build directory has not been
// measured yet. Only the scanner creates Detected values.
type Detected struct {
	Kind      Kind
	RootPath  string
	BuildPath string
	Name      string // empty when no name could be extracted
}

// WithSize produces the sized snapshot of a detected project.
func (d Detected) WithSize(size int64) Project {
	return Project{
		Kind:     d.Kind,
		RootPath: d.RootPath,
		Build:    BuildArtifacts{Path: d.BuildPath, Size: size},
		Name:     d.Name,
	}
}

// Project is a detected project with a measured build directory.
// Values are treated as immutable once returned by the scanner.
type Project struct {
	Kind     Kind           `json:"type"`
	RootPath string         `json:"root_path"`
	Build    BuildArtifacts `json:"build_artifacts"`
	Name     string         `json:"name,omitempty"`
}

// DisplayName returns the project name, falling back to the root directory name.
func (p Project) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return filepath.Base(p.RootPath)
}

// String renders the project the way listings show it.
func (p Project) String() string {
	if p.Name != "" {
		return fmt.Sprintf("%s %s (%s)", p.Kind.Icon(), p.Name, p.RootPath)
	}
	return fmt.Sprintf("%s %s", p.Kind.Icon(), p.RootPath)
}
