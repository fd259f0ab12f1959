package detect

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
)

// cargoName returns the first quoted value on a line of the form
// `name = "..."`. The manifest is not parsed as TOML.
func cargoName(fs afero.Fs, manifest string) (string, string) {
	data, err := afero.ReadFile(fs, manifest)
	if err != nil {
		return "", fmt.Sprintf("Error reading %s: %v", manifest, err)
	}
	return quotedNameLine(string(data)), ""
}

// quotedNameLine finds the first `name ... = "value"` line and returns value.
func quotedNameLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "name") || !strings.Contains(line, "=") {
			continue
		}
		start := strings.IndexAny(line, `"'`)
		end := strings.LastIndexAny(line, `"'`)
		if start >= 0 && end > start {
			return line[start+1 : end]
		}
	}
	return ""
}

func packageJSONName(fs afero.Fs, manifest string) (string, string) {
	data, err := afero.ReadFile(fs, manifest)
	if err != nil {
		return "", fmt.Sprintf("Error reading %s: %v", manifest, err)
	}

	var pkg struct {
		Name any `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Sprintf("Error parsing %s: %v", manifest, err)
	}
	name, _ := pkg.Name.(string)
	return name, ""
}

// goModuleName returns the last path element of the module declaration.
func goModuleName(fs afero.Fs, gomod string) (string, string) {
	data, err := afero.ReadFile(fs, gomod)
	if err != nil {
		return "", fmt.Sprintf("Error reading %s: %v", gomod, err)
	}
	mod := modfile.ModulePath(data)
	if mod == "" {
		return "", ""
	}
	return path.Base(mod), ""
}

var (
	setupPyName  = regexp.MustCompile(`name\s*=\s*["']([^"']+)["']`)
	setupCfgName = regexp.MustCompile(`^name\s*=\s*(\S+)`)
)

// pythonName tries pyproject.toml, setup.py and setup.cfg in turn.
func pythonName(fs afero.Fs, dir string) string {
	if data, err := afero.ReadFile(fs, filepath.Join(dir, "pyproject.toml")); err == nil {
		if name := quotedNameLine(string(data)); name != "" {
			return name
		}
	}

	if data, err := afero.ReadFile(fs, filepath.Join(dir, "setup.py")); err == nil {
		if m := setupPyName.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}

	if data, err := afero.ReadFile(fs, filepath.Join(dir, "setup.cfg")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if m := setupCfgName.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				return m[1]
			}
		}
	}

	return ""
}
