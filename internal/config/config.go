// Package config loads devprune settings from the config file and command
// line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in Dir.
const FileName = "config.toml"

// Dir returns the devprune config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/devprune if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "devprune"), nil
}

// Settings is the resolved configuration for one run.
type Settings struct {
	ProjectType string    `mapstructure:"project_type"`
	Dir         string    `mapstructure:"dir"`
	Filtering   Filtering `mapstructure:"filtering"`
	Scanning    Scanning  `mapstructure:"scanning"`
	Execution   Execution `mapstructure:"execution"`
}

type Filtering struct {
	KeepSize string `mapstructure:"keep_size"`
	KeepDays int    `mapstructure:"keep_days"`
	Sort     string `mapstructure:"sort"`
	Reverse  bool   `mapstructure:"reverse"`
}

type Scanning struct {
	Threads int      `mapstructure:"threads"`
	Verbose bool     `mapstructure:"verbose"`
	Skip    []string `mapstructure:"skip"`
}

type Execution struct {
	KeepExecutables bool `mapstructure:"keep_executables"`
	Interactive     bool `mapstructure:"interactive"`
	DryRun          bool `mapstructure:"dry_run"`
	UseTrash        bool `mapstructure:"use_trash"`
}

// FlagBindings maps config keys to the command line flags that override them.
var FlagBindings = map[string]string{
	"project_type":               "project-type",
	"dir":                        "dir",
	"filtering.keep_size":        "keep-size",
	"filtering.keep_days":        "keep-days",
	"filtering.sort":             "sort",
	"filtering.reverse":          "reverse",
	"scanning.threads":           "threads",
	"scanning.verbose":           "verbose",
	"scanning.skip":              "skip",
	"execution.keep_executables": "keep-executables",
	"execution.interactive":      "interactive",
	"execution.dry_run":          "dry-run",
}

// PermanentFlag disables trash removal when set.
const PermanentFlag = "permanent"

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_type", "all")
	v.SetDefault("dir", ".")
	v.SetDefault("filtering.keep_size", "0")
	v.SetDefault("filtering.keep_days", 0)
	v.SetDefault("filtering.sort", "size")
	v.SetDefault("filtering.reverse", false)
	v.SetDefault("scanning.threads", 0)
	v.SetDefault("scanning.verbose", false)
	v.SetDefault("scanning.skip", []string{})
	v.SetDefault("execution.keep_executables", false)
	v.SetDefault("execution.interactive", false)
	v.SetDefault("execution.dry_run", false)
	v.SetDefault("execution.use_trash", true)
}

// Load resolves settings with the precedence: flag explicitly set on the
// command line, then the config file, then the built-in default.
//
// An empty file selects Dir()/config.toml, which may be absent. A file that
// is named explicitly must exist. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	path, required, err := configPath(file)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := readFile(v, path, required); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for key, name := range FlagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
		if f := flags.Lookup(PermanentFlag); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("execution.use_trash", false)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	home, _ := os.UserHomeDir()
	s.Dir = ExpandHome(s.Dir, home)
	for i, p := range s.Scanning.Skip {
		s.Scanning.Skip[i] = ExpandHome(p, home)
	}
	return &s, nil
}

func configPath(file string) (string, bool, error) {
	if file != "" {
		return file, true, nil
	}
	dir, err := Dir()
	if err != nil {
		// Without a home directory there is no default file to read.
		return "", false, nil
	}
	return filepath.Join(dir, FileName), false, nil
}

func readFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ExpandHome replaces a leading ~ with home.
func ExpandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(home, path[2:])
	}
	return path
}
