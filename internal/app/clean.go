package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devprune/internal/cleaner"
	"github.com/blackwell-systems/devprune/internal/config"
	"github.com/blackwell-systems/devprune/internal/filter"
	"github.com/blackwell-systems/devprune/internal/logger"
	"github.com/blackwell-systems/devprune/internal/output"
	"github.com/blackwell-systems/devprune/internal/project"
	"github.com/blackwell-systems/devprune/internal/scanner"
	"github.com/blackwell-systems/devprune/internal/trash"
)

var (
	cleanFlagYes  bool
	cleanFlagJSON bool
)

// onlyFlags maps the single-ecosystem shortcut flags to their kind.
var onlyFlags = map[string]project.Kind{
	"rust-only":   project.Rust,
	"node-only":   project.Node,
	"python-only": project.Python,
	"go-only":     project.Go,
}

func registerCleanFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	// Bound to config keys; defaults here only matter when no config is loaded.
	f.StringP("project-type", "p", "all", "Project type to clean: all, rust, node, python, go")
	f.String("dir", ".", "Directory to scan (the positional argument wins)")
	f.StringP("keep-size", "s", "0", "Only clean build directories at least this big (e.g. 100MB)")
	f.IntP("keep-days", "d", 0, "Only clean projects whose build directory is at least this many days old")
	f.String("sort", "size", "Sort order: size, name, age, type")
	f.Bool("reverse", false, "Reverse the sort order")
	f.IntP("threads", "t", 0, "Worker threads (0 uses every CPU)")
	f.BoolP("verbose", "v", false, "Show scan diagnostics and debug logging")
	f.StringSlice("skip", nil, "Skip directories matching these patterns (repeatable)")
	f.BoolP("keep-executables", "k", false, "Copy compiled executables to <project>/bin before cleaning")
	f.BoolP("interactive", "i", false, "Choose projects from a numbered list")
	f.Bool("dry-run", false, "Show what would be cleaned without removing anything")
	f.Bool(config.PermanentFlag, false, "Delete build directories instead of moving them to the trash")

	for name, kind := range onlyFlags {
		f.Bool(name, false, fmt.Sprintf("Only clean %s projects", kind))
	}
	cmd.MarkFlagsMutuallyExclusive("project-type", "rust-only", "node-only", "python-only", "go-only")

	f.BoolVarP(&cleanFlagYes, "yes", "y", false, "Skip the confirmation prompt")
	f.BoolVar(&cleanFlagJSON, "json", false, "Print a JSON report instead of tables")
}

// plan is a fully validated clean invocation. Everything that can fail on
// bad input is resolved here, before the filesystem is touched.
type plan struct {
	root        string
	scan        scanner.Options
	filtering   filter.Options
	clean       cleaner.Options
	interactive bool
	dryRun      bool
	verbose     bool
}

func runClean(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger.Init(settings.Scanning.Verbose, nil)

	p, err := newPlan(settings, args, onlyKind(cmd))
	if err != nil {
		return err
	}
	if cleanFlagJSON && !p.dryRun && (p.interactive || !cleanFlagYes) {
		return errors.New("--json needs --dry-run or --yes, and cannot be combined with --interactive")
	}

	fs := afero.NewOsFs()

	projects, err := scanAndFilter(fs, p)
	if err != nil {
		return err
	}

	if p.dryRun {
		if cleanFlagJSON {
			return output.NewReport(output.ModeDryRun, p.root, projects).WriteJSON(os.Stdout)
		}
		fmt.Print(output.RenderProjectTable(projects, false))
		if len(projects) > 0 {
			fmt.Println()
			fmt.Print(output.RenderProjectSummary(projects))
			fmt.Println("\nDry-run mode: nothing was removed.")
		}
		return nil
	}

	if len(projects) == 0 {
		if cleanFlagJSON {
			return output.NewReport(output.ModeCleaned, p.root, projects).WriteJSON(os.Stdout)
		}
		fmt.Print(output.RenderProjectTable(projects, false))
		return nil
	}

	in := bufio.NewReader(os.Stdin)
	selected := projects
	switch {
	case p.interactive:
		fmt.Print(output.RenderProjectTable(projects, true))
		fmt.Println()
		selected, err = promptSelection(in, os.Stdout, projects)
		if err != nil {
			return err
		}
	case !cleanFlagYes:
		fmt.Print(output.RenderProjectTable(projects, false))
		fmt.Println()
		fmt.Print(output.RenderProjectSummary(projects))
		if !confirmClean(in, os.Stdout, selected, p.clean.UseTrash) {
			selected = nil
		}
	}
	if len(selected) == 0 {
		fmt.Println("Clean cancelled.")
		return nil
	}

	return cleanSelected(fs, p, selected)
}

// newPlan validates settings and resolves the scan root.
func newPlan(s *config.Settings, args []string, only *project.Kind) (*plan, error) {
	kinds, err := project.ParseFilter(s.ProjectType)
	if err != nil {
		return nil, fmt.Errorf("invalid project type: %w", err)
	}
	if only != nil {
		kinds = project.Only(*only)
	}

	sortKey, err := project.ParseSortKey(s.Filtering.Sort)
	if err != nil {
		return nil, err
	}
	if _, err := filter.ParseSize(s.Filtering.KeepSize); err != nil {
		return nil, err
	}
	if s.Filtering.KeepDays < 0 {
		return nil, fmt.Errorf("invalid keep-days %d: must not be negative", s.Filtering.KeepDays)
	}
	if s.Scanning.Threads < 0 {
		return nil, fmt.Errorf("invalid threads %d: must not be negative", s.Scanning.Threads)
	}

	dir := s.Dir
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := resolveRoot(dir)
	if err != nil {
		return nil, err
	}

	return &plan{
		root: root,
		scan: scanner.Options{
			Filter:  kinds,
			Skip:    resolveSkip(s.Scanning.Skip),
			Workers: s.Scanning.Threads,
		},
		filtering: filter.Options{
			KeepSize: s.Filtering.KeepSize,
			KeepDays: s.Filtering.KeepDays,
			Sort:     sortKey,
			Reverse:  s.Filtering.Reverse,
		},
		clean: cleaner.Options{
			Workers:         s.Scanning.Threads,
			KeepExecutables: s.Execution.KeepExecutables,
			UseTrash:        s.Execution.UseTrash,
		},
		interactive: s.Execution.Interactive,
		dryRun:      s.Execution.DryRun,
		verbose:     s.Scanning.Verbose,
	}, nil
}

// resolveRoot returns the absolute, symlink-free form of dir.
func resolveRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", scanner.ErrRootUnreadable, dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", scanner.ErrRootUnreadable, abs, err)
	}
	return resolved, nil
}

// resolveSkip resolves symlinks in absolute skip patterns the way the root
// is resolved, so they still match below it. Patterns that do not resolve
// are kept as given.
func resolveSkip(patterns []string) []string {
	resolved := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if filepath.IsAbs(pattern) {
			if resolvedPath, err := filepath.EvalSymlinks(pattern); err == nil {
				pattern = resolvedPath
			}
		}
		resolved = append(resolved, pattern)
	}
	return resolved
}

// onlyKind returns the kind named by a set --<kind>-only flag, if any.
func onlyKind(cmd *cobra.Command) *project.Kind {
	for name, kind := range onlyFlags {
		if set, _ := cmd.Flags().GetBool(name); set {
			k := kind
			return &k
		}
	}
	return nil
}

func scanAndFilter(fs afero.Fs, p *plan) ([]project.Project, error) {
	opts := p.scan
	var progress *output.ScanProgress
	if !cleanFlagJSON {
		progress = output.NewScanProgress(os.Stderr, p.root)
		opts.Progress = progress.Update
	}

	start := time.Now()
	res, err := scanner.New(fs, opts).Scan(p.root)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("root", p.root).
		Int("projects", len(res.Projects)).
		Dur("elapsed", time.Since(start)).
		Msg("scan complete")
	if p.verbose {
		for _, d := range res.Diagnostics {
			logger.Warn().Msg(d)
		}
		if res.Dropped > 0 {
			logger.Warn().Int("dropped", res.Dropped).Msg("further diagnostics suppressed")
		}
	}

	return filter.New(fs).Apply(res.Projects, p.filtering)
}

func cleanSelected(fs afero.Fs, p *plan, selected []project.Project) error {
	var t cleaner.Trasher
	if p.clean.UseTrash {
		tr, err := trash.Default()
		if err != nil {
			return err
		}
		logger.Debug().Str("trash", tr.Dir()).Msg("using trash")
		t = tr
	}

	c, err := cleaner.New(fs, t, p.clean)
	if err != nil {
		return err
	}

	freeBefore, haveBefore := freeSpace(p.root)
	started := time.Now()

	var spinner *output.Spinner
	if !cleanFlagJSON {
		spinner = output.NewSpinner(fmt.Sprintf("Cleaning %d %s", len(selected), pluralize(len(selected), "project", "projects")))
		spinner.Start()
	}
	result, err := c.Clean(selected)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	for _, f := range result.Failed {
		logger.Debug().Str("path", f.Path).Str("reason", f.Reason).Msg("clean failed")
	}
	logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Int64("freed", result.TotalBytesFreed).
		Dur("elapsed", time.Since(started)).
		Msg("clean complete")

	runID := recordRun(p.root, started, result, p.clean.UseTrash)

	if cleanFlagJSON {
		report := output.NewReport(output.ModeCleaned, p.root, selected)
		report.Result = result
		report.RunID = runID
		return report.WriteJSON(os.Stdout)
	}

	fmt.Println()
	fmt.Print(output.RenderCleanSummary(result, p.clean.UseTrash))
	if freeAfter, ok := freeSpace(p.root); ok && haveBefore {
		fmt.Printf("  Disk free: %s -> %s\n", output.FormatSize(int64(freeBefore)), output.FormatSize(int64(freeAfter)))
	}
	if p.clean.UseTrash && runID > 0 && result.Succeeded > 0 {
		fmt.Printf("\nUndo with: devprune restore %d\n", runID)
	}
	return nil
}

// confirmClean prompts the user to confirm the batch.
func confirmClean(in *bufio.Reader, out io.Writer, projects []project.Project, useTrash bool) bool {
	verb := "Clean"
	if !useTrash {
		verb = "Permanently delete build directories of"
	}
	fmt.Fprintf(out, "\n%s %d %s (%s)? [y/N]: ",
		verb, len(projects), pluralize(len(projects), "project", "projects"),
		output.FormatSize(project.TotalSize(projects)))

	response, err := in.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// promptSelection asks for a selection of the numbered projects. An empty
// answer selects nothing.
func promptSelection(in *bufio.Reader, out io.Writer, projects []project.Project) ([]project.Project, error) {
	fmt.Fprint(out, "Select projects to clean (e.g. 1,3,5-7 or all; empty to cancel): ")

	response, err := in.ReadString('\n')
	if err != nil && response == "" {
		return nil, nil
	}

	indices, err := parseSelection(response, len(projects))
	if err != nil {
		return nil, err
	}
	selected := make([]project.Project, 0, len(indices))
	for _, i := range indices {
		selected = append(selected, projects[i])
	}
	return selected, nil
}
