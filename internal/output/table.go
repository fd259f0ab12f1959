// Package output provides terminal output utilities for devprune.
//
// This package includes:
//   - Table rendering for projects, clean results and run history
//   - Progress bars and spinners for long-running scans
//   - A JSON report for scripting
//
// Tables use box-drawing rules and ANSI color codes when stdout is a terminal.
// Progress indicators are thread-safe and can be used from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/devprune/internal/cleaner"
	"github.com/blackwell-systems/devprune/internal/project"
	"github.com/blackwell-systems/devprune/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if !IsColorEnabled() {
		return text
	}
	return color + text + colorReset
}

// FormatSize renders a byte count with SI units, e.g. "1.2 GB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.Bytes(uint64(-bytes))
	}
	return humanize.Bytes(uint64(bytes))
}

// RenderProjectTable renders projects in the given order. When numbered is
// set, rows carry the 1-based index used by interactive selection.
func RenderProjectTable(projects []project.Project, numbered bool) string {
	if len(projects) == 0 {
		return "No projects found.\n"
	}

	var sb strings.Builder

	if numbered {
		sb.WriteString(fmt.Sprintf("%4s  ", "#"))
	}
	sb.WriteString(fmt.Sprintf("%-8s %-24s %10s  %s\n", "Type", "Project", "Size", "Build directory"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for i, p := range projects {
		if numbered {
			sb.WriteString(fmt.Sprintf("%4d  ", i+1))
		}
		sb.WriteString(fmt.Sprintf("%-8s %-24s %10s  %s\n",
			p.Kind.Icon()+" "+p.Kind.String(),
			truncate(p.DisplayName(), 24),
			FormatSize(p.Build.Size),
			p.Build.Path))
	}

	return sb.String()
}

// RenderProjectSummary renders the per-ecosystem counts and the reclaimable total.
func RenderProjectSummary(projects []project.Project) string {
	counts := project.CountByKind(projects)

	var parts []string
	for _, k := range project.Kinds {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d %s", len(projects), plural(len(projects), "project", "projects")))
	if len(parts) > 0 {
		sb.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	sb.WriteString(fmt.Sprintf(", %s reclaimable\n", colorize(colorBold, FormatSize(project.TotalSize(projects)))))
	return sb.String()
}

// RenderCleanSummary renders the outcome of a clean batch.
func RenderCleanSummary(res *cleaner.Result, useTrash bool) string {
	var sb strings.Builder

	verb := "removed"
	if useTrash {
		verb = "moved to trash"
	}

	sb.WriteString(fmt.Sprintf("%s %d %s %s, freed %s\n",
		colorize(colorGreen, "✓"),
		res.Succeeded,
		plural(res.Succeeded, "project", "projects"),
		verb,
		colorize(colorBold, FormatSize(res.TotalBytesFreed))))

	if delta := res.Delta(); delta != 0 {
		sb.WriteString(colorize(colorGray, fmt.Sprintf("  (%s than estimated %s; directories changed since the scan)\n",
			signedSize(delta), FormatSize(res.Estimated))))
	}

	if preserved := res.Preserved(); len(preserved) > 0 {
		sb.WriteString(fmt.Sprintf("  Preserved %d %s:\n", len(preserved), plural(len(preserved), "executable", "executables")))
		for _, pe := range preserved {
			sb.WriteString(fmt.Sprintf("    %s -> %s\n", pe.Source, pe.Destination))
		}
	}

	if len(res.Failed) > 0 {
		sb.WriteString(fmt.Sprintf("%s %d %s failed:\n",
			colorize(colorRed, "✗"),
			len(res.Failed),
			plural(len(res.Failed), "project", "projects")))
		for _, f := range res.Failed {
			sb.WriteString(fmt.Sprintf("    %s: %s\n", f.Path, f.Reason))
		}
	}

	return sb.String()
}

func signedSize(delta int64) string {
	if delta > 0 {
		return FormatSize(delta) + " more"
	}
	return FormatSize(-delta) + " less"
}

// RenderRunTable renders recorded clean runs, newest first as given.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No clean runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-5s %-17s %-10s %10s %6s %6s  %s\n",
		"ID", "When", "Mode", "Freed", "OK", "Failed", "Root"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, r := range runs {
		mode := r.Mode
		if mode == store.ModeTrash {
			mode = colorize(colorYellow, fmt.Sprintf("%-10s", mode))
		} else {
			mode = fmt.Sprintf("%-10s", mode)
		}
		sb.WriteString(fmt.Sprintf("%-5d %-17s %s %10s %6d %6d  %s\n",
			r.ID,
			formatRelativeTime(r.StartedAt),
			mode,
			FormatSize(r.Freed),
			r.Succeeded,
			r.Failed,
			r.Root))
	}

	return sb.String()
}

// RenderRunProjects renders the projects recorded for one run.
func RenderRunProjects(projects []*store.RunProject) string {
	if len(projects) == 0 {
		return "No projects recorded for this run.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-9s %10s  %s\n", "Type", "Status", "Size", "Build directory"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, p := range projects {
		status := p.Status
		switch {
		case p.Restored:
			status = "restored"
		case p.Status == string(cleaner.StatusFailed):
			status = colorize(colorRed, fmt.Sprintf("%-9s", status))
		}
		sb.WriteString(fmt.Sprintf("%-8s %-9s %10s  %s\n", p.Kind, status, FormatSize(p.Bytes), p.BuildPath))
		if p.Reason != "" {
			sb.WriteString(colorize(colorGray, "         "+p.Reason) + "\n")
		}
	}
	return sb.String()
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return ago(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return ago(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return ago(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return ago(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return ago(int(diff.Hours()/24/30), "month")
	default:
		return ago(int(diff.Hours()/24/365), "year")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
