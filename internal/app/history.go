package app

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devprune/internal/output"
	"github.com/blackwell-systems/devprune/internal/store"
)

var historyFlagLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show previous clean runs",
	Long: `Show clean runs recorded by devprune, newest first.

With a run ID, lists the projects cleaned by that run, whether each one
succeeded and where trashed build directories were moved.`,
	Example: `  devprune history             # List recent runs
  devprune history --limit 50  # List more runs
  devprune history 12          # Show the projects of run 12`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 20, "Maximum number of runs to list (0 for all)")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		runs, err := st.ListRuns(historyFlagLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		fmt.Print(output.RenderRunTable(runs))
		if len(runs) > 0 {
			fmt.Printf("\nDetails with: devprune history <id>\n")
		}
		return nil
	}

	run, err := lookupRun(st, args[0])
	if err != nil {
		return err
	}
	projects, err := st.GetRunProjects(run.ID)
	if err != nil {
		return fmt.Errorf("failed to get run projects: %w", err)
	}

	fmt.Printf("Run %d\n", run.ID)
	fmt.Printf("  Started: %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Root: %s\n", run.Root)
	fmt.Printf("  Mode: %s\n", run.Mode)
	fmt.Printf("  Freed: %s (estimated %s)\n", output.FormatSize(run.Freed), output.FormatSize(run.Estimated))
	fmt.Println()
	fmt.Print(output.RenderRunProjects(projects))
	return nil
}

// lookupRun resolves a run ID argument or "latest".
func lookupRun(st *store.Store, arg string) (*store.Run, error) {
	if arg == "latest" {
		run, err := st.LatestRun()
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("no clean runs recorded")
		}
		return run, err
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid run ID: %s (must be a number or 'latest')", arg)
	}
	run, err := st.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("run %d not found\n\nRun 'devprune history' to see recorded runs", id)
	}
	return run, err
}
