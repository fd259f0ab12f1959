package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devprune/internal/logger"
	"github.com/blackwell-systems/devprune/internal/store"
	"github.com/blackwell-systems/devprune/internal/trash"
)

var restoreFlagYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore [run-id | latest]",
	Short: "Move trashed build directories back",
	Long: `Restore the build directories a clean run moved to the trash.

Each directory goes back to where it was cleaned from. Projects whose build
directory exists again (for example after a rebuild) are skipped. Runs made
with --permanent cannot be restored.

Arguments:
  run-id  The numeric ID of the run to restore (see 'devprune history')
  latest  Restore the most recent run`,
	Example: `  devprune restore latest      # Restore the last clean
  devprune restore 12          # Restore run 12
  devprune restore 12 --yes    # Restore without confirmation`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreFlagYes, "yes", "y", false, "Skip confirmation prompt")

	RootCmd.AddCommand(restoreCmd)
}

// restorer puts a trashed entry back in place.
type restorer interface {
	Restore(e trash.Entry) error
}

// restoreSummary counts what a restore did.
type restoreSummary struct {
	Restored int
	Skipped  []string
	Failed   []string
}

func runRestore(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := lookupRun(st, args[0])
	if err != nil {
		return err
	}
	if run.Mode == store.ModePermanent {
		return fmt.Errorf("run %d deleted build directories permanently; nothing to restore", run.ID)
	}

	projects, err := st.GetRunProjects(run.ID)
	if err != nil {
		return fmt.Errorf("failed to get run projects: %w", err)
	}

	var pending []*store.RunProject
	for _, p := range projects {
		if p.Restorable() {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		fmt.Printf("Nothing to restore for run %d.\n", run.ID)
		return nil
	}

	fmt.Printf("Build directories to restore from run %d:\n", run.ID)
	for _, p := range pending {
		fmt.Printf("  - %s\n", p.BuildPath)
	}
	fmt.Println()

	if !restoreFlagYes && !confirmRestore(bufio.NewReader(os.Stdin), os.Stdout, len(pending)) {
		fmt.Println("Restoration cancelled.")
		return nil
	}

	tr, err := trash.Default()
	if err != nil {
		return err
	}

	sum := restoreProjects(st, tr, pending)

	fmt.Printf("✓ Restored %d %s from run %d\n", sum.Restored, pluralize(sum.Restored, "directory", "directories"), run.ID)
	if len(sum.Skipped) > 0 {
		fmt.Printf("\nSkipped %d (the directory exists again):\n", len(sum.Skipped))
		for _, s := range sum.Skipped {
			fmt.Printf("  - %s\n", s)
		}
	}
	if len(sum.Failed) > 0 {
		fmt.Printf("\n⚠️  %d failures:\n", len(sum.Failed))
		for _, f := range sum.Failed {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}

// restoreProjects restores each project and flags the successful ones in
// the store. One failure does not stop the rest.
func restoreProjects(st *store.Store, r restorer, projects []*store.RunProject) restoreSummary {
	var sum restoreSummary
	for _, p := range projects {
		err := r.Restore(trash.Entry{
			Original:  p.BuildPath,
			Trashed:   p.TrashedPath,
			DeletedAt: p.DeletedAt,
		})
		switch {
		case errors.Is(err, trash.ErrOriginalExists):
			sum.Skipped = append(sum.Skipped, p.BuildPath)
			continue
		case err != nil:
			logger.Error().Err(err).Str("path", p.BuildPath).Msg("restore failed")
			sum.Failed = append(sum.Failed, err.Error())
			continue
		}

		if err := st.MarkRestored(p.ID); err != nil {
			// The directory is back; only the ledger is stale.
			logger.Warn().Err(err).Str("path", p.BuildPath).Msg("restored but history not updated")
		}
		sum.Restored++
	}
	return sum
}

// confirmRestore prompts the user to confirm restoration.
func confirmRestore(in *bufio.Reader, out io.Writer, count int) bool {
	fmt.Fprintf(out, "Restore %d %s? [y/N]: ", count, pluralize(count, "directory", "directories"))

	response, err := in.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
