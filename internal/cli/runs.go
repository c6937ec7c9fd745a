package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/medline/expocrawl/internal/ui"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived crawl runs",
	Example: `  # List all archived runs
  expocrawl runs

  # Inspect one run
  expocrawl runs show 20260825-1a2b3c4d`,
	RunE: listRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary of an archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	a := GetApp()
	if a.Archive == nil {
		return fmt.Errorf("archive is disabled")
	}

	runs, err := a.Archive.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tSTATUS\tRECORDS\tFAILURES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			r.Records,
			r.Failures)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	a := GetApp()
	if a.Archive == nil {
		return fmt.Errorf("archive is disabled")
	}

	run, err := a.Archive.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, run.ID, ui.ColorReset)
	fmt.Printf("  %sStart URL%s      %s\n", ui.ColorDim, ui.ColorReset, run.StartURL)
	fmt.Printf("  %sStarted%s        %s\n", ui.ColorDim, ui.ColorReset, run.StartedAt.Local().Format(time.DateTime))
	fmt.Printf("  %sFinished%s       %s\n", ui.ColorDim, ui.ColorReset, run.FinishedAt.Local().Format(time.DateTime))
	fmt.Printf("  %sStatus%s         %s\n", ui.ColorDim, ui.ColorReset, statusLabel(run.Status))

	printRunSummary(run, run.FinishedAt.Sub(run.StartedAt))
	return nil
}
