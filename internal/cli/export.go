package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medline/expocrawl/internal/export"
	"github.com/medline/expocrawl/internal/ui"
)

var exportDir string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export an archived run as JSON, CSV and Markdown",
	Example: `  # Export a run into the current directory
  expocrawl export 20260825-1a2b3c4d

  # Export into a specific directory
  expocrawl export 20260825-1a2b3c4d --dir=./out`,
	Args: cobra.ExactArgs(1),
	RunE: exportRun,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "Output directory")
}

func exportRun(cmd *cobra.Command, args []string) error {
	a := GetApp()
	if a.Archive == nil {
		return fmt.Errorf("archive is disabled")
	}

	run, err := a.Archive.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := export.WriteAll(exportDir, run); err != nil {
		return err
	}

	fmt.Printf("%s Exported run %s to %s\n", ui.Success("✓"), ui.Bold(run.ID), exportDir)
	return nil
}
