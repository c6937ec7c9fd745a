package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/medline/expocrawl/internal/assets"
	"github.com/medline/expocrawl/internal/config"
	"github.com/medline/expocrawl/internal/crawler"
	"github.com/medline/expocrawl/internal/export"
	"github.com/medline/expocrawl/internal/ratelimit"
	"github.com/medline/expocrawl/internal/ui"
	"github.com/medline/expocrawl/pkg/models"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [start-url]",
	Short: "Crawl a directory site and aggregate its product catalog",
	Long: `Run walks the site in four stages: the entry page's sections, each
subcategory's paginated index, each index entry's product listing, and every
product's detail page. Failed branches are marked and skipped; the rest of the
tree is still collected.

The finished run is stored in the archive unless --no-archive is set.`,
	Example: `  # Crawl with the built-in site profile
  expocrawl run

  # Crawl a different start page with a custom profile
  expocrawl run https://www.medicalexpo.com/ --profile=site.yaml

  # Static engine, exports, and product images
  expocrawl run --engine=static --export-dir=./out --download-images`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(runCmd)
	config.RegisterRunFlags(runCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := GetApp()
	cfg := a.Config

	startURL := cfg.StartURL
	if len(args) == 1 {
		startURL = args[0]
	}

	prof, err := a.SiteProfile()
	if err != nil {
		return fmt.Errorf("failed to load site profile: %w", err)
	}

	c, err := crawler.New(crawler.Options{
		Profile:           prof,
		Engine:            a.Engine,
		Gate:              a.Gate,
		Courtesy:          a.Courtesy(),
		Retry:             a.RetryConfig(),
		Stage1Concurrency: cfg.Stage1Concurrency,
		Stage2Concurrency: cfg.Stage2Concurrency,
		Stage3Concurrency: cfg.Stage3Concurrency,
		NavigationTimeout: cfg.NavigationTimeout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s Crawling %s\n", ui.Info("→"), ui.Bold(startURL))
	started := time.Now()

	run, runErr := c.Run(cmd.Context(), startURL)
	if run == nil {
		return runErr
	}

	if a.Archive != nil {
		if err := a.Archive.Save(cmd.Context(), run); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to archive run")
		} else {
			fmt.Printf("%s Archived as run %s\n", ui.Success("✓"), ui.Bold(run.ID))
		}
	}

	if cfg.ExportDir != "" {
		if err := export.WriteAll(cfg.ExportDir, run); err != nil {
			log.Error().Err(err).Str("dir", cfg.ExportDir).Msg("Export failed")
		} else {
			fmt.Printf("%s Exported run.json, records.csv and report.md to %s\n",
				ui.Success("✓"), cfg.ExportDir)
		}
	}

	if cfg.DownloadImages {
		dir := cfg.ExportDir
		if dir == "" {
			dir = "."
		}
		summary := assets.DownloadImages(cmd.Context(), run, assets.Options{
			OutputDir: dir + "/images",
			Workers:   cfg.ImageWorkers,
			UserAgent: a.UserAgent,
			Limiter:   ratelimit.NewDomainLimiter(cfg.HostRateRPS, cfg.HostRateBurst),
			Retry:     a.RetryConfig(),
			Progress:  true,
		})
		fmt.Printf("%s Images: %d downloaded, %d failed (%d bytes)\n",
			ui.Success("✓"), summary.Succeeded, summary.Failed, summary.Bytes)
	}

	printRunSummary(run, time.Since(started))

	if run.Status == models.StatusAborted {
		return fmt.Errorf("crawl aborted: %w", runErr)
	}
	return nil
}

func printRunSummary(run *models.CrawlRun, elapsed time.Duration) {
	totals := run.Totals()

	fmt.Fprintf(os.Stdout, "\n%sRun Summary%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
	rows := []struct {
		label string
		value string
	}{
		{"Status", statusLabel(run.Status)},
		{"Sections", fmt.Sprintf("%d", totals.Sections)},
		{"Subcategories", fmt.Sprintf("%d", totals.Subcategories)},
		{"Index entries", fmt.Sprintf("%d", totals.Entries)},
		{"Product tiles", fmt.Sprintf("%d", totals.Tiles)},
		{"Records", fmt.Sprintf("%d", totals.Records)},
		{"Failures", fmt.Sprintf("%d", totals.Failures)},
		{"Duration", elapsed.Round(time.Millisecond).String()},
	}
	for _, row := range rows {
		fmt.Fprintf(os.Stdout, "  %s%-15s%s%s\n", ui.ColorDim, row.label, ui.ColorReset, row.value)
	}
	fmt.Fprintln(os.Stdout)
}

func statusLabel(status models.RunStatus) string {
	switch status {
	case models.StatusCompleted:
		return ui.Success(string(status))
	case models.StatusPartial:
		return ui.Info(string(status))
	default:
		return ui.Error(string(status))
	}
}
