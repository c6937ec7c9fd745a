package config

import "github.com/spf13/cobra"

// RegisterRootFlags registers the flags shared by every command.
func RegisterRootFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log raw JSON instead of console output")
	cmd.PersistentFlags().String("log-level", "", "Explicit log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().String("config", "", "Env-format config file (default: .env in the working directory)")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Custom header (repeatable, \"Key: Value\")")
	cmd.PersistentFlags().StringSlice("proxy", nil, "Proxy URL(s); repeat or comma-separate to rotate")
	cmd.PersistentFlags().Duration("timeout", DefaultNavigationTimeout, "Navigation timeout per page")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent (default: rotate a realistic pool)")
	cmd.PersistentFlags().String("archive", "", "Archive database path (default: XDG data dir)")
	cmd.PersistentFlags().Bool("no-archive", false, "Disable the run archive")
}

// RegisterRunFlags registers the crawl options on the run command.
func RegisterRunFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.Flags().String("engine", DefaultEngine, "Render engine: chrome or static")
	cmd.Flags().Bool("headless", DefaultHeadless, "Run Chrome headless")
	cmd.Flags().String("chrome-path", "", "Chrome executable path (default: autodetect)")
	cmd.Flags().String("profile", "", "Site profile YAML overriding the built-in selectors")
	cmd.Flags().Int("stage1-concurrency", DefaultStage1Concurrency, "Concurrent subcategory index tasks")
	cmd.Flags().Int("stage2-concurrency", DefaultStage2Concurrency, "Concurrent tile listing tasks")
	cmd.Flags().Int("stage3-concurrency", DefaultStage3Concurrency, "Concurrent product detail tasks")
	cmd.Flags().Int("retry-attempts", DefaultRetryAttempts, "Attempts per navigation")
	cmd.Flags().Duration("retry-base-delay", DefaultRetryBaseDelay, "Base backoff delay; doubles each retry")
	cmd.Flags().Duration("courtesy-min", DefaultCourtesyMin, "Minimum courtesy delay between requests")
	cmd.Flags().Duration("courtesy-max", DefaultCourtesyMax, "Maximum courtesy delay (0 disables)")
	cmd.Flags().Float64("host-rate", DefaultHostRateRPS, "Per-host request rate limit (requests/second)")
	cmd.Flags().Int("host-burst", DefaultHostRateBurst, "Per-host request burst size")
	cmd.Flags().Bool("ignore-robots", false, "Skip the robots.txt check")
	cmd.Flags().String("export-dir", "", "Directory for run.json/records.csv/report.md exports")
	cmd.Flags().Bool("download-images", false, "Download product images after the crawl")
	cmd.Flags().Int("image-workers", DefaultImageWorkers, "Concurrent image downloads")
}
