// Package config layers the crawl configuration: package defaults, a `.env`
// file, `EXPOCRAWL_*` environment variables, then CLI flags, each overriding
// the previous layer. Validation runs on the merged result.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// Config holds application configuration values.
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Crawl target
	StartURL    string
	ProfilePath string

	// Rendering
	Engine     string // "chrome" or "static"
	Headless   bool
	ChromePath string
	UserAgent  string
	// Headers holds extra request headers as "Key: Value" strings.
	Headers []string
	Proxies []string

	// Pipeline
	NavigationTimeout time.Duration
	Stage1Concurrency int
	Stage2Concurrency int
	Stage3Concurrency int
	RetryAttempts     int
	RetryBaseDelay    time.Duration

	// Throttling
	CourtesyMin   time.Duration
	CourtesyMax   time.Duration
	HostRateRPS   float64
	HostRateBurst int
	IgnoreRobots  bool

	// Sinks
	ArchivePath    string // empty selects the XDG default
	NoArchive      bool
	ExportDir      string
	DownloadImages bool
	ImageWorkers   int
}

// envOverrides mirrors Config with pointer fields so only variables actually
// set in the environment override the defaults.
type envOverrides struct {
	LogLevel          *string        `envconfig:"LOG_LEVEL"`
	JSONLog           *bool          `envconfig:"JSON_LOG"`
	StartURL          *string        `envconfig:"START_URL"`
	ProfilePath       *string        `envconfig:"PROFILE"`
	Engine            *string        `envconfig:"ENGINE"`
	Headless          *bool          `envconfig:"HEADLESS"`
	ChromePath        *string        `envconfig:"CHROME_PATH"`
	UserAgent         *string        `envconfig:"USER_AGENT"`
	Headers           []string       `envconfig:"HEADERS"`
	Proxies           []string       `envconfig:"PROXIES"`
	NavigationTimeout *time.Duration `envconfig:"NAVIGATION_TIMEOUT"`
	Stage1Concurrency *int           `envconfig:"STAGE1_CONCURRENCY"`
	Stage2Concurrency *int           `envconfig:"STAGE2_CONCURRENCY"`
	Stage3Concurrency *int           `envconfig:"STAGE3_CONCURRENCY"`
	RetryAttempts     *int           `envconfig:"RETRY_ATTEMPTS"`
	RetryBaseDelay    *time.Duration `envconfig:"RETRY_BASE_DELAY"`
	CourtesyMin       *time.Duration `envconfig:"COURTESY_MIN"`
	CourtesyMax       *time.Duration `envconfig:"COURTESY_MAX"`
	HostRateRPS       *float64       `envconfig:"HOST_RATE_RPS"`
	HostRateBurst     *int           `envconfig:"HOST_RATE_BURST"`
	IgnoreRobots      *bool          `envconfig:"IGNORE_ROBOTS"`
	ArchivePath       *string        `envconfig:"ARCHIVE_PATH"`
	NoArchive         *bool          `envconfig:"NO_ARCHIVE"`
	ExportDir         *string        `envconfig:"EXPORT_DIR"`
	DownloadImages    *bool          `envconfig:"DOWNLOAD_IMAGES"`
	ImageWorkers      *int           `envconfig:"IMAGE_WORKERS"`
}

// Load builds a Config by combining defaults, the environment, and CLI flags.
// Caller should pass the command being executed so its flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		StartURL:          DefaultStartURL,
		Engine:            DefaultEngine,
		Headless:          DefaultHeadless,
		NavigationTimeout: DefaultNavigationTimeout,
		Stage1Concurrency: DefaultStage1Concurrency,
		Stage2Concurrency: DefaultStage2Concurrency,
		Stage3Concurrency: DefaultStage3Concurrency,
		RetryAttempts:     DefaultRetryAttempts,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		CourtesyMin:       DefaultCourtesyMin,
		CourtesyMax:       DefaultCourtesyMax,
		HostRateRPS:       DefaultHostRateRPS,
		HostRateBurst:     DefaultHostRateBurst,
		ImageWorkers:      DefaultImageWorkers,
	}

	// .env is optional; a missing file is not an error. An explicit --config
	// file must exist.
	if cmd != nil && cmd.Flags().Changed("config") {
		path, _ := cmd.Flags().GetString("config")
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var env envOverrides
	if err := envconfig.Process("expocrawl", &env); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	applyEnv(cfg, &env)

	if cmd != nil {
		applyFlags(cfg, cmd)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, env *envOverrides) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setDur := func(dst *time.Duration, src *time.Duration) {
		if src != nil {
			*dst = *src
		}
	}

	setStr(&cfg.LogLevel, env.LogLevel)
	setBool(&cfg.JSONLog, env.JSONLog)
	setStr(&cfg.StartURL, env.StartURL)
	setStr(&cfg.ProfilePath, env.ProfilePath)
	setStr(&cfg.Engine, env.Engine)
	setBool(&cfg.Headless, env.Headless)
	setStr(&cfg.ChromePath, env.ChromePath)
	setStr(&cfg.UserAgent, env.UserAgent)
	if len(env.Headers) > 0 {
		cfg.Headers = env.Headers
	}
	if len(env.Proxies) > 0 {
		cfg.Proxies = env.Proxies
	}
	setDur(&cfg.NavigationTimeout, env.NavigationTimeout)
	setInt(&cfg.Stage1Concurrency, env.Stage1Concurrency)
	setInt(&cfg.Stage2Concurrency, env.Stage2Concurrency)
	setInt(&cfg.Stage3Concurrency, env.Stage3Concurrency)
	setInt(&cfg.RetryAttempts, env.RetryAttempts)
	setDur(&cfg.RetryBaseDelay, env.RetryBaseDelay)
	setDur(&cfg.CourtesyMin, env.CourtesyMin)
	setDur(&cfg.CourtesyMax, env.CourtesyMax)
	if env.HostRateRPS != nil {
		cfg.HostRateRPS = *env.HostRateRPS
	}
	setInt(&cfg.HostRateBurst, env.HostRateBurst)
	setBool(&cfg.IgnoreRobots, env.IgnoreRobots)
	setStr(&cfg.ArchivePath, env.ArchivePath)
	setBool(&cfg.NoArchive, env.NoArchive)
	setStr(&cfg.ExportDir, env.ExportDir)
	setBool(&cfg.DownloadImages, env.DownloadImages)
	setInt(&cfg.ImageWorkers, env.ImageWorkers)
}

// applyFlags copies every flag the user actually set. Unchanged flags never
// clobber the environment layer.
func applyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("verbose") {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("quiet") {
		cfg.LogLevel = "error"
	}
	if flags.Changed("json") {
		cfg.JSONLog, _ = flags.GetBool("json")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent, _ = flags.GetString("user-agent")
	}
	if flags.Changed("header") {
		cfg.Headers, _ = flags.GetStringArray("header")
	}
	if flags.Changed("proxy") {
		cfg.Proxies, _ = flags.GetStringSlice("proxy")
	}
	if flags.Changed("timeout") {
		cfg.NavigationTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("engine") {
		cfg.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("chrome-path") {
		cfg.ChromePath, _ = flags.GetString("chrome-path")
	}
	if flags.Changed("profile") {
		cfg.ProfilePath, _ = flags.GetString("profile")
	}
	if flags.Changed("stage1-concurrency") {
		cfg.Stage1Concurrency, _ = flags.GetInt("stage1-concurrency")
	}
	if flags.Changed("stage2-concurrency") {
		cfg.Stage2Concurrency, _ = flags.GetInt("stage2-concurrency")
	}
	if flags.Changed("stage3-concurrency") {
		cfg.Stage3Concurrency, _ = flags.GetInt("stage3-concurrency")
	}
	if flags.Changed("retry-attempts") {
		cfg.RetryAttempts, _ = flags.GetInt("retry-attempts")
	}
	if flags.Changed("retry-base-delay") {
		cfg.RetryBaseDelay, _ = flags.GetDuration("retry-base-delay")
	}
	if flags.Changed("courtesy-min") {
		cfg.CourtesyMin, _ = flags.GetDuration("courtesy-min")
	}
	if flags.Changed("courtesy-max") {
		cfg.CourtesyMax, _ = flags.GetDuration("courtesy-max")
	}
	if flags.Changed("host-rate") {
		cfg.HostRateRPS, _ = flags.GetFloat64("host-rate")
	}
	if flags.Changed("host-burst") {
		cfg.HostRateBurst, _ = flags.GetInt("host-burst")
	}
	if flags.Changed("ignore-robots") {
		cfg.IgnoreRobots, _ = flags.GetBool("ignore-robots")
	}
	if flags.Changed("archive") {
		cfg.ArchivePath, _ = flags.GetString("archive")
	}
	if flags.Changed("no-archive") {
		cfg.NoArchive, _ = flags.GetBool("no-archive")
	}
	if flags.Changed("export-dir") {
		cfg.ExportDir, _ = flags.GetString("export-dir")
	}
	if flags.Changed("download-images") {
		cfg.DownloadImages, _ = flags.GetBool("download-images")
	}
	if flags.Changed("image-workers") {
		cfg.ImageWorkers, _ = flags.GetInt("image-workers")
	}
}
