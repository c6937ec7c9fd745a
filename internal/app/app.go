// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/archive"
	"github.com/medline/expocrawl/internal/config"
	"github.com/medline/expocrawl/internal/profile"
	"github.com/medline/expocrawl/internal/proxy"
	"github.com/medline/expocrawl/internal/ratelimit"
	"github.com/medline/expocrawl/internal/render"
	"github.com/medline/expocrawl/internal/retry"
	"github.com/medline/expocrawl/internal/robots"
	"github.com/medline/expocrawl/internal/utils/headers"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	Engine    render.Engine
	Gate      *robots.Gate
	Archive   *archive.Archive
	Proxies   *proxy.Pool
	UserAgent string
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies:
// logging, the proxy pool, the configured render engine, the robots gate and
// the run archive. If any step fails, everything already opened is released.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := initLogger(cfg)

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = headers.RandomUserAgent()
		logger.Debug().Str("user_agent", userAgent).Msg("User agent picked from rotation pool")
	}

	proxies := proxy.NewPool(cfg.Proxies)

	engine, err := buildEngine(cfg, userAgent, proxies)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize render engine: %w", err)
	}

	var gate *robots.Gate
	if !cfg.IgnoreRobots {
		gate = robots.New(robots.Options{UserAgent: userAgent})
		logger.Debug().Msg("Robots gate enabled")
	}

	var store *archive.Archive
	if !cfg.NoArchive {
		path := cfg.ArchivePath
		if path == "" {
			path, err = archive.DefaultPath()
			if err != nil {
				engine.Shutdown()
				return nil, fmt.Errorf("failed to resolve archive path: %w", err)
			}
		}
		store, err = archive.Open(path)
		if err != nil {
			engine.Shutdown()
			return nil, err
		}
	}

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Engine:    engine,
		Gate:      gate,
		Archive:   store,
		Proxies:   proxies,
		UserAgent: userAgent,
		startTime: time.Now(),
	}

	logger.Debug().Str("engine", engine.Name()).Msg("Application initialized")
	return app, nil
}

func initLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.ErrorLevel
	switch cfg.LogLevel {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		// info stays suppressed unless verbosity is requested
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func buildEngine(cfg *config.Config, userAgent string, proxies *proxy.Pool) (render.Engine, error) {
	switch cfg.Engine {
	case "static":
		return render.NewStaticEngine(render.StaticOptions{
			Timeout:   cfg.NavigationTimeout,
			UserAgent: userAgent,
			Headers:   headers.ParseHeaders(cfg.Headers),
			Proxies:   proxies,
			Limiter:   ratelimit.NewDomainLimiter(cfg.HostRateRPS, cfg.HostRateBurst),
		}), nil
	default:
		// One browser process per run means one egress: pin the first proxy.
		return render.NewChromeEngine(render.ChromeOptions{
			Headless:   cfg.Headless,
			UserAgent:  userAgent,
			Proxy:      proxies.Next(),
			ChromePath: cfg.ChromePath,
		})
	}
}

// RetryConfig derives the navigation retry budget from the config.
func (a *Application) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = a.Config.RetryAttempts
	cfg.BaseDelay = a.Config.RetryBaseDelay
	return cfg
}

// Courtesy derives the inter-request delay from the config. A zero maximum
// disables it.
func (a *Application) Courtesy() *ratelimit.Courtesy {
	if a.Config.CourtesyMax <= 0 {
		return nil
	}
	return ratelimit.NewCourtesy(a.Config.CourtesyMin, a.Config.CourtesyMax)
}

// SiteProfile loads the configured profile file, or the built-in defaults.
func (a *Application) SiteProfile() (*profile.Profile, error) {
	if a.Config.ProfilePath != "" {
		return profile.Load(a.Config.ProfilePath)
	}
	p := profile.Default()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Close gracefully shuts down the application: the render engine first (it
// owns the browser process), then the archive.
func (a *Application) Close(ctx context.Context) error {
	if a.Engine != nil {
		a.Engine.Shutdown()
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing archive")
		}
	}

	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("Application shutdown complete")
	return nil
}
