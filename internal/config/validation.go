package config

import (
	"fmt"

	urlutil "github.com/medline/expocrawl/internal/utils/url"
)

func validate(c *Config) error {
	if err := urlutil.ValidateURL(c.StartURL); err != nil {
		return fmt.Errorf("start URL: %w", err)
	}
	if c.Engine != "chrome" && c.Engine != "static" {
		return fmt.Errorf("engine must be chrome or static, got %q", c.Engine)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	for name, v := range map[string]int{
		"stage1 concurrency": c.Stage1Concurrency,
		"stage2 concurrency": c.Stage2Concurrency,
		"stage3 concurrency": c.Stage3Concurrency,
	} {
		if v < 1 || v > MaxStageConcurrency {
			return fmt.Errorf("%s must be between 1 and %d", name, MaxStageConcurrency)
		}
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1")
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("retry base delay must be >= 0")
	}
	if c.CourtesyMax > 0 && c.CourtesyMin > c.CourtesyMax {
		return fmt.Errorf("courtesy delay minimum exceeds maximum")
	}
	if c.HostRateRPS <= 0 {
		return fmt.Errorf("host rate must be > 0")
	}
	if c.ImageWorkers < 1 {
		return fmt.Errorf("image workers must be >= 1")
	}
	return nil
}
