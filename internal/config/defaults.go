package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultStartURL = "https://www.medicalexpo.com/"
	DefaultEngine   = "chrome"
	DefaultHeadless = true

	DefaultNavigationTimeout = 45 * time.Second

	DefaultStage1Concurrency = 4
	DefaultStage2Concurrency = 4
	DefaultStage3Concurrency = 2
	MaxStageConcurrency      = 16

	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 2 * time.Second

	DefaultCourtesyMin = 800 * time.Millisecond
	DefaultCourtesyMax = 2500 * time.Millisecond

	DefaultHostRateRPS   = 2.0
	DefaultHostRateBurst = 4

	DefaultImageWorkers = 5
)
