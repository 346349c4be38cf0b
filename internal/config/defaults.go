package config

import "time"

const (
	defaultDataDir    = "~/.local/share/paceline/data"
	defaultLogDir     = "~/.local/share/paceline/logs"
	defaultExtractDir = "~/.local/share/paceline/extract"

	defaultStravaBaseURL  = "https://www.strava.com/api/v3"
	defaultStravaPerPage  = 30
	defaultStravaTimeout  = 15
	defaultWindowSeconds  = 900
	defaultWindowLimit    = 100
	defaultDailyLimit     = 1000
	defaultSafetyMargin   = 0.9
	defaultRefreshMaxDays = 30

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			ExtractDir: defaultExtractDir,
		},
		Strava: Strava{
			BaseURL:        defaultStravaBaseURL,
			PerPage:        defaultStravaPerPage,
			TimeoutSeconds: defaultStravaTimeout,
		},
		RateLimit: RateLimit{
			WindowSeconds: defaultWindowSeconds,
			WindowLimit:   defaultWindowLimit,
			DailyLimit:    defaultDailyLimit,
			SafetyMargin:  defaultSafetyMargin,
		},
		Refresh: Refresh{
			MaxAgeDays: defaultRefreshMaxDays,
		},
		Import: Import{
			FetchEfforts: false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// RefreshMaxAge returns the staleness threshold as a duration.
func (c *Config) RefreshMaxAge() time.Duration {
	days := c.Refresh.MaxAgeDays
	if days <= 0 {
		days = defaultRefreshMaxDays
	}
	return time.Duration(days) * 24 * time.Hour
}
