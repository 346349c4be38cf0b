package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStrava()
	c.normalizeRateLimit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExtractDir) == "" {
		c.Paths.ExtractDir = defaultExtractDir
	}
	if c.Paths.ExtractDir, err = expandPath(c.Paths.ExtractDir); err != nil {
		return fmt.Errorf("paths.extract_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStrava() {
	if token, ok := os.LookupEnv("STRAVA_ACCESS_TOKEN"); ok && strings.TrimSpace(token) != "" {
		c.Strava.AccessToken = strings.TrimSpace(token)
	}
	c.Strava.AccessToken = strings.TrimSpace(c.Strava.AccessToken)
	c.Strava.BaseURL = strings.TrimRight(strings.TrimSpace(c.Strava.BaseURL), "/")
	if c.Strava.BaseURL == "" {
		c.Strava.BaseURL = defaultStravaBaseURL
	}
	if c.Strava.PerPage <= 0 {
		c.Strava.PerPage = defaultStravaPerPage
	}
	if c.Strava.TimeoutSeconds <= 0 {
		c.Strava.TimeoutSeconds = defaultStravaTimeout
	}
}

func (c *Config) normalizeRateLimit() {
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = defaultWindowSeconds
	}
	if c.RateLimit.WindowLimit <= 0 {
		c.RateLimit.WindowLimit = defaultWindowLimit
	}
	if c.RateLimit.DailyLimit <= 0 {
		c.RateLimit.DailyLimit = defaultDailyLimit
	}
	if c.RateLimit.SafetyMargin <= 0 {
		c.RateLimit.SafetyMargin = defaultSafetyMargin
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
