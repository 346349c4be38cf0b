package testsupport

import (
	"path/filepath"
	"testing"

	"paceline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Strava.AccessToken = "test-token"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExtractDir = filepath.Join(base, "extract")

	cfg := &cfgVal
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithAccessToken sets the API access token on the test config.
func WithAccessToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Strava.AccessToken = token
	}
}

// WithBaseURL points the API client at the given base URL, usually an
// httptest server.
func WithBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Strava.BaseURL = url
	}
}

// WithRateLimit overrides the rate limit settings on the test config.
func WithRateLimit(rl config.RateLimit) ConfigOption {
	return func(cfg *config.Config) {
		cfg.RateLimit = rl
	}
}
