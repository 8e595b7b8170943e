package testsupport

import (
	"path/filepath"
	"testing"

	"recipeforge/internal/config"
)

// ConfigOption adjusts a test configuration after defaults are applied.
type ConfigOption func(*config.Config)

// NewConfig returns a valid configuration rooted in t.TempDir. Retry delays
// are zeroed so executor tests never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Store.DSN = filepath.Join(cfg.Paths.DataDir, "recipeforge.db")
	cfg.API.Bind = "127.0.0.1:0"
	cfg.API.Token = "test-token"
	cfg.LLM.APIKey = "test"
	cfg.Translation.RetryBaseSeconds = 0
	cfg.Translation.RetryMaxSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithEnforceMinRequired toggles publish gate enforcement.
func WithEnforceMinRequired(enforce bool) ConfigOption {
	return func(c *config.Config) { c.Collections.EnforceMinRequired = enforce }
}

// WithMaxRetries sets the translation auto-retry budget.
func WithMaxRetries(retries int) ConfigOption {
	return func(c *config.Config) { c.Translation.MaxRetries = retries }
}

// WithAutoStart controls whether new generation jobs are queued immediately.
func WithAutoStart(enabled bool) ConfigOption {
	return func(c *config.Config) { c.Generation.AutoStart = enabled }
}
