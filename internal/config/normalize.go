package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeLLM()
	if err := c.normalizePrompts(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeCollections()
	c.normalizeWorkers()
	c.normalizeLogging()
	c.normalizeMetrics()
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
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("RECIPEFORGE_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	if c.API.RateLimitPerMinute < 0 {
		c.API.RateLimitPerMinute = 0
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "", "sqlite", "sqlite3":
		c.Store.Driver = "sqlite"
	case "postgresql", "pg":
		c.Store.Driver = "postgres"
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("RECIPEFORGE_DB_DSN"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if c.Store.DSN == "" && c.Store.Driver == "sqlite" {
		c.Store.DSN = c.DatabasePath()
	}
	if c.Store.Driver == "sqlite" && !strings.HasPrefix(c.Store.DSN, "file:") && c.Store.DSN != ":memory:" {
		expanded, err := expandPath(c.Store.DSN)
		if err != nil {
			return fmt.Errorf("store.dsn: %w", err)
		}
		c.Store.DSN = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, key := range []string{"RECIPEFORGE_LLM_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.Burst <= 0 {
		c.LLM.Burst = defaultLLMBurst
	}
}

func (c *Config) normalizePrompts() error {
	var err error
	if c.Generation.PromptsPath, err = expandPath(strings.TrimSpace(c.Generation.PromptsPath)); err != nil {
		return fmt.Errorf("generation.prompts_path: %w", err)
	}
	if c.Translation.PromptsPath, err = expandPath(strings.TrimSpace(c.Translation.PromptsPath)); err != nil {
		return fmt.Errorf("translation.prompts_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.SourceLang = strings.TrimSpace(c.Translation.SourceLang)
	if c.Translation.SourceLang == "" {
		c.Translation.SourceLang = defaultSourceLang
	}
	if c.Translation.MaxRetries < 0 {
		c.Translation.MaxRetries = 0
	}
	if c.Translation.RetryMaxSeconds < c.Translation.RetryBaseSeconds {
		c.Translation.RetryMaxSeconds = c.Translation.RetryBaseSeconds
	}
}

func (c *Config) normalizeCollections() {
	if c.Collections.SampleSize <= 0 {
		c.Collections.SampleSize = defaultCollectionSampleSize
	}
}

func (c *Config) normalizeWorkers() {
	if c.Workers.MaxTaskAttempts <= 0 {
		c.Workers.MaxTaskAttempts = defaultMaxTaskAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "text":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.Path = strings.TrimSpace(c.Metrics.Path)
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		c.Metrics.Path = "/" + c.Metrics.Path
	}
}
