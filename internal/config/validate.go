package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateCollections(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set RECIPEFORGE_DB_DSN)")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported (use sqlite or postgres)", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must not be negative")
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url %q must be an http(s) URL", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if err := ensurePositiveMap(map[string]int{
		"generation.max_recipe_names":     c.Generation.MaxRecipeNames,
		"generation.call_timeout_seconds": c.Generation.CallTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Generation.ImagesEnabled && strings.TrimSpace(c.Generation.ImageEndpoint) == "" {
		return errors.New("generation.image_endpoint is required when generation.images_enabled is true")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if _, err := language.Parse(c.Translation.SourceLang); err != nil {
		return fmt.Errorf("translation.source_lang %q is not a valid BCP 47 tag", c.Translation.SourceLang)
	}
	if c.Translation.DefaultPriority < 1 || c.Translation.DefaultPriority > 10 {
		return errors.New("translation.default_priority must be between 1 and 10")
	}
	return ensurePositiveMap(map[string]int{
		"translation.call_timeout_seconds": c.Translation.CallTimeoutSeconds,
		"translation.retry_base_seconds":   c.Translation.RetryBaseSeconds,
		"translation.retry_max_seconds":    c.Translation.RetryMaxSeconds,
	})
}

func (c *Config) validateCollections() error {
	if c.Collections.DefaultMinRequired < 0 {
		return errors.New("collections.default_min_required must not be negative")
	}
	if c.Collections.DefaultTargetCount < c.Collections.DefaultMinRequired {
		return errors.New("collections.default_target_count must be at least collections.default_min_required")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"workers.generation_workers":    c.Workers.GenerationWorkers,
		"workers.translation_workers":   c.Workers.TranslationWorkers,
		"workers.poll_interval_seconds": c.Workers.PollIntervalSeconds,
		"workers.error_retry_interval":  c.Workers.ErrorRetryInterval,
		"workers.heartbeat_interval":    c.Workers.HeartbeatInterval,
		"workers.heartbeat_timeout":     c.Workers.HeartbeatTimeout,
	}); err != nil {
		return err
	}
	if c.Workers.HeartbeatTimeout <= c.Workers.HeartbeatInterval {
		return errors.New("workers.heartbeat_timeout must be greater than workers.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if !c.Breaker.Enabled {
		return nil
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return errors.New("breaker.failure_ratio must be between 0 and 1")
	}
	if c.Breaker.TimeoutSeconds <= 0 {
		return errors.New("breaker.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
