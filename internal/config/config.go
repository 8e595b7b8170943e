package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// API contains the control surface listener settings.
type API struct {
	Bind               string `toml:"bind"`
	Token              string `toml:"token"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
}

// Store selects the entity store backend. An empty DSN with the sqlite driver
// places the database under paths.data_dir.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// LLM contains shared LLM connection settings used by both collaborators.
type LLM struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	Referer           string `toml:"referer"`
	Title             string `toml:"title"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Burst             int    `toml:"burst"`
}

// Breaker configures the circuit breaker wrapped around collaborator calls.
type Breaker struct {
	Enabled         bool    `toml:"enabled"`
	MaxRequests     uint32  `toml:"max_requests"`
	IntervalSeconds int     `toml:"interval_seconds"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	MinRequests     uint32  `toml:"min_requests"`
	FailureRatio    float64 `toml:"failure_ratio"`
}

// Generation contains batch generation job settings.
type Generation struct {
	MaxRecipeNames     int    `toml:"max_recipe_names"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
	AutoStart          bool   `toml:"auto_start"`
	ImagesEnabled      bool   `toml:"images_enabled"`
	ImageEndpoint      string `toml:"image_endpoint"`
	PromptsPath        string `toml:"prompts_path"`
}

// Translation contains translation job settings.
type Translation struct {
	SourceLang         string `toml:"source_lang"`
	DefaultPriority    int    `toml:"default_priority"`
	MaxRetries         int    `toml:"max_retries"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
	RetryBaseSeconds   int    `toml:"retry_base_seconds"`
	RetryMaxSeconds    int    `toml:"retry_max_seconds"`
	PromptsPath        string `toml:"prompts_path"`
}

// Collections contains publish gate settings.
type Collections struct {
	EnforceMinRequired bool `toml:"enforce_min_required"`
	DefaultMinRequired int  `toml:"default_min_required"`
	DefaultTargetCount int  `toml:"default_target_count"`
	SampleSize         int  `toml:"sample_size"`
}

// Workers configures the bounded worker pool.
type Workers struct {
	GenerationWorkers   int `toml:"generation_workers"`
	TranslationWorkers  int `toml:"translation_workers"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	HeartbeatInterval   int `toml:"heartbeat_interval"`
	HeartbeatTimeout    int `toml:"heartbeat_timeout"`
	MaxTaskAttempts     int `toml:"max_task_attempts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic           string `toml:"ntfy_topic"`
	RequestTimeout      int    `toml:"request_timeout"`
	JobCompleted        bool   `toml:"job_completed"`
	CollectionPublished bool   `toml:"collection_published"`
	Errors              bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics toggles the Prometheus exposition endpoint.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for recipeforge.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - API: control surface bind address, bearer token, rate limit
//   - Store: entity store driver and DSN
//   - LLM: shared collaborator connection settings
//   - Breaker: circuit breaker around collaborator calls
//   - Generation / Translation: executor settings
//   - Collections: publish gate behaviour
//   - Workers: worker pool sizing and heartbeat timing
//   - Notifications: ntfy push notification settings
//   - Logging, Metrics: observability
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Store         Store         `toml:"store"`
	LLM           LLM           `toml:"llm"`
	Breaker       Breaker       `toml:"breaker"`
	Generation    Generation    `toml:"generation"`
	Translation   Translation   `toml:"translation"`
	Collections   Collections   `toml:"collections"`
	Workers       Workers       `toml:"workers"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recipeforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location used when store.dsn is empty.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "recipeforge.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "recipeforged.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// APIBaseURL returns the http URL clients use to reach the control surface.
func (c *Config) APIBaseURL() string {
	bind := strings.TrimSpace(c.API.Bind)
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	if strings.HasPrefix(bind, "0.0.0.0:") {
		bind = "127.0.0.1:" + strings.TrimPrefix(bind, "0.0.0.0:")
	}
	return "http://" + bind
}

// Redacted returns a copy safe to print: credentials and DSN passwords are
// replaced with a fixed mask.
func (c Config) Redacted() Config {
	const mask = "********"
	if c.API.Token != "" {
		c.API.Token = mask
	}
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = mask
	}
	if u, err := url.Parse(c.Store.DSN); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), mask)
			c.Store.DSN = u.String()
		}
	}
	return c
}
