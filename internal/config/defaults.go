package config

const (
	defaultConfigPath              = "~/.config/recipeforge/config.toml"
	defaultDataDir                 = "~/.local/share/recipeforge"
	defaultLogDir                  = "~/.local/share/recipeforge/logs"
	defaultAPIBind                 = "127.0.0.1:7610"
	defaultAPIRateLimitPerMinute   = 600
	defaultStoreDriver             = "sqlite"
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-3-flash-preview"
	defaultLLMReferer              = "https://github.com/recipeforge/recipeforge"
	defaultLLMTitle                = "recipeforge"
	defaultLLMTimeoutSeconds       = 120
	defaultLLMRequestsPerMinute    = 30
	defaultLLMBurst                = 1
	defaultBreakerMaxRequests      = 1
	defaultBreakerIntervalSeconds  = 60
	defaultBreakerTimeoutSeconds   = 120
	defaultBreakerMinRequests      = 5
	defaultBreakerFailureRatio     = 0.6
	defaultMaxRecipeNames          = 50
	defaultGenerationCallTimeout   = 180
	defaultSourceLang              = "en"
	defaultTranslationPriority     = 5
	defaultTranslationMaxRetries   = 3
	defaultTranslationCallTimeout  = 120
	defaultTranslationRetryBase    = 30
	defaultTranslationRetryMax     = 900
	defaultCollectionMinRequired   = 10
	defaultCollectionTargetCount   = 30
	defaultCollectionSampleSize    = 10
	defaultGenerationWorkers       = 1
	defaultTranslationWorkers      = 2
	defaultPollIntervalSeconds     = 5
	defaultErrorRetryInterval      = 10
	defaultWorkerHeartbeatInterval = 15
	defaultWorkerHeartbeatTimeout  = 120
	defaultMaxTaskAttempts         = 5
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultMetricsPath             = "/metrics"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind:               defaultAPIBind,
			RateLimitPerMinute: defaultAPIRateLimitPerMinute,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RequestsPerMinute: defaultLLMRequestsPerMinute,
			Burst:             defaultLLMBurst,
		},
		Breaker: Breaker{
			Enabled:         true,
			MaxRequests:     defaultBreakerMaxRequests,
			IntervalSeconds: defaultBreakerIntervalSeconds,
			TimeoutSeconds:  defaultBreakerTimeoutSeconds,
			MinRequests:     defaultBreakerMinRequests,
			FailureRatio:    defaultBreakerFailureRatio,
		},
		Generation: Generation{
			MaxRecipeNames:     defaultMaxRecipeNames,
			CallTimeoutSeconds: defaultGenerationCallTimeout,
			AutoStart:          true,
		},
		Translation: Translation{
			SourceLang:         defaultSourceLang,
			DefaultPriority:    defaultTranslationPriority,
			MaxRetries:         defaultTranslationMaxRetries,
			CallTimeoutSeconds: defaultTranslationCallTimeout,
			RetryBaseSeconds:   defaultTranslationRetryBase,
			RetryMaxSeconds:    defaultTranslationRetryMax,
		},
		Collections: Collections{
			DefaultMinRequired: defaultCollectionMinRequired,
			DefaultTargetCount: defaultCollectionTargetCount,
			SampleSize:         defaultCollectionSampleSize,
		},
		Workers: Workers{
			GenerationWorkers:   defaultGenerationWorkers,
			TranslationWorkers:  defaultTranslationWorkers,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			HeartbeatInterval:   defaultWorkerHeartbeatInterval,
			HeartbeatTimeout:    defaultWorkerHeartbeatTimeout,
			MaxTaskAttempts:     defaultMaxTaskAttempts,
		},
		Notifications: Notifications{
			RequestTimeout:      defaultNotifyRequestTimeout,
			JobCompleted:        true,
			CollectionPublished: true,
			Errors:              true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    defaultMetricsPath,
		},
	}
}
