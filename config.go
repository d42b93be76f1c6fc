package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	MaxRetries        int     `yaml:"max_retries"`
	RetryDelaySeconds float64 `yaml:"retry_delay_seconds"`
	RateLimitDelayMS  int     `yaml:"rate_limit_delay_ms"`
	LLMExampleCount   int     `yaml:"llm_example_count"`

	AppName        string   `yaml:"app_name"`
	PackageNames   []string `yaml:"package_names"`
	VocabularyPath string   `yaml:"vocabulary_path"`
	LanguageCheck  bool     `yaml:"language_check"`

	CheckpointDBPath string `yaml:"checkpoint_db_path"`
	ResultsDir       string `yaml:"results_dir"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig(configPath string) Config {
	var cfg Config

	if configPath == "" {
		configPath = "config.yaml"
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		}
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.MaxRetries, "MAX_RETRIES")
	envOverrideFloat(&cfg.RetryDelaySeconds, "RETRY_DELAY_SECONDS")
	envOverrideInt(&cfg.RateLimitDelayMS, "RATE_LIMIT_DELAY_MS")
	envOverrideInt(&cfg.LLMExampleCount, "LLM_EXAMPLE_COUNT")
	envOverride(&cfg.AppName, "APP_NAME")
	envOverride(&cfg.VocabularyPath, "VOCABULARY_PATH")
	envOverride(&cfg.CheckpointDBPath, "CHECKPOINT_DB_PATH")
	envOverride(&cfg.ResultsDir, "RESULTS_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.Schedule, "SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if names := os.Getenv("PACKAGE_NAMES"); names != "" {
		cfg.PackageNames = nil
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.PackageNames = append(cfg.PackageNames, name)
			}
		}
	}

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelaySeconds == 0 {
		cfg.RetryDelaySeconds = 2
	}
	if cfg.RateLimitDelayMS == 0 {
		cfg.RateLimitDelayMS = 500
	}
	if cfg.LLMExampleCount == 0 {
		cfg.LLMExampleCount = 6
	}
	if cfg.AppName == "" {
		cfg.AppName = "Firefox"
	}
	if len(cfg.PackageNames) == 0 {
		cfg.PackageNames = []string{"org.mozilla.firefox", "org.mozilla.firefox_beta", "org.mozilla.fenix"}
	}
	if cfg.CheckpointDBPath == "" {
		cfg.CheckpointDBPath = "./data/checkpoints.db"
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "./results"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}

	// Validate
	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	if cfg.MaxRetries < 1 {
		log.Fatalf("invalid max_retries '%d': must be >= 1", cfg.MaxRetries)
	}
	if cfg.RetryDelaySeconds < 0 {
		log.Fatalf("invalid retry_delay_seconds '%f': must be >= 0", cfg.RetryDelaySeconds)
	}
	if cfg.RateLimitDelayMS < 0 {
		log.Fatalf("invalid rate_limit_delay_ms '%d': must be >= 0", cfg.RateLimitDelayMS)
	}
	if cfg.LLMExampleCount < 0 {
		log.Fatalf("invalid llm_example_count '%d': must be >= 0", cfg.LLMExampleCount)
	}
	if cfg.VocabularyPath != "" {
		if _, err := LoadVocabulary(cfg.VocabularyPath); err != nil {
			log.Fatalf("invalid vocabulary_path '%s': %v", cfg.VocabularyPath, err)
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg
}

func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

func (c Config) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimitDelayMS) * time.Millisecond
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
