package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	LLM       LLM       `mapstructure:"llm"`
	Feeds     Feeds     `mapstructure:"feeds"`
	Backfill  Backfill  `mapstructure:"backfill"`
	Storage   Storage   `mapstructure:"storage"`
	Classify  Classify  `mapstructure:"classify"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// Scheduler holds the background poll loop configuration
type Scheduler struct {
	PollInterval string `mapstructure:"poll_interval"`
	SettleDelay  string `mapstructure:"settle_delay"`
}

// LLM holds provider chain and per-provider configuration
type LLM struct {
	Chain             []string     `mapstructure:"chain"`
	AttemptTimeout    string       `mapstructure:"attempt_timeout"`
	RequestsPerSecond float64      `mapstructure:"requests_per_second"`
	Burst             int          `mapstructure:"burst"`
	Gemini            GeminiConfig `mapstructure:"gemini"`
	Groq              GroqConfig   `mapstructure:"groq"`
	OpenAI            OpenAIConfig `mapstructure:"openai"`
	Ollama            OllamaConfig `mapstructure:"ollama"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// GroqConfig holds Groq configuration (OpenAI-compatible API)
type GroqConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// OllamaConfig holds local Ollama configuration
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Feeds holds RSS/feed configuration
type Feeds struct {
	URLs            []string `mapstructure:"urls"`
	MaxItemsPerFeed int      `mapstructure:"max_items_per_feed"`
	Timeout         string   `mapstructure:"timeout"`
	UserAgent       string   `mapstructure:"user_agent"`
}

// Backfill holds summary backfill configuration
type Backfill struct {
	MaxBatch int `mapstructure:"max_batch"`
}

// Storage holds item store configuration
type Storage struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Classify holds classification configuration
type Classify struct {
	VocabularyFile string `mapstructure:"vocabulary_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".helder")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".helder")

	// Scheduler defaults
	viper.SetDefault("scheduler.poll_interval", "15m")
	viper.SetDefault("scheduler.settle_delay", "2s")

	// LLM defaults
	viper.SetDefault("llm.chain", []string{"gemini", "groq", "ollama"})
	viper.SetDefault("llm.attempt_timeout", "30s")
	viper.SetDefault("llm.requests_per_second", 1.0)
	viper.SetDefault("llm.burst", 1)
	viper.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("llm.gemini.max_tokens", 1024)
	viper.SetDefault("llm.gemini.temperature", 0.2)
	viper.SetDefault("llm.groq.model", "llama-3.1-8b-instant")
	viper.SetDefault("llm.groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.ollama.base_url", "http://localhost:11434")
	viper.SetDefault("llm.ollama.model", "llama3.2")

	// Feeds defaults
	viper.SetDefault("feeds.urls", []string{
		"https://feeds.nos.nl/nosnieuwsalgemeen",
		"https://feeds.nos.nl/nosnieuwsbinnenland",
		"https://feeds.nos.nl/nosnieuwsbuitenland",
	})
	viper.SetDefault("feeds.max_items_per_feed", 50)
	viper.SetDefault("feeds.timeout", "30s")
	viper.SetDefault("feeds.user_agent", "Helder/1.0")

	// Backfill defaults
	viper.SetDefault("backfill.max_batch", 10)

	// Storage defaults
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.dsn", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("llm.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	// Groq API key
	bindEnvKeys("llm.groq.api_key", []string{
		"GROQ_API_KEY",
	})

	// OpenAI API key
	bindEnvKeys("llm.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	// Ollama host
	bindEnvKeys("llm.ollama.base_url", []string{
		"OLLAMA_HOST",
		"OLLAMA_BASE_URL",
	})

	// Log level
	bindEnvKeys("logging.level", []string{
		"HELDER_LOG_LEVEL",
	})

	// Storage DSN
	bindEnvKeys("storage.dsn", []string{
		"DATABASE_URL",
		"HELDER_DSN",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"HELDER_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// Expand paths
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Classify.VocabularyFile != "" {
		config.Classify.VocabularyFile = expandPath(config.Classify.VocabularyFile)
	}

	// Validate durations
	durations := map[string]string{
		"scheduler.poll_interval": config.Scheduler.PollInterval,
		"scheduler.settle_delay":  config.Scheduler.SettleDelay,
		"llm.attempt_timeout":     config.LLM.AttemptTimeout,
		"feeds.timeout":           config.Feeds.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	if len(config.Feeds.URLs) == 0 {
		errors = append(errors, "at least one feed URL is required (feeds.urls)")
	}

	for _, name := range config.LLM.Chain {
		switch name {
		case "gemini", "groq", "openai", "ollama":
		default:
			errors = append(errors, fmt.Sprintf("unknown provider in llm.chain: %s. Supported: gemini, groq, openai, ollama", name))
		}
	}

	switch config.Storage.Driver {
	case "sqlite", "postgres":
	default:
		errors = append(errors, fmt.Sprintf("unknown storage driver: %s. Supported: sqlite, postgres", config.Storage.Driver))
	}

	if config.Storage.Driver == "postgres" && config.Storage.DSN == "" {
		errors = append(errors, "postgres storage requires a DSN. Set DATABASE_URL environment variable or storage.dsn in config file")
	}

	if config.Backfill.MaxBatch <= 0 {
		errors = append(errors, "backfill.max_batch must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App             { return Get().App }
func GetScheduler() Scheduler { return Get().Scheduler }
func GetLLM() LLM             { return Get().LLM }
func GetFeeds() Feeds         { return Get().Feeds }
func GetBackfill() Backfill   { return Get().Backfill }
func GetStorage() Storage     { return Get().Storage }
func GetClassify() Classify   { return Get().Classify }
func GetLogging() Logging     { return Get().Logging }

// PollIntervalDuration returns the parsed scheduler poll interval.
func (s Scheduler) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SettleDelayDuration returns the parsed delay between ingest and backfill.
func (s Scheduler) SettleDelayDuration() time.Duration {
	d, err := time.ParseDuration(s.SettleDelay)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// AttemptTimeoutDuration returns the parsed per-provider attempt timeout.
func (l LLM) AttemptTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.AttemptTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// TimeoutDuration returns the parsed feed fetch timeout.
func (f Feeds) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DatabasePath returns the sqlite database path inside the data directory.
func (s Storage) DatabasePath(dataDir string) string {
	if s.DSN != "" {
		return s.DSN
	}
	return filepath.Join(dataDir, "helder.db")
}

// IsDebugMode reports whether verbose debugging is enabled.
func IsDebugMode() bool { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
