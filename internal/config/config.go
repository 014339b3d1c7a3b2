package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Ranking RankingConfig
	Storage StorageConfig
	Worker  WorkerConfig
	Retry   RetryConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type GeminiConfig struct {
	APIKey            string
	SummaryModel      string
	EmbeddingModel    string
	RequestsPerSecond float64
	Burst             int
	Temperature       float32
}

// RankingConfig holds the filter defaults applied when a request does not
// supply its own threshold or cap. Timeout bounds one API ranking run; zero
// disables it.
type RankingConfig struct {
	MinScore                float64
	MaxResults              int
	AbortOnSummarizerOutage bool
	Timeout                 time.Duration
}

type StorageConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

type WorkerConfig struct {
	Concurrency int
}

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	CallTimeout  time.Duration
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

var defaults = map[string]any{
	"port":                       "3000",
	"env":                        "development",
	"gemini_api_key":             "",
	"gemini_summary_model":       "gemini-2.5-flash",
	"gemini_embedding_model":     "text-embedding-004",
	"gemini_requests_per_second": 5.0,
	"gemini_burst":               5,
	"gemini_temperature":         0.3,
	"min_score":                  70.0,
	"max_results":                10,
	"abort_on_summarizer_outage": false,
	"rank_timeout":               "9m",
	"max_file_size":              int64(10485760),
	"allowed_extensions":         ".pdf",
	"worker_concurrency":         3,
	"retry_max_attempts":         3,
	"retry_initial_delay":        "2s",
	"retry_max_delay":            "30s",
	"retry_multiplier":           2.0,
	"retry_call_timeout":         "60s",
	"log_json":                   false,
	"log_debug":                  false,
}

// Load reads configuration from the environment (after loading an optional
// .env file) and, when configFile is not empty, from that file. Environment
// variables take precedence over the file.
func Load(configFile string) (*Config, error) {
	return LoadWith(viper.New(), configFile)
}

// LoadWith is Load on a caller-owned viper instance, so flags bound to v
// take precedence over the environment.
func LoadWith(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("port"),
			Env:  v.GetString("env"),
		},
		Gemini: GeminiConfig{
			APIKey:            v.GetString("gemini_api_key"),
			SummaryModel:      v.GetString("gemini_summary_model"),
			EmbeddingModel:    v.GetString("gemini_embedding_model"),
			RequestsPerSecond: v.GetFloat64("gemini_requests_per_second"),
			Burst:             v.GetInt("gemini_burst"),
			Temperature:       float32(v.GetFloat64("gemini_temperature")),
		},
		Ranking: RankingConfig{
			MinScore:                v.GetFloat64("min_score"),
			MaxResults:              v.GetInt("max_results"),
			AbortOnSummarizerOutage: v.GetBool("abort_on_summarizer_outage"),
			Timeout:                 v.GetDuration("rank_timeout"),
		},
		Storage: StorageConfig{
			MaxFileSize:       v.GetInt64("max_file_size"),
			AllowedExtensions: parseExtensions(v.GetString("allowed_extensions")),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker_concurrency"),
		},
		Retry: RetryConfig{
			MaxAttempts:  v.GetInt("retry_max_attempts"),
			InitialDelay: v.GetDuration("retry_initial_delay"),
			MaxDelay:     v.GetDuration("retry_max_delay"),
			Multiplier:   v.GetFloat64("retry_multiplier"),
			CallTimeout:  v.GetDuration("retry_call_timeout"),
		},
		Log: LogConfig{
			JSON:  v.GetBool("log_json"),
			Debug: v.GetBool("log_debug"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Ranking.MinScore < 0 || c.Ranking.MinScore > 100 {
		return fmt.Errorf("MIN_SCORE must be between 0 and 100, got %v", c.Ranking.MinScore)
	}
	if c.Ranking.MaxResults < 0 {
		return fmt.Errorf("MAX_RESULTS must not be negative, got %d", c.Ranking.MaxResults)
	}
	if c.Ranking.Timeout < 0 {
		return fmt.Errorf("RANK_TIMEOUT must not be negative, got %s", c.Ranking.Timeout)
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.Storage.MaxFileSize)
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("RETRY_MULTIPLIER must be at least 1, got %v", c.Retry.Multiplier)
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("RETRY_MAX_DELAY (%s) must not be below RETRY_INITIAL_DELAY (%s)", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	if c.Gemini.RequestsPerSecond <= 0 {
		return fmt.Errorf("GEMINI_REQUESTS_PER_SECOND must be positive, got %v", c.Gemini.RequestsPerSecond)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func parseExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		ext := strings.ToLower(strings.TrimSpace(part))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
