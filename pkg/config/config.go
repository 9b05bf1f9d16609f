package config

import (
	"context"
	"fmt"
	"time"
)

// Config represents the complete configuration for the K2BRD service.
// It is built once at startup and handed to each component's constructor.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
	Tracker    TrackerConfig    `koanf:"tracker"    validate:"required"`
	LLM        LLMConfig        `koanf:"llm"        validate:"required"`
	Labels     LabelsConfig     `koanf:"labels"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// ServerConfig contains HTTP server configuration. Timeout bounds writing a
// response and must cover a whole generation batch.
type ServerConfig struct {
	Host    string        `koanf:"host"    validate:"required"        env:"SERVER_HOST"`
	Port    int           `koanf:"port"    validate:"min=1,max=65535" env:"SERVER_PORT"`
	Timeout time.Duration `koanf:"timeout"                            env:"SERVER_TIMEOUT"`
	CORS    CORSConfig    `koanf:"cors"`
}

// FullAddress returns host:port for the HTTP listener.
func (s *ServerConfig) FullAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"   validate:"dive,origin" env:"CLIENT_ORIGIN"`
	AllowCredentials bool     `koanf:"allow_credentials" env:"SERVER_CORS_ALLOW_CREDENTIALS"`
	MaxAge           int      `koanf:"max_age"           env:"SERVER_CORS_MAX_AGE"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	ProjectName string `koanf:"project_name"                                                     env:"PROJECT_NAME"`
	Environment string `koanf:"environment" validate:"oneof=development staging production"      env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error disabled"       env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                         env:"RUNTIME_LOG_JSON"`
	DevMode     bool   `koanf:"dev_mode"                                                         env:"DEV_MODE"`
}

// TrackerConfig contains the Trello API configuration.
type TrackerConfig struct {
	BaseURL           string          `koanf:"base_url"            validate:"required,url" env:"TRELLO_BASE_URL"`
	APIKey            SensitiveString `koanf:"api_key"                                     env:"TRELLO_API_KEY"            sensitive:"true"`
	Token             SensitiveString `koanf:"token"                                       env:"TRELLO_TOKEN"              sensitive:"true"`
	Timeout           time.Duration   `koanf:"timeout"                                     env:"TRELLO_TIMEOUT"`
	ListCacheSize     int             `koanf:"list_cache_size"     validate:"min=1"        env:"TRELLO_LIST_CACHE_SIZE"`
	ListCacheTTL      time.Duration   `koanf:"list_cache_ttl"                              env:"TRELLO_LIST_CACHE_TTL"`
	ExcludedCardNames []string        `koanf:"excluded_card_names"                         env:"TRELLO_EXCLUDED_CARD_NAMES"`
}

// LLMConfig contains the generation provider configuration.
type LLMConfig struct {
	Host         string          `koanf:"host"         validate:"required,url" env:"LLM_HOST"`
	Model        string          `koanf:"model"        validate:"required"     env:"LLM_MODEL"`
	APIKey       SensitiveString `koanf:"api_key"                              env:"LLM_API_KEY"      sensitive:"true"`
	MaxTokens    int             `koanf:"max_tokens"   validate:"min=1"        env:"MAX_TOKENS"`
	Temperature  float64         `koanf:"temperature"  validate:"min=0,max=2"  env:"LLM_TEMPERATURE"`
	Instructions string          `koanf:"instructions"                         env:"LLM_INSTRUCTIONS"`
	PromptFile   string          `koanf:"prompt_file"                          env:"LLM_PROMPT_FILE"`
	Timeout      time.Duration   `koanf:"timeout"                              env:"LLM_TIMEOUT"`
}

// LabelsConfig points at the optional label taxonomy file.
type LabelsConfig struct {
	ConfigFile string `koanf:"config_file" env:"LABEL_CONFIG_FILE"`
}

// RateLimitConfig contains rate limiting configuration. Counters live in
// memory unless RedisURL is set.
type RateLimitConfig struct {
	Enabled  bool            `koanf:"enabled"   env:"RATELIMIT_ENABLED"`
	Limit    int64           `koanf:"limit"     env:"RATELIMIT_LIMIT"`
	Period   time.Duration   `koanf:"period"    env:"RATELIMIT_PERIOD"`
	RedisURL SensitiveString `koanf:"redis_url" env:"RATELIMIT_REDIS_URL" sensitive:"true"`
}

// MonitoringConfig controls the Prometheus endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// Service defines the configuration loading interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load(ctx context.Context, sources ...Source) (*Config, error) {
	return NewService().Load(ctx, sources...)
}

// Default returns a Config with default values for development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 10 * time.Minute,
			CORS: CORSConfig{
				AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8000"},
				AllowCredentials: true,
				MaxAge:           600,
			},
		},
		Runtime: RuntimeConfig{
			ProjectName: "K2BRD",
			Environment: "development",
			LogLevel:    "info",
		},
		Tracker: TrackerConfig{
			BaseURL:           "https://api.trello.com/1",
			Timeout:           30 * time.Second,
			ListCacheSize:     256,
			ListCacheTTL:      5 * time.Minute,
			ExcludedCardNames: []string{"Design & Research", "Done", "[Completed Task]"},
		},
		LLM: LLMConfig{
			Host:         "http://localhost:1234",
			Model:        "local-model",
			MaxTokens:    2500,
			Temperature:  0.7,
			Instructions: "You are a business analyst expert at creating detailed BRDs.",
			Timeout:      5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: false,
			Limit:   60,
			Period:  time.Minute,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
