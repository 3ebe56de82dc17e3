package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Pipeline stage names. Each stage owns an OperationAIConfig.
const (
	StageParse     = "parse"
	StageAnalyze   = "analyze"
	StageScore     = "score"
	StageAutofix   = "autofix"
	StageTailor    = "tailor"
	StageExtract   = "extract"
	StageInterview = "interview"
)

// Stages lists every AI stage in a stable order.
var Stages = []string{StageParse, StageAnalyze, StageScore, StageAutofix, StageTailor, StageExtract, StageInterview}

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured)
// 2. Config file values
// 3. Environment variables (NIENA_AI_APIKEY, NIENA_DATABASE_DSN, ...)
// 4. Default values
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JobSearch     JobSearchConfig     `mapstructure:"jobSearch"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Credits       CreditsConfig       `mapstructure:"credits"`
	Plans         PlansConfig         `mapstructure:"plans"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global values used when a stage leaves a field unset
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	BaseURL          string        `mapstructure:"baseURL"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`

	Parse     OperationAIConfig `mapstructure:"parse"`
	Analyze   OperationAIConfig `mapstructure:"analyze"`
	Score     OperationAIConfig `mapstructure:"score"`
	Autofix   OperationAIConfig `mapstructure:"autofix"`
	Tailor    OperationAIConfig `mapstructure:"tailor"`
	Extract   OperationAIConfig `mapstructure:"extract"`
	Interview OperationAIConfig `mapstructure:"interview"`

	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed while half-open
	Interval         time.Duration `mapstructure:"interval"`         // count reset interval while closed
	Timeout          time.Duration `mapstructure:"timeout"`          // open to half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // before tripping is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// OperationAIConfig holds AI configuration for a single pipeline stage
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds prompt overrides for a stage, inline or from files
type PromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// EmbeddingConfig configures the embeddings model used for jobs and resumes
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"baseURL"`
	APIKey     string        `mapstructure:"apiKey"`
	Dimensions int           `mapstructure:"dimensions"`
	BatchSize  int           `mapstructure:"batchSize"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"maxRetries"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"maxConns"`
	MinConns          int32         `mapstructure:"minConns"`
	MaxConnLifetime   time.Duration `mapstructure:"maxConnLifetime"`
	HealthCheckPeriod time.Duration `mapstructure:"healthCheckPeriod"`
	ConnectTimeout    time.Duration `mapstructure:"connectTimeout"`
	AutoMigrate       bool          `mapstructure:"autoMigrate"`
}

// RedisConfig holds Redis settings for caching and cron locks
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	MatchTTL  time.Duration `mapstructure:"matchTTL"`
	SearchTTL time.Duration `mapstructure:"searchTTL"`
}

// JobSearchConfig configures the external job listings API
type JobSearchConfig struct {
	BaseURL    string        `mapstructure:"baseURL"`
	APIKey     string        `mapstructure:"apiKey"`
	APIHost    string        `mapstructure:"apiHost"`
	Queries    []string      `mapstructure:"queries"`
	Pages      int           `mapstructure:"pages"`
	DatePosted string        `mapstructure:"datePosted"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"maxRetries"`
}

// SchedulerConfig holds cron specs for background jobs
type SchedulerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	IngestSpec      string        `mapstructure:"ingestSpec"`
	PlanExpirySpec  string        `mapstructure:"planExpirySpec"`
	StaleSweepSpec  string        `mapstructure:"staleSweepSpec"`
	LockTTL         time.Duration `mapstructure:"lockTTL"`
	IngestTimeout   time.Duration `mapstructure:"ingestTimeout"`
	ExpiryBatchSize int           `mapstructure:"expiryBatchSize"`

	// In-flight records untouched for this long are failed and refunded
	StaleAfter time.Duration `mapstructure:"staleAfter"`
}

// PipelineConfig sizes the background workflow runner and ingestion fan-out
type PipelineConfig struct {
	Workers           int           `mapstructure:"workers"`
	QueueSize         int           `mapstructure:"queueSize"`
	IngestConcurrency int           `mapstructure:"ingestConcurrency"`
	WorkflowTimeout   time.Duration `mapstructure:"workflowTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
}

// CreditsConfig defines credit costs and the FREE plan allowance
type CreditsConfig struct {
	InitialFree   int `mapstructure:"initialFree"`
	ResumeCost    int `mapstructure:"resumeCost"`
	TailorCost    int `mapstructure:"tailorCost"`
	InterviewCost int `mapstructure:"interviewCost"`
	ReanalyzeCost int `mapstructure:"reanalyzeCost"`
}

// PlanConfig describes a paid plan
type PlanConfig struct {
	Credits  int           `mapstructure:"credits"`
	Duration time.Duration `mapstructure:"duration"`
	Price    int64         `mapstructure:"price"` // minor currency units
	Currency string        `mapstructure:"currency"`
}

// PlansConfig holds the paid plans
type PlansConfig struct {
	Pro     PlanConfig `mapstructure:"pro"`
	Premium PlanConfig `mapstructure:"premium"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	MaxBodyBytes int64         `mapstructure:"maxBodyBytes"`

	TLS TLSConfig `mapstructure:"tls"`

	// Gateway keys allowed to call the API
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string `mapstructure:"mode"` // disabled, server, mutual
	CertFile         string `mapstructure:"certFile"`
	KeyFile          string `mapstructure:"keyFile"`
	CAFile           string `mapstructure:"caFile"`
	MinVersion       string `mapstructure:"minVersion"`
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"`
	AutoReload       bool   `mapstructure:"autoReload"` // reload cert files when they change
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
	ByUser         bool `mapstructure:"byUser"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	WatchConfig      bool     `mapstructure:"watchConfig"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// CustomMetricsConfig toggles groups of custom instruments
type CustomMetricsConfig struct {
	AIOperations    bool `mapstructure:"aiOperations"`
	TokenUsage      bool `mapstructure:"tokenUsage"`
	BusinessMetrics bool `mapstructure:"businessMetrics"`
	Infrastructure  bool `mapstructure:"infrastructure"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from defaults, the config file and the environment
func LoadConfig() (*Config, error) {
	cfg, _, err := loadWithViper(viper.New())
	return cfg, err
}

// loadWithViper runs the full load sequence on v and returns v so callers can watch it.
func loadWithViper(v *viper.Viper) (*Config, *viper.Viper, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)

	v.SetEnvPrefix("NIENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/niena/")
	v.AddConfigPath("$HOME/.niena")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, v, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.AI.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive")
	}

	if c.Scheduler.StaleAfter > 0 && c.Scheduler.StaleAfter <= c.Pipeline.WorkflowTimeout {
		return fmt.Errorf("scheduler staleAfter must exceed the pipeline workflow timeout")
	}

	if c.Credits.ResumeCost < 0 || c.Credits.TailorCost < 0 || c.Credits.InterviewCost < 0 || c.Credits.ReanalyzeCost < 0 {
		return fmt.Errorf("credit costs must not be negative")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// RequireAIKey reports an error when no API key is available for the AI providers.
// Commands that never call a model (migrate, version) skip this check.
func (c *Config) RequireAIKey() error {
	for _, stage := range Stages {
		if c.GetStageConfig(stage).APIKey == "" {
			return fmt.Errorf("AI API key is required for stage %q (set NIENA_AI_APIKEY)", stage)
		}
	}
	if c.GetEmbeddingConfig().APIKey == "" {
		return fmt.Errorf("AI API key is required for embeddings (set NIENA_AI_APIKEY)")
	}
	return nil
}
