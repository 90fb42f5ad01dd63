package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPPort    int    `mapstructure:"http_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig locates the grant search index. URL is a single-node
// shorthand for Addresses.
type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	URL        string   `mapstructure:"url"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	GrantIndex string   `mapstructure:"grant_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// MatchingConfig tunes the discovery pipeline and the match cache.
type MatchingConfig struct {
	DefaultLimit          int `mapstructure:"default_limit"`
	MaxLimit              int `mapstructure:"max_limit"`
	DefaultMinScore       int `mapstructure:"default_min_score"`
	DebugTraceSize        int `mapstructure:"debug_trace_size"`
	CacheTTLHours         int `mapstructure:"cache_ttl_hours"`
	CacheLookupConcurrent int `mapstructure:"cache_lookup_concurrency"`
	AIBudget              int `mapstructure:"ai_budget"`      // milliseconds
	MaxAIAnalyses         int `mapstructure:"max_ai_analyses"`
	MinRelevanceScore     int `mapstructure:"min_relevance_score"`
	GrantPoolSize         int `mapstructure:"grant_pool_size"`
	SweepBatchSize        int `mapstructure:"sweep_batch_size"`
	SweepInterval         int `mapstructure:"sweep_interval"` // minutes, 0 disables the in-process sweep
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		Provider   string `mapstructure:"provider"` // "gemini", "gateway" or "none"
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		Model      string `mapstructure:"model"`
		Timeout    int    `mapstructure:"timeout"`  // milliseconds, per analysis
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"genai"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
