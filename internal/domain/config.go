package domain

import "time"

// Config holds the complete FraudGuard configuration.
type Config struct {
	// Profile names the defaults the config was built from ("local" or "cluster")
	Profile string `json:"profile"`

	// Server settings
	Server ServerConfig `json:"server"`

	// Identity and dashboard sessions
	Auth    AuthConfig    `json:"auth"`
	Session SessionConfig `json:"session"`

	// Analysis pipeline
	Analysis AnalysisConfig `json:"analysis"`
	Behavior BehaviorConfig `json:"behavior"`
	Predict  PredictConfig  `json:"predict"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// AuthConfig selects how dashboard users are authenticated.
type AuthConfig struct {
	// Mode is "oidc" (hosted identity provider) or "dev" (email only)
	Mode     string `json:"mode"`
	Issuer   string `json:"issuer"`
	ClientID string `json:"clientId"`
}

// SessionConfig bounds dashboard sessions.
type SessionConfig struct {
	TTL                  time.Duration `json:"ttl"`
	MaxAnalysesPerWindow int           `json:"maxAnalysesPerWindow"`
	ThrottleWindow       time.Duration `json:"throttleWindow"`
}

// AnalysisConfig controls the analysis pipeline.
type AnalysisConfig struct {
	// StepDelay is the pause between progress steps (0 disables it)
	StepDelay time.Duration `json:"stepDelay"`

	// AlertThreshold is the probability above which a record is fraud
	AlertThreshold float64 `json:"alertThreshold"`

	// MaxWorkers bounds concurrent rule evaluation
	MaxWorkers int `json:"maxWorkers"`

	// RulesFile overlays YAML rules on the built-in ones and is watched
	// for edits. Empty means built-in rules only.
	RulesFile string `json:"rulesFile"`
}

// BehaviorConfig selects the behaviour-model scorer.
type BehaviorConfig struct {
	// Scorer is "none", "random" or "remote"
	Scorer string `json:"scorer"`

	// Seed makes the random scorer reproducible (0 = time seeded)
	Seed uint64 `json:"seed"`
}

// PredictConfig points at the external prediction service.
type PredictConfig struct {
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Behaviour scorer names.
const (
	ScorerNone   = "none"
	ScorerRandom = "random"
	ScorerRemote = "remote"
)

// Auth modes.
const (
	AuthModeOIDC = "oidc"
	AuthModeDev  = "dev"
)

// Config profiles.
const (
	ProfileLocal   = "local"
	ProfileCluster = "cluster"
)

// DefaultAlertThreshold is the probability a record must exceed to be fraud.
const DefaultAlertThreshold = 0.6

// DefaultConfig returns the local single-node configuration:
// SQLite archive, in-memory cache and channel bus.
func DefaultConfig() *Config {
	return &Config{
		Profile: ProfileLocal,
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Auth: AuthConfig{
			Mode: AuthModeDev,
		},
		Session: SessionConfig{
			TTL:                  12 * time.Hour,
			MaxAnalysesPerWindow: 30,
			ThrottleWindow:       time.Minute,
		},
		Analysis: AnalysisConfig{
			StepDelay:      0,
			AlertThreshold: DefaultAlertThreshold,
			MaxWorkers:     4,
		},
		Behavior: BehaviorConfig{
			Scorer: ScorerNone,
		},
		Predict: PredictConfig{
			Endpoint: "http://127.0.0.1:5000/api/predict",
			Timeout:  10 * time.Second,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./fraudguard.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "fraudguard",
		},
	}
}

// ClusterConfig returns a multi-node configuration:
// PostgreSQL archive, Redis-backed sessions and NATS.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Profile = ProfileCluster
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "fraudguard",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
		NATSQueueGroup:    "fraudguard-workers",
	}
	cfg.Auth.Mode = AuthModeOIDC
	cfg.Tracing.Enabled = true
	return cfg
}
