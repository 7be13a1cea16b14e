// Package config provides unified configuration for the vizagent service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (VIZAGENT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the vizagent service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Workflow      WorkflowConfig      `yaml:"workflow"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// ProviderConfig holds language-model backend settings.
type ProviderConfig struct {
	BackendURL string        `yaml:"backend_url"`  // required
	APIKey     string        `yaml:"api_key"`      // optional
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s
}

// WorkflowConfig holds refinement loop settings.
type WorkflowConfig struct {
	CoderModel    string `yaml:"coder_model"`    // default: "gpt-4"
	CriticModel   string `yaml:"critic_model"`   // default: coder_model
	MaxIterations int    `yaml:"max_iterations"` // default cap for submissions, default: 5
}

// SandboxConfig holds code execution settings.
type SandboxConfig struct {
	// Mode selects the executor: "local" (child processes) or "remote"
	// (sandbox server over HTTP). Default: "local".
	Mode string `yaml:"mode"`

	// Timeout is the per-execution wall-clock limit (default: 30s).
	Timeout time.Duration `yaml:"timeout"`

	// Interpreter runs fragments in local mode (default: python3).
	Interpreter string `yaml:"interpreter"`

	// URL is the static sandbox server address for remote mode.
	// Mutually exclusive with Template.
	URL string `yaml:"url"`

	// Template is the SandboxTemplate CRD name for per-execution pods in
	// remote mode. Mutually exclusive with URL.
	Template string `yaml:"template"`

	// Namespace is the Kubernetes namespace for SandboxClaims.
	Namespace string `yaml:"namespace"`

	// ClaimTimeout bounds waiting for a claimed sandbox to become ready
	// (default: 30s).
	ClaimTimeout time.Duration `yaml:"claim_timeout"`
}

// StorageConfig holds job store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Provider: ProviderConfig{
			Timeout: 120 * time.Second,
		},
		Workflow: WorkflowConfig{
			CoderModel:    "gpt-4",
			MaxIterations: 5,
		},
		Sandbox: SandboxConfig{
			Mode:         "local",
			Timeout:      30 * time.Second,
			Interpreter:  "python3",
			ClaimTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
