package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Provider.BackendURL == "" {
		errs = append(errs, fmt.Errorf("provider.backend_url is required"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Workflow.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("workflow.max_iterations must be > 0, got %d", c.Workflow.MaxIterations))
	}

	switch c.Sandbox.Mode {
	case "local":
	case "remote":
		if c.Sandbox.URL != "" && c.Sandbox.Template != "" {
			errs = append(errs, fmt.Errorf("sandbox.url and sandbox.template are mutually exclusive"))
		}
		if c.Sandbox.URL == "" && c.Sandbox.Template == "" {
			errs = append(errs, fmt.Errorf("sandbox.url or sandbox.template is required when sandbox.mode is \"remote\""))
		}
		if c.Sandbox.Template != "" && c.Sandbox.Namespace == "" {
			errs = append(errs, fmt.Errorf("sandbox.namespace is required when sandbox.template is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("sandbox.mode must be \"local\" or \"remote\", got %q", c.Sandbox.Mode))
	}

	switch c.Storage.Type {
	case "memory", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	return errors.Join(errs...)
}
