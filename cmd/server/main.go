// Command server runs the vizagent visualization generation service.
//
// Configuration is layered: built-in defaults, a YAML config file
// (--config flag, VIZAGENT_CONFIG env, ./config.yaml, or
// /etc/vizagent/config.yaml), then VIZAGENT_* environment overrides.
// See pkg/config for the full set of options.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/Renuka-M1115/multi-agent/pkg/config"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
	"github.com/Renuka-M1115/multi-agent/pkg/provider/openaicompat"
	"github.com/Renuka-M1115/multi-agent/pkg/sandbox"
	"github.com/Renuka-M1115/multi-agent/pkg/sandbox/kubernetes"
	"github.com/Renuka-M1115/multi-agent/pkg/storage"
	"github.com/Renuka-M1115/multi-agent/pkg/storage/memory"
	"github.com/Renuka-M1115/multi-agent/pkg/storage/postgres"
	"github.com/Renuka-M1115/multi-agent/pkg/supervisor"
	transporthttp "github.com/Renuka-M1115/multi-agent/pkg/transport/http"
	"github.com/Renuka-M1115/multi-agent/pkg/workflow"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	debug.Init(os.Getenv("VIZAGENT_DEBUG"), os.Getenv("VIZAGENT_DEBUG_LEVEL"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	prov, err := openaicompat.New(openaicompat.Config{
		BaseURL: cfg.Provider.BackendURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	executor, err := buildExecutor(cfg)
	if err != nil {
		return fmt.Errorf("creating sandbox executor: %w", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("creating job store: %w", err)
	}
	defer store.Close()

	engine := workflow.NewEngine(prov, executor, workflow.Config{
		CoderModel:  cfg.Workflow.CoderModel,
		CriticModel: cfg.Workflow.CriticModel,
	})

	sup := supervisor.New(store, engine,
		supervisor.WithDefaultMaxIterations(cfg.Workflow.MaxIterations))

	srv := transporthttp.NewServer(sup,
		transporthttp.WithPort(cfg.Server.Port),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithAdapterConfig(transporthttp.Config{
			MaxBodySize:    1 << 20,
			MetricsEnabled: cfg.Observability.Metrics.Enabled,
			MetricsPath:    cfg.Observability.Metrics.Path,
		}),
	)

	slog.Info("vizagent starting",
		"port", cfg.Server.Port,
		"backend", cfg.Provider.BackendURL,
		"coder_model", cfg.Workflow.CoderModel,
		"sandbox_mode", cfg.Sandbox.Mode,
		"storage", cfg.Storage.Type,
	)

	// Blocks until SIGINT/SIGTERM, then drains HTTP connections. Running
	// jobs are given the same grace period through the supervisor.
	if err := srv.ListenAndServe(); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sup.Shutdown(shutdownCtx)
}

// buildExecutor selects the sandbox backend from configuration: local child
// processes, a static sandbox server URL, or per-execution Kubernetes
// SandboxClaims.
func buildExecutor(cfg *config.Config) (sandbox.Executor, error) {
	switch cfg.Sandbox.Mode {
	case "local":
		return sandbox.NewLocalExecutor(sandbox.LocalConfig{
			Interpreter: []string{cfg.Sandbox.Interpreter},
			Timeout:     cfg.Sandbox.Timeout,
		}), nil

	case "remote":
		if cfg.Sandbox.URL != "" {
			return sandbox.NewRemoteExecutor(
				&sandbox.StaticURLAcquirer{URL: cfg.Sandbox.URL},
				sandbox.RemoteConfig{Timeout: cfg.Sandbox.Timeout},
			), nil
		}

		scheme, err := kubernetes.NewScheme()
		if err != nil {
			return nil, err
		}
		restConfig, err := ctrlconfig.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig: %w", err)
		}
		k8sClient, err := client.New(restConfig, client.Options{Scheme: scheme})
		if err != nil {
			return nil, fmt.Errorf("creating kubernetes client: %w", err)
		}
		acquirer := kubernetes.NewClaimAcquirer(k8sClient,
			cfg.Sandbox.Template, cfg.Sandbox.Namespace, cfg.Sandbox.ClaimTimeout)
		return sandbox.NewRemoteExecutor(acquirer,
			sandbox.RemoteConfig{Timeout: cfg.Sandbox.Timeout},
		), nil

	default:
		return nil, fmt.Errorf("unknown sandbox mode %q", cfg.Sandbox.Mode)
	}
}

// buildStore selects the job store backend from configuration.
func buildStore(cfg *config.Config) (storage.JobStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil

	case "postgres":
		store, err := postgres.New(context.Background(), postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("storage enabled", "type", "postgres")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
