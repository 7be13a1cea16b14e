// Command mcp-server exposes the vizagent job operations as MCP tools so
// agent frontends can submit and track visualization jobs. It embeds the
// full service (provider, sandbox, store, supervisor) and serves MCP over
// streamable HTTP on /mcp.
//
// Configuration is shared with cmd/server; see pkg/config.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/config"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
	"github.com/Renuka-M1115/multi-agent/pkg/provider/openaicompat"
	"github.com/Renuka-M1115/multi-agent/pkg/sandbox"
	"github.com/Renuka-M1115/multi-agent/pkg/storage/memory"
	"github.com/Renuka-M1115/multi-agent/pkg/supervisor"
	"github.com/Renuka-M1115/multi-agent/pkg/workflow"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	debug.Init(os.Getenv("VIZAGENT_DEBUG"), os.Getenv("VIZAGENT_DEBUG_LEVEL"))

	cfg, err := config.Load("")
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

	executor := sandbox.NewLocalExecutor(sandbox.LocalConfig{
		Interpreter: []string{cfg.Sandbox.Interpreter},
		Timeout:     cfg.Sandbox.Timeout,
	})

	store := memory.New(cfg.Storage.MaxSize)
	defer store.Close()

	engine := workflow.NewEngine(prov, executor, workflow.Config{
		CoderModel:  cfg.Workflow.CoderModel,
		CriticModel: cfg.Workflow.CriticModel,
	})
	sup := supervisor.New(store, engine,
		supervisor.WithDefaultMaxIterations(cfg.Workflow.MaxIterations))

	server := newMCPServer(sup)

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mcp server starting", "port", cfg.Server.Port, "backend", cfg.Provider.BackendURL)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return sup.Shutdown(shutdownCtx)
}

// newMCPServer registers the vizagent job tools on a fresh MCP server.
func newMCPServer(sup *supervisor.Supervisor) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "vizagent", Version: "v1.0.0"},
		nil,
	)

	type SubmitInput struct {
		UserRequest      string `json:"user_request" jsonschema_description:"Natural-language description of the desired visualization"`
		DatasetReference string `json:"dataset_reference" jsonschema_description:"URL or local path of the dataset to visualize"`
		MaxIterations    int    `json:"max_iterations,omitempty" jsonschema_description:"Refinement iteration budget (default 5)"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_visualization",
		Description: "Submits a visualization generation job and returns its job ID",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SubmitInput) (*mcp.CallToolResult, struct{}, error) {
		resp, err := sup.Submit(ctx, &api.CreateJobRequest{
			UserRequest:      input.UserRequest,
			DatasetReference: input.DatasetReference,
			MaxIterations:    input.MaxIterations,
		})
		if err != nil {
			return errorResult(err), struct{}{}, nil
		}
		return jsonResult(resp), struct{}{}, nil
	})

	type JobIDInput struct {
		JobID string `json:"job_id" jsonschema_description:"The job ID returned by submit_visualization"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Returns the lifecycle status, iteration progress, and score of a job",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobIDInput) (*mcp.CallToolResult, struct{}, error) {
		st, err := sup.GetStatus(ctx, input.JobID)
		if err != nil {
			return errorResult(err), struct{}{}, nil
		}
		return jsonResult(st), struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_result",
		Description: "Returns the full workflow result of a completed job, including the generated code",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobIDInput) (*mcp.CallToolResult, struct{}, error) {
		result, err := sup.GetResult(ctx, input.JobID)
		if err != nil {
			return errorResult(err), struct{}{}, nil
		}
		return jsonResult(result), struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_job",
		Description: "Cancels a queued or processing job",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobIDInput) (*mcp.CallToolResult, struct{}, error) {
		if err := sup.Cancel(ctx, input.JobID); err != nil {
			return errorResult(err), struct{}{}, nil
		}
		return textResult("job " + input.JobID + " cancelled"), struct{}{}, nil
	})

	type ListInput struct {
		Limit int `json:"limit,omitempty" jsonschema_description:"Maximum number of jobs to return (default 20)"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_jobs",
		Description: "Lists recent jobs, most recent first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, struct{}, error) {
		list, err := sup.List(ctx, input.Limit)
		if err != nil {
			return errorResult(err), struct{}{}, nil
		}
		return jsonResult(list), struct{}{}, nil
	})

	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	return textResult(string(data))
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
