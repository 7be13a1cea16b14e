// Command sandbox-server runs an HTTP execution server for visualization
// code. It is deployed inside agent-sandbox pods (or run standalone for
// development) and speaks the POST /execute contract the remote executor
// in pkg/sandbox expects.
//
// Configuration:
//
//	SANDBOX_PORT           - Listen port (default: 8080)
//	SANDBOX_INTERPRETER    - Interpreter command (default: python3)
//	SANDBOX_MAX_CONCURRENT - Max concurrent executions (default: 3)
//	SANDBOX_OUTPUT_DIR     - Output directory name within the scratch dir (default: output)
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/sandbox"
)

func main() {
	port := envOr("SANDBOX_PORT", "8080")
	interpreter := envOr("SANDBOX_INTERPRETER", "python3")
	maxConcurrent := envOrInt("SANDBOX_MAX_CONCURRENT", 3)
	outputDirName := envOr("SANDBOX_OUTPUT_DIR", "output")

	if _, err := exec.LookPath(interpreter); err != nil {
		slog.Error("interpreter not found in PATH", "interpreter", interpreter)
		os.Exit(1)
	}

	srv := &sandboxServer{
		interpreter:    interpreter,
		runtimeVersion: detectRuntimeVersion(interpreter),
		maxConcurrent:  int32(maxConcurrent),
		outputDirName:  outputDirName,
		startTime:      time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", srv.handleExecute)
	mux.HandleFunc("GET /health", srv.handleHealth)

	httpSrv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long timeout for code execution.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("sandbox server starting",
			"port", port,
			"interpreter", interpreter,
			"runtime", srv.runtimeVersion,
			"max_concurrent", maxConcurrent,
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
}

type sandboxServer struct {
	interpreter    string
	runtimeVersion string
	maxConcurrent  int32
	currentLoad    atomic.Int32
	outputDirName  string
	startTime      time.Time
}

// executeResponse extends the wire response with base64-encoded artifact
// contents so callers outside the pod can retrieve produced files.
type executeResponse struct {
	sandbox.ExecuteResponse
	Files map[string]string `json:"files,omitempty"`
}

func (s *sandboxServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	current := s.currentLoad.Add(1)
	defer s.currentLoad.Add(-1)

	if current > s.maxConcurrent {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("at capacity (%d/%d concurrent executions)", current, s.maxConcurrent))
		return
	}

	var req sandbox.ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10*1024*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	timeout := sandbox.DefaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	codePreview := req.Code
	if len(codePreview) > 120 {
		codePreview = codePreview[:120] + "..."
	}
	slog.Info("execute request", "code", codePreview, "timeout", timeout)

	// The executor owns scratch dir creation and teardown, so artifacts
	// must be captured before Execute returns. The sink below reads them
	// while the scratch dir still exists.
	var files map[string]string
	executor := sandbox.NewLocalExecutor(sandbox.LocalConfig{
		Interpreter:   []string{s.interpreter},
		Timeout:       timeout,
		OutputDirName: s.outputDirName,
		ArtifactSink: func(_ string, artifacts []string) {
			files = encodeArtifacts(artifacts)
		},
	})

	start := time.Now()
	result := executor.Execute(r.Context(), req.Code)
	duration := time.Since(start)

	slog.Info("execute complete",
		"status", result.Status,
		"exit_code", result.ExitCode,
		"duration_ms", duration.Milliseconds(),
		"artifacts", len(result.Artifacts),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(executeResponse{
		ExecuteResponse: sandbox.ExecuteResponse{
			Status:          string(result.Status),
			Stdout:          result.Stdout,
			Stderr:          result.Stderr,
			ExitCode:        result.ExitCode,
			ExecutionTimeMs: duration.Milliseconds(),
			Artifacts:       baseNames(result.Artifacts),
		},
		Files: files,
	})
}

// encodeArtifacts reads the artifact files and encodes their contents as
// base64 keyed by base name. Files that cannot be read are skipped.
func encodeArtifacts(artifacts []string) map[string]string {
	if len(artifacts) == 0 {
		return nil
	}
	files := make(map[string]string, len(artifacts))
	for _, path := range artifacts {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		files[filepath.Base(path)] = base64.StdEncoding.EncodeToString(content)
	}
	if len(files) == 0 {
		return nil
	}
	return files
}

// baseNames maps artifact paths to their file names. The scratch paths are
// meaningless outside the pod.
func baseNames(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

type healthResponse struct {
	Status         string `json:"status"`
	Interpreter    string `json:"interpreter"`
	RuntimeVersion string `json:"runtime_version"`
	Capacity       int    `json:"capacity"`
	CurrentLoad    int    `json:"current_load"`
	UptimeSecs     int64  `json:"uptime_seconds"`
}

func (s *sandboxServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:         "healthy",
		Interpreter:    s.interpreter,
		RuntimeVersion: s.runtimeVersion,
		Capacity:       int(s.maxConcurrent),
		CurrentLoad:    int(s.currentLoad.Load()),
		UptimeSecs:     int64(time.Since(s.startTime).Seconds()),
	})
}

// detectRuntimeVersion returns the version string for the interpreter.
func detectRuntimeVersion(interpreter string) string {
	output, err := exec.Command(interpreter, "--version").Output()
	if err != nil {
		return "unknown"
	}
	version := strings.TrimSpace(string(output))
	if idx := strings.Index(version, "\n"); idx > 0 {
		version = version[:idx]
	}
	return version
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: api.NewServerError(message)})
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return defaultVal
	}
	return n
}
