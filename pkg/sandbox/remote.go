package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
)

// ExecuteRequest is the request body for POST /execute on a sandbox server.
type ExecuteRequest struct {
	Code           string `json:"code"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ExecuteResponse is the response from POST /execute on a sandbox server.
type ExecuteResponse struct {
	Status          string   `json:"status"`
	Stdout          string   `json:"stdout"`
	Stderr          string   `json:"stderr"`
	ExitCode        int      `json:"exit_code"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Artifacts       []string `json:"artifacts,omitempty"`
}

// Acquirer abstracts sandbox acquisition. Implementations exist for static
// URL mode (a fixed development sandbox) and SandboxClaim mode (per-execution
// pods, see pkg/sandbox/kubernetes).
type Acquirer interface {
	// Acquire returns a sandbox URL to execute against. The release
	// function must be called after execution to clean up.
	Acquire(ctx context.Context) (sandboxURL string, release func(), err error)
}

// StaticURLAcquirer returns a fixed sandbox URL (development mode).
type StaticURLAcquirer struct {
	URL string
}

func (a *StaticURLAcquirer) Acquire(_ context.Context) (string, func(), error) {
	return a.URL, func() {}, nil
}

// RemoteConfig holds settings for the remote executor.
type RemoteConfig struct {
	// Timeout is the execution limit requested from the sandbox server
	// (default: 30s).
	Timeout time.Duration

	// HTTPTimeout bounds the whole HTTP exchange. It must exceed the
	// execution timeout (default: Timeout + 90s).
	HTTPTimeout time.Duration
}

// RemoteExecutor executes fragments on a sandbox server over its REST API.
// A sandbox is acquired per execution and always released afterwards, so in
// SandboxClaim mode every fragment gets a fresh pod.
type RemoteExecutor struct {
	acquirer   Acquirer
	httpClient *http.Client
	timeout    time.Duration
}

var _ Executor = (*RemoteExecutor)(nil)

// NewRemoteExecutor creates a RemoteExecutor backed by the given acquirer.
func NewRemoteExecutor(acquirer Acquirer, cfg RemoteConfig) *RemoteExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = cfg.Timeout + 90*time.Second
	}
	return &RemoteExecutor{
		acquirer:   acquirer,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		timeout:    cfg.Timeout,
	}
}

// Execute acquires a sandbox, posts the fragment to /execute, and maps the
// response. Acquisition and transport failures are reported as error results,
// never as errors.
func (e *RemoteExecutor) Execute(ctx context.Context, code string) *api.ExecutionResult {
	sandboxURL, release, err := e.acquirer.Acquire(ctx)
	if err != nil {
		return errorResult("acquire sandbox: " + err.Error())
	}
	defer release()

	debug.Log("sandbox", "remote execution", "url", sandboxURL, "timeout", e.timeout)

	resp, err := e.post(ctx, sandboxURL, &ExecuteRequest{
		Code:           code,
		TimeoutSeconds: int(e.timeout.Seconds()),
	})
	if err != nil {
		return errorResult("sandbox execution failed: " + err.Error())
	}

	result := &api.ExecutionResult{
		Status:    api.ExecutionStatus(resp.Status),
		ExitCode:  resp.ExitCode,
		Stdout:    resp.Stdout,
		Stderr:    resp.Stderr,
		Artifacts: resp.Artifacts,
	}
	switch result.Status {
	case api.ExecutionSuccess, api.ExecutionError, api.ExecutionTimeout:
	default:
		// A sandbox server speaking a different dialect must not leak
		// unknown statuses into the workflow.
		result.Status = api.ExecutionError
		if result.Stderr == "" {
			result.Stderr = fmt.Sprintf("sandbox returned unknown status %q", resp.Status)
		}
	}
	return result
}

func (e *RemoteExecutor) post(ctx context.Context, sandboxURL string, req *ExecuteRequest) (*ExecuteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sandboxURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("sandbox at capacity (HTTP 429)")
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp ExecuteResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
