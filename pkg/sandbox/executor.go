// Package sandbox executes untrusted generated code fragments in isolated
// child processes with a hard wall-clock limit. Every execution path
// returns a well-formed ExecutionResult; nothing here surfaces an error
// to the workflow.
//
// The local executor grants no capability isolation beyond the process
// boundary and the timeout: generated code can reach the filesystem and
// the network. For real isolation use the remote executor against a
// sandbox-server running in an isolated pod (see pkg/sandbox/kubernetes).
package sandbox

import (
	"context"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
)

// DefaultTimeout is the wall-clock limit applied when none is configured.
const DefaultTimeout = 30 * time.Second

// DefaultMaxOutputBytes caps captured stdout/stderr per stream.
const DefaultMaxOutputBytes = 64 * 1024

// Executor runs a source fragment and captures its outcome. Implementations
// never return an error: launch failures, non-zero exits, and timeouts are
// all encoded in the ExecutionResult.
type Executor interface {
	Execute(ctx context.Context, code string) *api.ExecutionResult
}

// errorResult builds a well-formed error ExecutionResult from a message.
func errorResult(msg string) *api.ExecutionResult {
	return &api.ExecutionResult{
		Status:   api.ExecutionError,
		ExitCode: -1,
		Stderr:   msg,
	}
}
