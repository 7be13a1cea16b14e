package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
)

// LocalConfig holds settings for the local process executor.
type LocalConfig struct {
	// Interpreter is the command that runs the fragment (default: python3).
	Interpreter []string

	// Timeout is the wall-clock limit per execution (default: 30s).
	Timeout time.Duration

	// ScratchRoot is where per-execution scratch directories are created.
	// Empty means the system temp directory.
	ScratchRoot string

	// OutputDirName is the artifact directory created inside the scratch
	// dir and exported as OUTPUT_DIR (default: "output").
	OutputDirName string

	// MaxOutputBytes caps captured stdout and stderr, each
	// (default: 64 KiB).
	MaxOutputBytes int

	// ArtifactSink, when set, is called with the scratch directory and the
	// artifact paths before the scratch directory is removed. It is the
	// only window in which artifact contents can still be read.
	ArtifactSink func(scratch string, artifacts []string)
}

func (c *LocalConfig) defaults() {
	if len(c.Interpreter) == 0 {
		c.Interpreter = []string{"python3"}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.OutputDirName == "" {
		c.OutputDirName = "output"
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = DefaultMaxOutputBytes
	}
}

// LocalExecutor runs fragments as child processes on the local host.
// Each execution gets a fresh scratch directory that is always removed,
// and the child runs in its own process group so a timeout kills the
// whole tree, not just the direct child.
type LocalExecutor struct {
	cfg LocalConfig
}

// Ensure LocalExecutor implements Executor at compile time.
var _ Executor = (*LocalExecutor)(nil)

// NewLocalExecutor creates a LocalExecutor with defaults applied.
func NewLocalExecutor(cfg LocalConfig) *LocalExecutor {
	cfg.defaults()
	return &LocalExecutor{cfg: cfg}
}

// Execute writes the fragment to a scratch file and runs it under the
// configured interpreter with the wall-clock limit enforced by process
// group termination.
func (e *LocalExecutor) Execute(ctx context.Context, code string) *api.ExecutionResult {
	scratch, err := os.MkdirTemp(e.cfg.ScratchRoot, "vizagent-exec-*")
	if err != nil {
		return errorResult("create scratch dir: " + err.Error())
	}
	defer os.RemoveAll(scratch)

	outputDir := filepath.Join(scratch, e.cfg.OutputDirName)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errorResult("create output dir: " + err.Error())
	}

	ext := scriptExtension(e.cfg.Interpreter[0])
	scriptPath := filepath.Join(scratch, "fragment"+ext)
	if err := os.WriteFile(scriptPath, []byte(code), 0644); err != nil {
		return errorResult("write fragment: " + err.Error())
	}

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := append(e.cfg.Interpreter[1:], scriptPath)
	cmd := exec.CommandContext(execCtx, e.cfg.Interpreter[0], args...)
	cmd.Dir = scratch
	cmd.Env = append(os.Environ(), "OUTPUT_DIR="+outputDir)

	stdout := newBoundedBuffer(e.cfg.MaxOutputBytes)
	stderr := newBoundedBuffer(e.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Run the child in its own process group so cancellation kills any
	// descendants it spawned. A leaked grandchild would outlive the timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	// Don't wait forever on pipes held open by killed descendants.
	cmd.WaitDelay = 2 * time.Second

	debug.Log("sandbox", "executing fragment", "interpreter", e.cfg.Interpreter[0], "timeout", e.cfg.Timeout)

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &api.ExecutionResult{
		Status: api.ExecutionSuccess,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runErr != nil {
		// Timeout takes precedence over the exit error it causes.
		if execCtx.Err() == context.DeadlineExceeded {
			result.Status = api.ExecutionTimeout
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = fmt.Sprintf("execution exceeded %s timeout", e.cfg.Timeout)
			}
		} else if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.Status = api.ExecutionError
			result.ExitCode = exitErr.ExitCode()
			if result.Stderr == "" {
				result.Stderr = exitErr.Error()
			}
		} else {
			// Launch failure (interpreter missing, fragment unwritable, ...).
			result.Status = api.ExecutionError
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = runErr.Error()
			}
		}
	}

	result.Artifacts = scanArtifacts(scratch, outputDir, scriptPath)

	if e.cfg.ArtifactSink != nil && len(result.Artifacts) > 0 {
		e.cfg.ArtifactSink(scratch, result.Artifacts)
	}

	debug.Log("sandbox", "execution finished",
		"status", result.Status,
		"exit_code", result.ExitCode,
		"duration_ms", duration.Milliseconds(),
		"artifacts", len(result.Artifacts),
	)

	return result
}

// scanArtifacts best-effort lists files the fragment produced: everything
// in the output dir plus any top-level scratch files other than the
// fragment itself. An empty list is acceptable.
func scanArtifacts(scratch, outputDir, scriptPath string) []string {
	var artifacts []string

	if entries, err := os.ReadDir(outputDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				artifacts = append(artifacts, filepath.Join(outputDir, entry.Name()))
			}
		}
	}

	if entries, err := os.ReadDir(scratch); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(scratch, entry.Name())
			if path == scriptPath {
				continue
			}
			artifacts = append(artifacts, path)
		}
	}

	return artifacts
}

func scriptExtension(interpreter string) string {
	switch filepath.Base(interpreter) {
	case "python", "python3":
		return ".py"
	case "node":
		return ".js"
	case "bash", "sh":
		return ".sh"
	default:
		return ""
	}
}

// boundedBuffer is an io.Writer that keeps at most max bytes and silently
// discards the rest, so a runaway fragment cannot exhaust memory.
type boundedBuffer struct {
	buf       []byte
	max       int
	truncated bool
}

func newBoundedBuffer(max int) *boundedBuffer {
	return &boundedBuffer{max: max}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if remaining := b.max - len(b.buf); remaining > 0 {
		if len(p) <= remaining {
			b.buf = append(b.buf, p...)
		} else {
			b.buf = append(b.buf, p[:remaining]...)
			b.truncated = true
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	// Report full success so the child never sees a write error.
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	if b.truncated {
		return string(b.buf) + "\n[output truncated]"
	}
	return string(b.buf)
}
