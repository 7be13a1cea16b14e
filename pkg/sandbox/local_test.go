package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
)

func TestLocalExecuteSuccess(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{})

	result := e.Execute(context.Background(), "print('hello viz')\n")

	if result.Status != api.ExecutionSuccess {
		t.Fatalf("Status = %s, want success (stderr: %s)", result.Status, result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "hello viz") {
		t.Errorf("Stdout = %q, want it to contain %q", result.Stdout, "hello viz")
	}
}

func TestLocalExecuteNonZeroExit(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{})

	result := e.Execute(context.Background(), "import sys\nsys.stderr.write('boom\\n')\nsys.exit(3)\n")

	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "boom") {
		t.Errorf("Stderr = %q, want it to contain %q", result.Stderr, "boom")
	}
}

func TestLocalExecuteSyntaxError(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{})

	result := e.Execute(context.Background(), "def broken(:\n")

	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if result.Stderr == "" {
		t.Error("Stderr is empty, want the interpreter diagnostic")
	}
}

func TestLocalExecuteTimeout(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{Timeout: 500 * time.Millisecond})

	start := time.Now()
	result := e.Execute(context.Background(), "import time\ntime.sleep(30)\n")
	elapsed := time.Since(start)

	if result.Status != api.ExecutionTimeout {
		t.Fatalf("Status = %s, want timeout", result.Status)
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	// The process group kill must fire well before the fragment's sleep ends.
	if elapsed > 5*time.Second {
		t.Errorf("execution took %s, process not killed at timeout", elapsed)
	}
}

func TestLocalExecuteTimeoutKillsDescendants(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{Timeout: 500 * time.Millisecond})

	// The fragment spawns a grandchild that also sleeps. If only the direct
	// child were killed, Wait would block on the inherited stdout pipe far
	// past WaitDelay.
	code := "import subprocess\nsubprocess.Popen(['sleep', '30'])\nimport time\ntime.sleep(30)\n"

	start := time.Now()
	result := e.Execute(context.Background(), code)
	elapsed := time.Since(start)

	if result.Status != api.ExecutionTimeout {
		t.Fatalf("Status = %s, want timeout", result.Status)
	}
	if elapsed > 5*time.Second {
		t.Errorf("execution took %s, descendant process leaked past timeout", elapsed)
	}
}

func TestLocalExecuteInterpreterMissing(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{Interpreter: []string{"definitely-not-a-real-interpreter"}})

	result := e.Execute(context.Background(), "print(1)\n")

	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if result.Stderr == "" {
		t.Error("Stderr is empty, want launch failure message")
	}
}

func TestLocalExecuteArtifacts(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{})

	code := "import os\n" +
		"out = os.environ['OUTPUT_DIR']\n" +
		"open(os.path.join(out, 'chart.png'), 'wb').write(b'\\x89PNG')\n" +
		"open('notes.txt', 'w').write('aside')\n"

	result := e.Execute(context.Background(), code)

	if result.Status != api.ExecutionSuccess {
		t.Fatalf("Status = %s, want success (stderr: %s)", result.Status, result.Stderr)
	}

	var sawChart, sawNotes bool
	for _, a := range result.Artifacts {
		if strings.HasSuffix(a, "chart.png") {
			sawChart = true
		}
		if strings.HasSuffix(a, "notes.txt") {
			sawNotes = true
		}
	}
	if !sawChart {
		t.Errorf("Artifacts = %v, want chart.png from the output dir", result.Artifacts)
	}
	if !sawNotes {
		t.Errorf("Artifacts = %v, want notes.txt from the scratch dir", result.Artifacts)
	}
}

func TestLocalExecuteOutputTruncation(t *testing.T) {
	e := NewLocalExecutor(LocalConfig{MaxOutputBytes: 128})

	result := e.Execute(context.Background(), "print('x' * 10000)\n")

	if result.Status != api.ExecutionSuccess {
		t.Fatalf("Status = %s, want success (stderr: %s)", result.Status, result.Stderr)
	}
	if !strings.Contains(result.Stdout, "[output truncated]") {
		t.Errorf("Stdout = %q, want truncation marker", result.Stdout)
	}
	if len(result.Stdout) > 256 {
		t.Errorf("Stdout length = %d, want bounded output", len(result.Stdout))
	}
}

func TestBoundedBufferUnderLimit(t *testing.T) {
	b := newBoundedBuffer(16)
	b.Write([]byte("short"))
	if got := b.String(); got != "short" {
		t.Errorf("String() = %q, want short", got)
	}
}
