package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
)

func TestRemoteExecuteSuccess(t *testing.T) {
	var gotReq ExecuteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Errorf("path = %q, want /execute", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(ExecuteResponse{
			Status:    "success",
			Stdout:    "plotted",
			ExitCode:  0,
			Artifacts: []string{"/workspace/output/chart.png"},
		})
	}))
	defer srv.Close()

	e := NewRemoteExecutor(&StaticURLAcquirer{URL: srv.URL}, RemoteConfig{})

	result := e.Execute(context.Background(), "print('plotted')")

	if result.Status != api.ExecutionSuccess {
		t.Fatalf("Status = %s, want success", result.Status)
	}
	if result.Stdout != "plotted" {
		t.Errorf("Stdout = %q", result.Stdout)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0] != "/workspace/output/chart.png" {
		t.Errorf("Artifacts = %v", result.Artifacts)
	}
	if gotReq.Code != "print('plotted')" {
		t.Errorf("request code = %q", gotReq.Code)
	}
	if gotReq.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want 30", gotReq.TimeoutSeconds)
	}
}

func TestRemoteExecuteTimeoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ExecuteResponse{
			Status:   "timeout",
			ExitCode: -1,
			Stderr:   "execution exceeded 30s timeout",
		})
	}))
	defer srv.Close()

	e := NewRemoteExecutor(&StaticURLAcquirer{URL: srv.URL}, RemoteConfig{})

	result := e.Execute(context.Background(), "while True: pass")
	if result.Status != api.ExecutionTimeout {
		t.Errorf("Status = %s, want timeout", result.Status)
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
}

func TestRemoteExecuteUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ExecuteResponse{Status: "exploded"})
	}))
	defer srv.Close()

	e := NewRemoteExecutor(&StaticURLAcquirer{URL: srv.URL}, RemoteConfig{})

	result := e.Execute(context.Background(), "print(1)")
	if result.Status != api.ExecutionError {
		t.Errorf("Status = %s, want error for unknown server status", result.Status)
	}
	if !strings.Contains(result.Stderr, "exploded") {
		t.Errorf("Stderr = %q, want mention of the unknown status", result.Stderr)
	}
}

func TestRemoteExecuteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewRemoteExecutor(&StaticURLAcquirer{URL: srv.URL}, RemoteConfig{})

	result := e.Execute(context.Background(), "print(1)")
	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "HTTP 500") {
		t.Errorf("Stderr = %q, want HTTP 500 mention", result.Stderr)
	}
}

func TestRemoteExecuteAtCapacity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewRemoteExecutor(&StaticURLAcquirer{URL: srv.URL}, RemoteConfig{})

	result := e.Execute(context.Background(), "print(1)")
	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Stderr, "capacity") {
		t.Errorf("Stderr = %q, want capacity message", result.Stderr)
	}
}

func TestRemoteExecuteConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	e := NewRemoteExecutor(&StaticURLAcquirer{URL: url}, RemoteConfig{})

	result := e.Execute(context.Background(), "print(1)")
	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if result.Stderr == "" {
		t.Error("Stderr is empty, want connection error")
	}
}

type failingAcquirer struct{}

func (failingAcquirer) Acquire(context.Context) (string, func(), error) {
	return "", nil, context.DeadlineExceeded
}

func TestRemoteExecuteAcquireFailure(t *testing.T) {
	e := NewRemoteExecutor(failingAcquirer{}, RemoteConfig{})

	result := e.Execute(context.Background(), "print(1)")
	if result.Status != api.ExecutionError {
		t.Fatalf("Status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Stderr, "acquire sandbox") {
		t.Errorf("Stderr = %q, want acquire failure message", result.Stderr)
	}
}

type releaseTrackingAcquirer struct {
	url      string
	released bool
}

func (a *releaseTrackingAcquirer) Acquire(context.Context) (string, func(), error) {
	return a.url, func() { a.released = true }, nil
}

func TestRemoteExecuteAlwaysReleases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := &releaseTrackingAcquirer{url: srv.URL}
	e := NewRemoteExecutor(a, RemoteConfig{})

	e.Execute(context.Background(), "print(1)")

	if !a.released {
		t.Error("sandbox not released after failed execution")
	}
}
