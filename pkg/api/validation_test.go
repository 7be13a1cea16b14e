package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func validSubmission() *CreateJobRequest {
	return &CreateJobRequest{
		UserRequest:      "Create a scatter plot of weight vs horsepower",
		DatasetReference: "https://example.com/cars.csv",
		MaxIterations:    3,
	}
}

func TestValidateCreateJob(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(r *CreateJobRequest)
		wantParam string
	}{
		{
			name:   "valid request accepted",
			modify: func(r *CreateJobRequest) {},
		},
		{
			name:      "short request rejected",
			modify:    func(r *CreateJobRequest) { r.UserRequest = "abc" },
			wantParam: "user_request",
		},
		{
			name:      "whitespace-padded short request rejected",
			modify:    func(r *CreateJobRequest) { r.UserRequest = "   ab   " },
			wantParam: "user_request",
		},
		{
			name:      "missing dataset rejected",
			modify:    func(r *CreateJobRequest) { r.DatasetReference = "  " },
			wantParam: "dataset_reference",
		},
		{
			name:      "negative max_iterations rejected",
			modify:    func(r *CreateJobRequest) { r.MaxIterations = -1 },
			wantParam: "max_iterations",
		},
		{
			name:   "zero max_iterations accepted as default",
			modify: func(r *CreateJobRequest) { r.MaxIterations = 0 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSubmission()
			tt.modify(req)
			err := ValidateCreateJob(req)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("ValidateCreateJob() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateCreateJob() = nil, want error")
			}
			if err.Param != tt.wantParam {
				t.Errorf("error param = %q, want %q", err.Param, tt.wantParam)
			}
		})
	}
}

func TestVerifyDatasetReferenceURL(t *testing.T) {
	reachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer reachable.Close()

	// Rejects HEAD but answers GET, like some CSV hosts.
	headless := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer headless.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	ctx := context.Background()

	if err := VerifyDatasetReference(ctx, reachable.URL, reachable.Client()); err != nil {
		t.Errorf("reachable URL rejected: %v", err)
	}
	if err := VerifyDatasetReference(ctx, headless.URL, headless.Client()); err != nil {
		t.Errorf("GET-only URL rejected: %v", err)
	}
	if err := VerifyDatasetReference(ctx, missing.URL, missing.Client()); err == nil {
		t.Error("404 URL accepted, want error")
	}
}

func TestVerifyDatasetReferenceLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cars.csv")
	if err := os.WriteFile(path, []byte("weight,horsepower\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	if err := VerifyDatasetReference(ctx, path, nil); err != nil {
		t.Errorf("existing path rejected: %v", err)
	}
	if err := VerifyDatasetReference(ctx, filepath.Join(dir, "absent.csv"), nil); err == nil {
		t.Error("missing path accepted, want error")
	}
}
