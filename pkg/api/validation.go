package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// MinRequestLength is the minimum length of user_request after trimming.
const MinRequestLength = 5

// datasetProbeTimeout bounds the reachability check of a dataset URL on
// submission so a slow remote cannot stall the front door.
const datasetProbeTimeout = 5 * time.Second

// ValidateCreateJob checks the syntactic parts of a submission. It returns
// an *APIError describing the first validation failure, or nil if the
// request is valid. Reachability of the dataset reference is checked
// separately by VerifyDatasetReference.
func ValidateCreateJob(req *CreateJobRequest) *APIError {
	if len(strings.TrimSpace(req.UserRequest)) < MinRequestLength {
		return NewInvalidRequestError("user_request",
			fmt.Sprintf("user_request must be at least %d characters", MinRequestLength))
	}

	if strings.TrimSpace(req.DatasetReference) == "" {
		return NewInvalidRequestError("dataset_reference", "dataset_reference is required")
	}

	if req.MaxIterations < 0 {
		return NewInvalidRequestError("max_iterations", "max_iterations must be positive")
	}

	return nil
}

// VerifyDatasetReference checks that the dataset reference is usable:
// an http(s) URL must answer a HEAD (or, failing that, a GET) below 400
// within the probe budget; anything else is treated as a local path that
// must exist. The client parameter allows tests to inject a stub; nil
// uses a probe-scoped default client.
func VerifyDatasetReference(ctx context.Context, ref string, client *http.Client) *APIError {
	ref = strings.TrimSpace(ref)

	parsed, err := url.Parse(ref)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		if client == nil {
			client = &http.Client{Timeout: datasetProbeTimeout}
		}
		if probeURL(ctx, client, http.MethodHead, ref) {
			return nil
		}
		// Some hosts reject HEAD; retry with GET before giving up.
		if probeURL(ctx, client, http.MethodGet, ref) {
			return nil
		}
		return NewInvalidRequestError("dataset_reference", "dataset URL not reachable or timed out")
	}

	if _, err := os.Stat(ref); err != nil {
		return NewInvalidRequestError("dataset_reference",
			"dataset_reference must be an http(s) URL or an existing local path")
	}
	return nil
}

func probeURL(ctx context.Context, client *http.Client, method, ref string) bool {
	ctx, cancel := context.WithTimeout(ctx, datasetProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, ref, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}
