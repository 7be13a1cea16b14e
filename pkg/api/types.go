// Package api defines the domain types shared across the vizagent service:
// job records, workflow state, execution and evaluation results, structured
// errors, and request/response payloads for the HTTP surface.
package api

import "time"

// DefaultMaxIterations is applied when a submission omits max_iterations.
const DefaultMaxIterations = 5

// WorkflowStatus is the status of a single workflow run.
type WorkflowStatus string

const (
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFailed     WorkflowStatus = "failed"
)

// LifecycleStatus is the supervisor-owned lifecycle state of a job.
type LifecycleStatus string

const (
	LifecycleQueued     LifecycleStatus = "queued"
	LifecycleProcessing LifecycleStatus = "processing"
	LifecycleCompleted  LifecycleStatus = "completed"
	LifecycleFailed     LifecycleStatus = "failed"
	LifecycleCancelled  LifecycleStatus = "cancelled"
)

// ExecutionStatus classifies the outcome of one sandbox run.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionError   ExecutionStatus = "error"
	ExecutionTimeout ExecutionStatus = "timeout"
)

// ExecutionResult is the captured outcome of a single sandboxed execution.
// It is always well-formed: failure paths populate Status and Stderr rather
// than surfacing an error to the workflow.
type ExecutionResult struct {
	Status    ExecutionStatus `json:"status"`
	ExitCode  int             `json:"exit_code"`
	Stdout    string          `json:"stdout"`
	Stderr    string          `json:"stderr"`
	Artifacts []string        `json:"artifacts,omitempty"`
}

// DimensionScores holds the six critic quality dimensions, each in [1,10].
// The "type" field name on the wire matches the critic output contract.
type DimensionScores struct {
	Bugs           int `json:"bugs"`
	Transformation int `json:"transformation"`
	Compliance     int `json:"compliance"`
	ChartType      int `json:"type"`
	Encoding       int `json:"encoding"`
	Aesthetics     int `json:"aesthetics"`
}

// EvaluationResult is the critic's structured judgment of one iteration.
type EvaluationResult struct {
	Scores       DimensionScores `json:"scores"`
	AverageScore float64         `json:"average_score"`
	Feedback     string          `json:"feedback"`
	Approve      bool            `json:"approve"`
}

// FallbackEvaluation is the fixed substitute used when critic output cannot
// be parsed. A partially-parsed structure is never propagated.
func FallbackEvaluation() *EvaluationResult {
	return &EvaluationResult{
		Scores:       DimensionScores{Bugs: 5, Transformation: 5, Compliance: 5, ChartType: 5, Encoding: 5, Aesthetics: 5},
		AverageScore: 5.0,
		Feedback:     "Unable to parse evaluation",
		Approve:      false,
	}
}

// DegradedEvaluation is the conservative substitute used when the critic
// model invocation itself fails. The low scores keep the loop iterating
// toward the budget instead of crashing.
func DegradedEvaluation(feedback string) *EvaluationResult {
	return &EvaluationResult{
		Scores:       DimensionScores{Bugs: 3, Transformation: 3, Compliance: 3, ChartType: 3, Encoding: 3, Aesthetics: 3},
		AverageScore: 3.0,
		Feedback:     feedback,
		Approve:      false,
	}
}

// WorkflowState is the mutable record threaded through one job's
// generate/execute/evaluate/decide cycle. The engine owns it for the
// duration of the run and returns the final version to the supervisor.
type WorkflowState struct {
	UserRequest            string            `json:"user_request"`
	DatasetReference       string            `json:"dataset_reference"`
	Iteration              int               `json:"iteration"`
	MaxIterations          int               `json:"max_iterations"`
	GeneratedCode          string            `json:"generated_code,omitempty"`
	ExecutionResult        *ExecutionResult  `json:"execution_result,omitempty"`
	Evaluation             *EvaluationResult `json:"evaluation,omitempty"`
	FinalArtifactReference string            `json:"final_artifact_reference,omitempty"`
	Status                 WorkflowStatus    `json:"status"`
	ErrorMessage           string            `json:"error_message,omitempty"`
}

// NewWorkflowState initializes the state for a fresh run.
func NewWorkflowState(userRequest, datasetRef string, maxIterations int) *WorkflowState {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &WorkflowState{
		UserRequest:      userRequest,
		DatasetReference: datasetRef,
		MaxIterations:    maxIterations,
		Status:           WorkflowStatusInProgress,
	}
}

// Job is the supervisor's unit of tracked work, one per external request.
// Lifecycle fields are owned exclusively by the supervisor; Result holds
// the submitted parameters as an initial WorkflowState snapshot and is
// replaced by the final snapshot when the job finishes.
type Job struct {
	ID        string          `json:"job_id"`
	Status    LifecycleStatus `json:"lifecycle_status"`
	CreatedAt time.Time       `json:"created_at"`
	Result    *WorkflowState  `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// CreateJobRequest is the inbound submission payload.
type CreateJobRequest struct {
	UserRequest      string `json:"user_request"`
	DatasetReference string `json:"dataset_reference"`
	MaxIterations    int    `json:"max_iterations,omitempty"`
}

// CreateJobResponse acknowledges an accepted submission.
type CreateJobResponse struct {
	JobID           string          `json:"job_id"`
	LifecycleStatus LifecycleStatus `json:"lifecycle_status"`
	Message         string          `json:"message,omitempty"`
}

// JobStatus is the status-query projection of a Job.
type JobStatus struct {
	JobID                  string          `json:"job_id"`
	LifecycleStatus        LifecycleStatus `json:"lifecycle_status"`
	Iteration              int             `json:"iteration"`
	MaxIterations          int             `json:"max_iterations"`
	AverageScore           *float64        `json:"average_score"`
	FinalArtifactReference *string         `json:"final_artifact_reference"`
	ErrorMessage           *string         `json:"error_message"`
}

// StatusOf projects a Job into its status-query shape.
func StatusOf(job *Job) *JobStatus {
	st := &JobStatus{
		JobID:           job.ID,
		LifecycleStatus: job.Status,
		MaxIterations:   DefaultMaxIterations,
	}
	if job.Error != "" {
		msg := job.Error
		st.ErrorMessage = &msg
	}
	if r := job.Result; r != nil {
		st.Iteration = r.Iteration
		st.MaxIterations = r.MaxIterations
		if r.Evaluation != nil {
			avg := r.Evaluation.AverageScore
			st.AverageScore = &avg
		}
		if r.FinalArtifactReference != "" {
			ref := r.FinalArtifactReference
			st.FinalArtifactReference = &ref
		}
		if st.ErrorMessage == nil && r.ErrorMessage != "" {
			msg := r.ErrorMessage
			st.ErrorMessage = &msg
		}
	}
	return st
}

// JobSummary is the list-endpoint projection of a Job.
type JobSummary struct {
	JobID           string          `json:"job_id"`
	LifecycleStatus LifecycleStatus `json:"lifecycle_status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// JobList holds the list-endpoint response.
type JobList struct {
	Total int          `json:"total"`
	Jobs  []JobSummary `json:"jobs"`
}
