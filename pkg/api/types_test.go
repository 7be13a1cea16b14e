package api

import (
	"encoding/json"
	"testing"
)

func TestFallbackEvaluation(t *testing.T) {
	ev := FallbackEvaluation()
	if ev.AverageScore != 5.0 {
		t.Errorf("AverageScore = %v, want 5.0", ev.AverageScore)
	}
	if ev.Approve {
		t.Error("Approve = true, want false")
	}
	for name, score := range map[string]int{
		"bugs":           ev.Scores.Bugs,
		"transformation": ev.Scores.Transformation,
		"compliance":     ev.Scores.Compliance,
		"type":           ev.Scores.ChartType,
		"encoding":       ev.Scores.Encoding,
		"aesthetics":     ev.Scores.Aesthetics,
	} {
		if score != 5 {
			t.Errorf("fallback score %s = %d, want 5", name, score)
		}
	}
}

func TestDegradedEvaluation(t *testing.T) {
	ev := DegradedEvaluation("critic invocation failed: connection refused")
	if ev.AverageScore != 3.0 {
		t.Errorf("AverageScore = %v, want 3.0", ev.AverageScore)
	}
	if ev.Approve {
		t.Error("Approve = true, want false")
	}
	if ev.Feedback == "" {
		t.Error("Feedback is empty, want failure description")
	}
}

func TestEvaluationResultChartTypeWireName(t *testing.T) {
	ev := EvaluationResult{Scores: DimensionScores{ChartType: 7}}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	scores, ok := raw["scores"].(map[string]any)
	if !ok {
		t.Fatalf("scores not an object: %v", raw["scores"])
	}
	if scores["type"] != float64(7) {
		t.Errorf(`scores["type"] = %v, want 7`, scores["type"])
	}
}

func TestNewWorkflowStateDefaults(t *testing.T) {
	st := NewWorkflowState("plot the data please", "cars.csv", 0)
	if st.MaxIterations != DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", st.MaxIterations, DefaultMaxIterations)
	}
	if st.Status != WorkflowStatusInProgress {
		t.Errorf("Status = %s, want %s", st.Status, WorkflowStatusInProgress)
	}
	if st.Iteration != 0 {
		t.Errorf("Iteration = %d, want 0", st.Iteration)
	}
}

func TestStatusOfProjection(t *testing.T) {
	job := &Job{
		ID:     "job_abcdefghijklmnopqrstuvwx",
		Status: LifecycleCompleted,
		Result: &WorkflowState{
			Iteration:              2,
			MaxIterations:          5,
			Evaluation:             &EvaluationResult{AverageScore: 8.5},
			FinalArtifactReference: "visualization.png",
			Status:                 WorkflowStatusCompleted,
		},
	}

	st := StatusOf(job)
	if st.Iteration != 2 || st.MaxIterations != 5 {
		t.Errorf("iteration projection = %d/%d, want 2/5", st.Iteration, st.MaxIterations)
	}
	if st.AverageScore == nil || *st.AverageScore != 8.5 {
		t.Errorf("AverageScore = %v, want 8.5", st.AverageScore)
	}
	if st.FinalArtifactReference == nil || *st.FinalArtifactReference != "visualization.png" {
		t.Errorf("FinalArtifactReference = %v, want visualization.png", st.FinalArtifactReference)
	}
	if st.ErrorMessage != nil {
		t.Errorf("ErrorMessage = %v, want nil", st.ErrorMessage)
	}
}

func TestStatusOfQueuedJob(t *testing.T) {
	st := StatusOf(&Job{ID: "job_x", Status: LifecycleQueued})
	if st.AverageScore != nil || st.FinalArtifactReference != nil {
		t.Error("queued job should have null score and artifact")
	}
	if st.MaxIterations != DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want default %d", st.MaxIterations, DefaultMaxIterations)
	}
}
