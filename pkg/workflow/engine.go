// Package workflow implements the iterative generate/execute/evaluate/decide
// cycle that refines visualization code until the critic accepts it or the
// iteration budget runs out. The cycle is an explicit state machine driven
// by a plain loop; each node mutates the WorkflowState it is handed and the
// decide step is a pure transition function.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
	"github.com/Renuka-M1115/multi-agent/pkg/provider"
	"github.com/Renuka-M1115/multi-agent/pkg/sandbox"
)

// Node identifies a position in the workflow cycle.
type Node string

const (
	NodeGenerate Node = "generate"
	NodeEnd      Node = "end"
)

// AcceptanceThreshold is the minimum average critic score for early
// completion. Execution success is a separate gating precondition.
const AcceptanceThreshold = 8.0

// Config holds the model settings for the two agent roles.
type Config struct {
	// CoderModel generates visualization code (default: gpt-4).
	CoderModel string

	// CriticModel scores the generated code (default: CoderModel).
	CriticModel string

	// CoderTemperature leaves room for varied retries (default: 0.3).
	CoderTemperature float64
}

func (c *Config) defaults() {
	if c.CoderModel == "" {
		c.CoderModel = "gpt-4"
	}
	if c.CriticModel == "" {
		c.CriticModel = c.CoderModel
	}
	if c.CoderTemperature == 0 {
		c.CoderTemperature = 0.3
	}
}

// Engine drives one job's cycle to termination. It is stateless across runs;
// a single Engine may serve many concurrent jobs.
type Engine struct {
	provider provider.Provider
	executor sandbox.Executor
	cfg      Config
}

// NewEngine creates an Engine over the given model provider and executor.
func NewEngine(p provider.Provider, exec sandbox.Executor, cfg Config) *Engine {
	cfg.defaults()
	return &Engine{provider: p, executor: exec, cfg: cfg}
}

// Run drives the cycle until a terminal decision and returns the final
// state. Cancellation is cooperative: the context is checked once per
// iteration, before generation, so an in-flight model call or sandbox run
// finishes before cancellation takes effect. The returned error is non-nil
// only for cancellation; all other failures are recorded in the state.
func (e *Engine) Run(ctx context.Context, state *api.WorkflowState) (*api.WorkflowState, error) {
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		e.generate(ctx, state)
		if state.Status == api.WorkflowStatusFailed {
			// A generation failure terminates the cycle without
			// reaching the decision step.
			return state, nil
		}

		e.execute(ctx, state)
		e.evaluate(ctx, state)

		if Decide(state) == NodeEnd {
			return state, nil
		}
	}
}

// generate asks the coder model for a new or improved fragment. On success
// it stores the extracted code and counts the iteration; on model failure
// it marks the whole run failed.
func (e *Engine) generate(ctx context.Context, state *api.WorkflowState) {
	temp := e.cfg.CoderTemperature
	resp, err := e.provider.Complete(ctx, &provider.CompletionRequest{
		Model:       e.cfg.CoderModel,
		System:      coderSystemPrompt,
		Prompt:      buildCoderPrompt(state),
		Temperature: &temp,
	})
	if err != nil {
		state.ErrorMessage = fmt.Sprintf("code generation failed: %s", err.Error())
		state.Status = api.WorkflowStatusFailed
		slog.Warn("coder invocation failed", "iteration", state.Iteration, "error", err.Error())
		return
	}

	state.GeneratedCode = ExtractCode(resp.Text)
	state.Iteration++
	state.Status = api.WorkflowStatusInProgress

	debug.Log("workflow", "code generated",
		"iteration", state.Iteration,
		"code_len", len(state.GeneratedCode),
		"tokens", resp.Usage.TotalTokens,
	)
}

// execute runs the latest fragment in the sandbox. The executor never
// fails outright; non-success outcomes are carried forward as evaluation
// context for the critic.
func (e *Engine) execute(ctx context.Context, state *api.WorkflowState) {
	state.ExecutionResult = e.executor.Execute(ctx, state.GeneratedCode)
	if state.ExecutionResult.Status != api.ExecutionSuccess {
		state.ErrorMessage = state.ExecutionResult.Stderr
	}

	debug.Log("workflow", "execution finished",
		"iteration", state.Iteration,
		"status", state.ExecutionResult.Status,
		"exit_code", state.ExecutionResult.ExitCode,
	)
}

// evaluate asks the critic model to score the latest outcome. A model
// failure degrades to a conservative evaluation instead of aborting, so
// the loop can still terminate through the iteration budget.
func (e *Engine) evaluate(ctx context.Context, state *api.WorkflowState) {
	var zero float64
	resp, err := e.provider.Complete(ctx, &provider.CompletionRequest{
		Model:       e.cfg.CriticModel,
		System:      criticSystemPrompt,
		Prompt:      buildCriticPrompt(state),
		Temperature: &zero,
	})
	if err != nil {
		state.Evaluation = api.DegradedEvaluation(fmt.Sprintf("Critic evaluation failed: %s", err.Error()))
		state.ErrorMessage = fmt.Sprintf("critic invocation failed: %s", err.Error())
		slog.Warn("critic invocation failed", "iteration", state.Iteration, "error", err.Error())
		return
	}

	state.Evaluation = ParseEvaluation(resp.Text)

	debug.Log("workflow", "evaluation parsed",
		"iteration", state.Iteration,
		"average_score", state.Evaluation.AverageScore,
		"approve", state.Evaluation.Approve,
	)
}

// Decide is the convergence transition function, evaluated after each
// evaluation step. Rules in order: an exhausted iteration budget always
// completes the run regardless of quality; a score at or above the
// acceptance threshold completes it only when the latest execution actually
// succeeded; anything else loops back to generation.
func Decide(state *api.WorkflowState) Node {
	if state.Iteration >= state.MaxIterations {
		state.Status = api.WorkflowStatusCompleted
		return NodeEnd
	}

	avgScore := 0.0
	if state.Evaluation != nil {
		avgScore = state.Evaluation.AverageScore
	}
	execSuccess := state.ExecutionResult != nil && state.ExecutionResult.Status == api.ExecutionSuccess

	if avgScore >= AcceptanceThreshold && execSuccess {
		state.Status = api.WorkflowStatusCompleted
		state.FinalArtifactReference = artifactReference(state.ExecutionResult)
		return NodeEnd
	}

	return NodeGenerate
}

// artifactReference picks the produced artifact path for an accepted run.
// When the sandbox scan came back empty, the conventional save target of
// the coder prompt is used.
func artifactReference(result *api.ExecutionResult) string {
	if len(result.Artifacts) > 0 {
		return result.Artifacts[0]
	}
	return "visualization.png"
}
