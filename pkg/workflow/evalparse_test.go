package workflow

import (
	"encoding/json"
	"testing"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
)

const wellFormedEval = `{
  "scores": {
    "bugs": 9,
    "transformation": 8,
    "compliance": 9,
    "type": 10,
    "encoding": 8,
    "aesthetics": 7
  },
  "average_score": 8.5,
  "feedback": "Solid scatter plot, consider larger axis labels.",
  "approve": true
}`

func TestParseEvaluationWellFormed(t *testing.T) {
	eval := ParseEvaluation(wellFormedEval)

	if eval.AverageScore != 8.5 {
		t.Errorf("AverageScore = %v, want 8.5", eval.AverageScore)
	}
	if !eval.Approve {
		t.Error("Approve = false, want true")
	}
	if eval.Scores.ChartType != 10 {
		t.Errorf("Scores.ChartType = %d, want 10", eval.Scores.ChartType)
	}
	if eval.Scores.Aesthetics != 7 {
		t.Errorf("Scores.Aesthetics = %d, want 7", eval.Scores.Aesthetics)
	}
}

func TestParseEvaluationEmbeddedInProse(t *testing.T) {
	text := "Here is my evaluation of the code:\n\n" + wellFormedEval + "\n\nLet me know if you need more detail."
	eval := ParseEvaluation(text)

	if eval.AverageScore != 8.5 {
		t.Errorf("AverageScore = %v, want 8.5", eval.AverageScore)
	}
	if eval.Feedback != "Solid scatter plot, consider larger axis labels." {
		t.Errorf("Feedback = %q", eval.Feedback)
	}
}

func TestParseEvaluationIdempotent(t *testing.T) {
	first := ParseEvaluation(wellFormedEval)

	serialized, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	second := ParseEvaluation(string(serialized))

	if *second != *first {
		t.Errorf("reparse = %+v, want %+v", second, first)
	}
}

func TestParseEvaluationNotJSON(t *testing.T) {
	eval := ParseEvaluation("not json at all")

	want := api.FallbackEvaluation()
	if *eval != *want {
		t.Errorf("ParseEvaluation() = %+v, want fallback %+v", eval, want)
	}
	if eval.AverageScore != 5.0 || eval.Approve {
		t.Errorf("fallback invariant violated: avg=%v approve=%v", eval.AverageScore, eval.Approve)
	}
}

func TestParseEvaluationMalformedJSON(t *testing.T) {
	inputs := []string{
		"",
		"{",
		`{"scores": {`,
		`{"average_score": }`,
		"prose with a stray { brace and no close",
	}
	for _, in := range inputs {
		eval := ParseEvaluation(in)
		if eval.AverageScore != 5.0 {
			t.Errorf("ParseEvaluation(%q).AverageScore = %v, want fallback 5.0", in, eval.AverageScore)
		}
	}
}

func TestParseEvaluationBracesInsideStrings(t *testing.T) {
	text := `{"scores": {"bugs": 7, "transformation": 7, "compliance": 7, "type": 7, "encoding": 7, "aesthetics": 7}, "average_score": 7.0, "feedback": "use plt.title('{}'.format(name))", "approve": false}`
	eval := ParseEvaluation(text)

	if eval.AverageScore != 7.0 {
		t.Errorf("AverageScore = %v, want 7.0", eval.AverageScore)
	}
	if eval.Feedback != "use plt.title('{}'.format(name))" {
		t.Errorf("Feedback = %q", eval.Feedback)
	}
}

func TestParseEvaluationSkipsUnparseableSpan(t *testing.T) {
	// The leading span is broken JSON; the evaluation after it must still
	// be found.
	text := "{oops: unquoted} " + wellFormedEval
	eval := ParseEvaluation(text)

	if eval.AverageScore != 8.5 {
		t.Errorf("AverageScore = %v, want 8.5", eval.AverageScore)
	}
}

func TestParseEvaluationAcceptsMissingFields(t *testing.T) {
	// Missing sub-fields are accepted as-is, not rejected.
	eval := ParseEvaluation(`{"average_score": 6.0, "approve": false}`)

	if eval.AverageScore != 6.0 {
		t.Errorf("AverageScore = %v, want 6.0", eval.AverageScore)
	}
	if eval.Scores.Bugs != 0 {
		t.Errorf("Scores.Bugs = %d, want zero value", eval.Scores.Bugs)
	}
}
