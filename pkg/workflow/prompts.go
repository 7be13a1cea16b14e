package workflow

import (
	"fmt"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
)

// transcriptCap bounds the stdout/stderr excerpts embedded in critic prompts
// so a chatty fragment cannot blow up prompt size.
const transcriptCap = 500

const coderSystemPrompt = `You are an expert data visualization engineer. Generate production-ready Python code for data visualizations.

REQUIREMENTS:
- Import all necessary libraries (pandas, matplotlib, seaborn, plotly)
- Load data from provided URL using pandas.read_csv()
- Handle missing/null values appropriately with .dropna() or .fillna()
- Print dataset fields using print(df.columns)
- Create appropriate visualization based on request
- Add proper labels, titles, and legends
- Save plot to file with plt.savefig('visualization.png')
- Use best practices for chosen visualization type
- Ensure code is executable without errors

OUTPUT FORMAT:
Provide ONLY executable Python code in a ` + "```python" + ` code block.
No explanations, no markdown outside code block.
No comments unless absolutely necessary.`

const criticSystemPrompt = `You are a visualization code critic. Evaluate code across 6 dimensions:

1. bugs (1-10): Syntax errors, logic errors, runtime issues
   - Score < 5 if ANY bugs exist
   - Check: imports, syntax, variable definitions

2. transformation (1-10): Proper data filtering, aggregation, type conversion
   - Check: null handling, data filtering, aggregation

3. compliance (1-10): Meets specified visualization goals
   - Check: Does output match the user's request?

4. type (1-10): Appropriate chart type for data/intent
   - Score < 5 if wrong visualization type
   - Examples: scatter for correlation, bar for comparison, line for trends

5. encoding (1-10): Correct variable mapping (x, y, color, size, etc.)
   - Check: Proper axis assignments, meaningful color encoding

6. aesthetics (1-10): Proper labels, colors, layout, readability
   - Check: titles, labels, legends, font sizes, color scheme

OUTPUT FORMAT (ONLY valid JSON, no other text):
{
  "scores": {
    "bugs": NUMBER,
    "transformation": NUMBER,
    "compliance": NUMBER,
    "type": NUMBER,
    "encoding": NUMBER,
    "aesthetics": NUMBER
  },
  "average_score": FLOAT,
  "feedback": "Specific, actionable improvements. If score < 8, provide concrete suggestions.",
  "approve": BOOLEAN
}

IMPORTANT: Return ONLY the JSON object, nothing else.`

// buildCoderPrompt assembles the generation prompt. When a prior evaluation
// carries feedback, the prompt instructs the model to address every point.
func buildCoderPrompt(state *api.WorkflowState) string {
	feedbackContext := ""
	if state.Evaluation != nil && state.Evaluation.Feedback != "" {
		feedbackContext = fmt.Sprintf(
			"\n\nPrevious Critic Feedback:\n%s\n\nIMPORTANT: Address all feedback points in your improved code.",
			state.Evaluation.Feedback,
		)
	}

	return fmt.Sprintf(`Generate Python visualization code for:

Request: %s
Dataset URL: %s
%s`, state.UserRequest, state.DatasetReference, feedbackContext)
}

// buildCriticPrompt assembles the evaluation prompt from the request, the
// latest code, and a capped execution transcript.
func buildCriticPrompt(state *api.WorkflowState) string {
	executionContext := ""
	if state.ExecutionResult != nil {
		executionContext = fmt.Sprintf(`
Execution Status: %s
Stdout: %s
Stderr: %s
`,
			state.ExecutionResult.Status,
			debug.Truncate(state.ExecutionResult.Stdout, transcriptCap),
			debug.Truncate(state.ExecutionResult.Stderr, transcriptCap),
		)
	}

	return fmt.Sprintf("Evaluate this visualization code:\n\n"+
		"User Request: %s\n"+
		"Dataset: %s\n\n"+
		"Generated Code:\n```python\n%s\n```\n%s\n"+
		"Provide structured evaluation as JSON.",
		state.UserRequest, state.DatasetReference, state.GeneratedCode, executionContext)
}
