package model

import "time"

// ============================================================================
// EXECUTION RESULT
// ============================================================================

// ToolCall records one tool invocation made by the agent during a turn.
type ToolCall struct {
	Name       string         `json:"name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     string         `json:"result,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// ExecutionResult holds everything observed during one turn plus the
// validation verdict. Never mutated after creation; owned by the enclosing
// ScenarioReport.
type ExecutionResult struct {
	TurnNumber       int            `json:"turn_number"`
	UserInput        string         `json:"user_input"`
	ActiveAgent      string         `json:"active_agent,omitempty"`
	Messages         []string       `json:"messages"`
	Handoffs         []string       `json:"handoffs,omitempty"`
	ToolsCalled      []string       `json:"tools_called"`
	ToolCalls        []ToolCall     `json:"tool_calls,omitempty"`
	ContextBefore    map[string]any `json:"context_before,omitempty"`
	ContextAfter     map[string]any `json:"context_after,omitempty"`
	ContextUpdates   map[string]any `json:"context_updates,omitempty"`
	ValidationPassed bool           `json:"validation_passed"`
	ValidationErrors []string       `json:"validation_errors"`
	// ExecutionError is set only when the agent call itself failed, as
	// opposed to an expectation mismatch.
	ExecutionError  string  `json:"execution_error,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
}

// ============================================================================
// SCENARIO REPORT
// ============================================================================

// Outcome is the terminal state of a scenario run.
type Outcome string

const (
	OutcomeCompleted     Outcome = "completed"
	OutcomeFailed        Outcome = "failed"
	OutcomeExpectedError Outcome = "expected_error"
)

// ScenarioReport aggregates the per-turn results of one scenario run.
// Written to disk once; never mutated after being saved.
type ScenarioReport struct {
	ScenarioName    string            `json:"scenario_name"`
	Description     string            `json:"description,omitempty"`
	RunID           string            `json:"run_id,omitempty"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	Turns           []ExecutionResult `json:"turns"`
	TotalTurns      int               `json:"total_turns"`
	SuccessfulTurns int               `json:"successful_turns"`
	FailedTurns     int               `json:"failed_turns"`
	OverallSuccess  bool              `json:"success"`
	Outcome         Outcome           `json:"outcome"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
	Errors          []string          `json:"errors"`
}

// ToolCallCount sums the tool invocations across all turns.
func (r *ScenarioReport) ToolCallCount() int {
	count := 0
	for _, turn := range r.Turns {
		count += len(turn.ToolsCalled)
	}
	return count
}

// ============================================================================
// BATCH SUMMARY
// ============================================================================

// ScenarioSummary is the compact per-scenario entry in a batch summary.
// Full turn bodies are deliberately omitted to keep the combined file small.
type ScenarioSummary struct {
	ScenarioName    string   `json:"scenario_name"`
	OverallSuccess  bool     `json:"success"`
	Outcome         Outcome  `json:"outcome"`
	TotalTurns      int      `json:"total_turns"`
	FailedTurns     int      `json:"failed_turns"`
	ToolCalls       int      `json:"tool_calls"`
	ExecutionTimeMs float64  `json:"execution_time_ms"`
	Errors          []string `json:"errors,omitempty"`
}

// BatchSummary aggregates counts and rates across many scenario runs.
type BatchSummary struct {
	RunID           string            `json:"run_id,omitempty"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	TotalScenarios  int               `json:"total_scenarios"`
	Successful      int               `json:"successful"`
	Failed          int               `json:"failed"`
	SuccessRate     float64           `json:"success_rate"`
	TotalTurns      int               `json:"total_turns"`
	TotalToolCalls  int               `json:"total_tool_calls"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
	Scenarios       []ScenarioSummary `json:"scenarios"`
}

// BuildBatchSummary collapses full reports into a batch summary. Reports may
// arrive in any completion order; the summary preserves the order given.
func BuildBatchSummary(runID string, start, end time.Time, reports []*ScenarioReport) *BatchSummary {
	summary := &BatchSummary{
		RunID:     runID,
		StartTime: start,
		EndTime:   end,
		Scenarios: make([]ScenarioSummary, 0, len(reports)),
	}

	for _, report := range reports {
		if report == nil {
			continue
		}

		summary.TotalScenarios++
		if report.OverallSuccess {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.TotalTurns += report.TotalTurns
		summary.TotalToolCalls += report.ToolCallCount()
		summary.ExecutionTimeMs += report.ExecutionTimeMs

		summary.Scenarios = append(summary.Scenarios, ScenarioSummary{
			ScenarioName:    report.ScenarioName,
			OverallSuccess:  report.OverallSuccess,
			Outcome:         report.Outcome,
			TotalTurns:      report.TotalTurns,
			FailedTurns:     report.FailedTurns,
			ToolCalls:       report.ToolCallCount(),
			ExecutionTimeMs: report.ExecutionTimeMs,
			Errors:          report.Errors,
		})
	}

	if summary.TotalScenarios > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.TotalScenarios)
	}

	return summary
}
