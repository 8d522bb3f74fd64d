package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallCount(t *testing.T) {
	report := &ScenarioReport{
		Turns: []ExecutionResult{
			{ToolsCalled: []string{"lookup_faq"}},
			{ToolsCalled: []string{"update_seat", "flight_status_tool"}},
			{ToolsCalled: []string{}},
		},
	}
	assert.Equal(t, 3, report.ToolCallCount())
}

func TestBuildBatchSummary(t *testing.T) {
	start := time.Now()
	end := start.Add(3 * time.Second)

	reports := []*ScenarioReport{
		{
			ScenarioName:    "pass",
			OverallSuccess:  true,
			Outcome:         OutcomeCompleted,
			TotalTurns:      2,
			ExecutionTimeMs: 1200,
			Turns:           []ExecutionResult{{ToolsCalled: []string{"a"}}, {ToolsCalled: []string{"b"}}},
		},
		nil,
		{
			ScenarioName:    "fail",
			OverallSuccess:  false,
			Outcome:         OutcomeFailed,
			TotalTurns:      1,
			FailedTurns:     1,
			ExecutionTimeMs: 800,
			Errors:          []string{"turn 1: execution error: boom"},
		},
	}

	summary := BuildBatchSummary("run-42", start, end, reports)

	assert.Equal(t, "run-42", summary.RunID)
	assert.Equal(t, 2, summary.TotalScenarios)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 0.5, summary.SuccessRate, 0.001)
	assert.Equal(t, 3, summary.TotalTurns)
	assert.Equal(t, 2, summary.TotalToolCalls)
	assert.InDelta(t, 2000, summary.ExecutionTimeMs, 0.001)

	require.Len(t, summary.Scenarios, 2)
	assert.Equal(t, "pass", summary.Scenarios[0].ScenarioName)
	assert.Equal(t, "fail", summary.Scenarios[1].ScenarioName)
	assert.Equal(t, []string{"turn 1: execution error: boom"}, summary.Scenarios[1].Errors)
}

func TestBuildBatchSummaryEmpty(t *testing.T) {
	summary := BuildBatchSummary("run", time.Now(), time.Now(), nil)
	assert.Zero(t, summary.TotalScenarios)
	assert.Zero(t, summary.SuccessRate)
	assert.Empty(t, summary.Scenarios)
}
