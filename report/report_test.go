package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(name string, success bool) *model.ScenarioReport {
	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	outcome := model.OutcomeCompleted
	failed := 0
	if !success {
		outcome = model.OutcomeFailed
		failed = 1
	}
	return &model.ScenarioReport{
		ScenarioName:    name,
		RunID:           "run-1",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		Turns: []model.ExecutionResult{
			{
				TurnNumber:       1,
				UserInput:        "hi",
				Messages:         []string{"How can I help you?"},
				ToolsCalled:      []string{},
				ValidationPassed: success,
				ValidationErrors: []string{},
			},
		},
		TotalTurns:      1,
		SuccessfulTurns: 1 - failed,
		FailedTurns:     failed,
		OverallSuccess:  success,
		Outcome:         outcome,
		ExecutionTimeMs: 2000,
		Errors:          []string{},
	}
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveReport(sampleReport("greeting flow", true), dir)
	require.NoError(t, err)

	assert.Equal(t, "greeting_flow_20260314_093000.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded model.ScenarioReport
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, "greeting flow", decoded.ScenarioName)
	assert.True(t, decoded.OverallSuccess)
	assert.Equal(t, model.OutcomeCompleted, decoded.Outcome)
	require.Len(t, decoded.Turns, 1)
	assert.Equal(t, "hi", decoded.Turns[0].UserInput)
}

func TestSaveReportCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")

	_, err := SaveReport(sampleReport("a", true), dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveReportsDoNotClobber(t *testing.T) {
	dir := t.TempDir()

	first := sampleReport("same name", true)
	second := sampleReport("same name", true)
	second.StartTime = second.StartTime.Add(time.Second)

	p1, err := SaveReport(first, dir)
	require.NoError(t, err)
	p2, err := SaveReport(second, dir)
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
}

func TestSaveSummary(t *testing.T) {
	dir := t.TempDir()
	reports := []*model.ScenarioReport{
		sampleReport("one", true),
		sampleReport("two", false),
	}
	summary := model.BuildBatchSummary("run-1",
		reports[0].StartTime, reports[0].StartTime.Add(5*time.Second), reports)

	path, err := SaveSummary(summary, dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "summary_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded model.BatchSummary
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.TotalScenarios)
	assert.Equal(t, 1, decoded.Successful)
	assert.Equal(t, 1, decoded.Failed)
	assert.InDelta(t, 0.5, decoded.SuccessRate, 0.001)
	require.Len(t, decoded.Scenarios, 2)
	// Summary entries stay compact: no full turn bodies.
	assert.NotContains(t, string(data), `"turns"`)
}

func TestGenerateMarkdownSummary(t *testing.T) {
	reports := []*model.ScenarioReport{
		sampleReport("passing", true),
		sampleReport("failing", false),
	}
	reports[1].Turns[0].ValidationErrors = []string{"expected agent \"FAQ Agent\", got \"Triage Agent\""}
	summary := model.BuildBatchSummary("run-1",
		reports[0].StartTime, reports[0].StartTime.Add(time.Second), reports)

	md := GenerateMarkdownSummary(reports, summary)

	assert.Contains(t, md, "# Scenario Results")
	assert.Contains(t, md, "| passing |")
	assert.Contains(t, md, "| failing |")
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "FAQ Agent")
	assert.NotContains(t, md, "### passing")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"with spaces here", "with_spaces_here"},
		{"slash/and\\backslash", "slash_and_backslash"},
		{"***", "scenario"},
		{"_trimmed_", "trimmed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
