package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"empty uses default", "", DefaultTimeout},
		{"valid duration", "30s", 30 * time.Second},
		{"milliseconds", "250ms", 250 * time.Millisecond},
		{"invalid uses default", "banana", DefaultTimeout},
		{"negative clamps to zero", "-5s", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimeout(tt.in))
		})
	}
}

func TestGetMaxIterations(t *testing.T) {
	assert.Equal(t, DefaultMaxIterations, GetMaxIterations(0))
	assert.Equal(t, DefaultMaxIterations, GetMaxIterations(-3))
	assert.Equal(t, 7, GetMaxIterations(7))
}

func TestFirstNonZeroAndNonEmpty(t *testing.T) {
	assert.Equal(t, 5, firstNonZero(0, 5, 9))
	assert.Equal(t, 0, firstNonZero(0, 0))
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestBuildTemplateContext(t *testing.T) {
	t.Setenv("ENGINE_TEST_ENV", "from-env")

	ctx := buildTemplateContext(map[string]string{
		"CUSTOM":          "from-config",
		"ENGINE_TEST_ENV": "overridden",
	})

	assert.Equal(t, "from-config", ctx["CUSTOM"])
	// Config variables win over the environment.
	assert.Equal(t, "overridden", ctx["ENGINE_TEST_ENV"])
}

func TestRunWithBuiltinAgents(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "greeting.json")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`{
		"name": "greeting",
		"conversation": [
			{"user": "hi", "expected": {"message_contains": ["how can I help"]}},
			{"user": "goodbye", "expected": {"message_contains": ["goodbye"]}}
		]
	}`), 0644))

	outputDir := filepath.Join(dir, "results")
	code := Run(context.Background(), Options{
		ScenarioPath: scenarioPath,
		OutputDir:    outputDir,
		Parallel:     1,
	})
	assert.Equal(t, 0, code)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	// One scenario report plus the JSON and Markdown summaries.
	assert.Len(t, entries, 3)
}

func TestRunExitCodeOnFailure(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "failing.json")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`{
		"name": "failing",
		"conversation": [
			{"user": "hi", "expected": {"message_contains": ["text that never appears"]}}
		]
	}`), 0644))

	code := Run(context.Background(), Options{
		ScenarioPath: scenarioPath,
		OutputDir:    filepath.Join(dir, "results"),
	})
	assert.Equal(t, 1, code)
}

func TestRunDirectoryWithOnlyMalformedScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0644))

	code := Run(context.Background(), Options{
		ScenarioPath: dir,
		OutputDir:    filepath.Join(dir, "results"),
	})
	assert.Equal(t, 1, code)
}

func TestRunMissingScenarioPath(t *testing.T) {
	code := Run(context.Background(), Options{
		ScenarioPath: filepath.Join(t.TempDir(), "nope.json"),
	})
	assert.Equal(t, 1, code)
}
