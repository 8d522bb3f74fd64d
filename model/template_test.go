package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	context := map[string]string{
		"FLIGHT": "FLT-123",
		"SEAT":   "23A",
	}

	t.Run("substitutes variables", func(t *testing.T) {
		out := RenderTemplate("What is the status of {{FLIGHT}}?", context)
		assert.Equal(t, "What is the status of FLT-123?", out)
	})

	t.Run("plain string unchanged", func(t *testing.T) {
		out := RenderTemplate("no templates here", context)
		assert.Equal(t, "no templates here", out)
	})

	t.Run("malformed template returns input", func(t *testing.T) {
		out := RenderTemplate("broken {{FLIGHT", context)
		assert.Equal(t, "broken {{FLIGHT", out)
	})

	t.Run("unknown variable renders empty", func(t *testing.T) {
		out := RenderTemplate("seat {{MISSING}} here", context)
		assert.Equal(t, "seat  here", out)
	})
}

func TestGetAllEnv(t *testing.T) {
	t.Setenv("SCENARIO_TEST_VAR", "hello")
	env := GetAllEnv()
	assert.Equal(t, "hello", env["SCENARIO_TEST_VAR"])
}

// ============================================================================
// Data Extractor Tests
// ============================================================================

func TestDataExtractorJSONPath(t *testing.T) {
	result := &ExecutionResult{
		ToolCalls: []ToolCall{
			{
				Name:      "flight_status_tool",
				Result:    `{"flight_number": "FLT-123", "status": "on time", "gate": "A10"}`,
				Timestamp: time.Now(),
			},
		},
	}

	extractor := &DataExtractor{
		ExtractorType: "jsonpath",
		Tool:          "flight_status_tool",
		Path:          "$.gate",
		VariableName:  "GATE",
	}

	templateContext := make(map[string]string)
	extractor.Extract(result, templateContext)

	require.Contains(t, templateContext, "GATE")
	assert.Equal(t, "A10", templateContext["GATE"])
}

func TestDataExtractorIgnoresOtherTools(t *testing.T) {
	result := &ExecutionResult{
		ToolCalls: []ToolCall{
			{Name: "lookup_faq", Result: `{"answer": "yes"}`},
		},
	}

	extractor := &DataExtractor{
		ExtractorType: "jsonpath",
		Tool:          "flight_status_tool",
		Path:          "$.answer",
		VariableName:  "ANSWER",
	}

	templateContext := make(map[string]string)
	extractor.Extract(result, templateContext)
	assert.NotContains(t, templateContext, "ANSWER")
}

func TestDataExtractorMalformedResult(t *testing.T) {
	result := &ExecutionResult{
		ToolCalls: []ToolCall{
			{Name: "lookup_faq", Result: `not json at all`},
		},
	}

	extractor := &DataExtractor{
		ExtractorType: "jsonpath",
		Tool:          "lookup_faq",
		Path:          "$.answer",
		VariableName:  "ANSWER",
	}

	templateContext := make(map[string]string)
	extractor.Extract(result, templateContext)
	assert.Empty(t, templateContext)
}
