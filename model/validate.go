package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/life4/genesis/slices"
)

// TurnOutcome is the verdict of validating one turn against its expectation.
// Errors lists every mismatch found; validation never stops at the first one.
type TurnOutcome struct {
	Passed  bool
	Skipped bool
	Errors  []string
}

// ValidateTurn checks an observed turn result against the turn's expectation.
// All checks run and all mismatches accumulate. A turn with skip_validation
// set, or with an empty expectation, passes unconditionally.
func ValidateTurn(turn *ConversationTurn, result *ExecutionResult) TurnOutcome {
	if turn.SkipValidation {
		return TurnOutcome{Passed: true, Skipped: true}
	}
	if turn.Expected.IsEmpty() {
		return TurnOutcome{Passed: true}
	}

	var errs []string
	expected := turn.Expected

	if expected.Agent != "" && result.ActiveAgent != expected.Agent {
		errs = append(errs, fmt.Sprintf("expected agent %q, got %q", expected.Agent, result.ActiveAgent))
	}

	// Tool containment: every expected tool must appear among the calls made,
	// extra calls are fine.
	for _, tool := range expected.Tools {
		if !slices.Contains(result.ToolsCalled, tool) {
			errs = append(errs, fmt.Sprintf("expected tool %q was not called (called: %s)",
				tool, formatList(result.ToolsCalled)))
		}
	}

	// Case-insensitive substring match against the concatenated agent output.
	combined := strings.ToLower(strings.Join(result.Messages, "\n"))
	for _, fragment := range expected.MessageContains {
		if !strings.Contains(combined, strings.ToLower(fragment)) {
			errs = append(errs, fmt.Sprintf("expected message to contain %q", fragment))
		}
	}

	for _, field := range expected.ContextUpdates {
		if _, ok := result.ContextUpdates[field]; !ok {
			errs = append(errs, fmt.Sprintf("expected context field %q to change (changed: %s)",
				field, formatKeys(result.ContextUpdates)))
		}
	}

	for _, handoff := range expected.Handoffs {
		if !slices.Contains(result.Handoffs, handoff) {
			errs = append(errs, fmt.Sprintf("expected handoff to %q did not happen", handoff))
		}
	}

	return TurnOutcome{Passed: len(errs) == 0, Errors: errs}
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func formatKeys(m map[string]any) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
