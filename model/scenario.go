package model

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// SCENARIO MODEL
// ============================================================================

// Expectation declares what must hold after a turn. Every field is optional;
// empty fields are not evaluated.
type Expectation struct {
	Agent           string   `json:"agent,omitempty"`
	Tools           []string `json:"tools_called,omitempty"`
	MessageContains []string `json:"message_contains,omitempty"`
	ContextUpdates  []string `json:"context_updates,omitempty"`
	Handoffs        []string `json:"handoffs,omitempty"`
}

// UnmarshalJSON accepts both "tools_called" and the shorter "tools" key used
// by some scenario files.
func (e *Expectation) UnmarshalJSON(data []byte) error {
	type alias struct {
		Agent           string   `json:"agent"`
		ToolsCalled     []string `json:"tools_called"`
		Tools           []string `json:"tools"`
		MessageContains []string `json:"message_contains"`
		ContextUpdates  []string `json:"context_updates"`
		Handoffs        []string `json:"handoffs"`
	}

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	e.Agent = a.Agent
	e.Tools = a.ToolsCalled
	if len(e.Tools) == 0 {
		e.Tools = a.Tools
	}
	e.MessageContains = a.MessageContains
	e.ContextUpdates = a.ContextUpdates
	e.Handoffs = a.Handoffs
	return nil
}

// IsEmpty reports whether no expectation field is set at all.
func (e Expectation) IsEmpty() bool {
	return e.Agent == "" &&
		len(e.Tools) == 0 &&
		len(e.MessageContains) == 0 &&
		len(e.ContextUpdates) == 0 &&
		len(e.Handoffs) == 0
}

// ConversationTurn is one scripted user-input/agent-response exchange.
// When SkipValidation is set the turn always passes; no expectation field is
// evaluated.
type ConversationTurn struct {
	UserInput      string      `json:"user"`
	Expected       Expectation `json:"expected,omitempty"`
	SkipValidation bool        `json:"skip_validation,omitempty"`
}

// Scenario is a scripted multi-turn conversation plus its pass/fail
// expectations. Constructed once by the loader and immutable afterwards.
type Scenario struct {
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	InitialContext map[string]any     `json:"initial_context,omitempty"`
	Conversation   []ConversationTurn `json:"conversation"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	Variables      map[string]string  `json:"variables,omitempty"`
	Extractors     []DataExtractor    `json:"extractors,omitempty"`
}

// ExpectsError reports whether the scenario declares that an execution error
// is its success condition (metadata key "expected_error").
func (s *Scenario) ExpectsError() bool {
	v, ok := s.Metadata["expected_error"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Validate checks the structural invariants a loaded scenario must satisfy.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if len(s.Conversation) == 0 {
		return fmt.Errorf("scenario '%s' has an empty conversation", s.Name)
	}
	for i, turn := range s.Conversation {
		if turn.UserInput == "" {
			return fmt.Errorf("scenario '%s' turn %d has no user input", s.Name, i+1)
		}
	}
	return nil
}

// scenarioSet is the combined file shape: {"scenarios": [...]}.
type scenarioSet struct {
	Scenarios []json.RawMessage `json:"scenarios"`
}

// ParseScenarios decodes scenario JSON in either accepted shape: a single
// scenario object, or an object with a "scenarios" array whose elements are
// scenario objects. Both normalize to a slice.
func ParseScenarios(data []byte) ([]*Scenario, error) {
	var set scenarioSet
	if err := json.Unmarshal(data, &set); err == nil && set.Scenarios != nil {
		scenarios := make([]*Scenario, 0, len(set.Scenarios))
		for i, raw := range set.Scenarios {
			s, err := parseOne(raw)
			if err != nil {
				return nil, fmt.Errorf("scenario at index %d: %w", i, err)
			}
			scenarios = append(scenarios, s)
		}
		return scenarios, nil
	}

	s, err := parseOne(data)
	if err != nil {
		return nil, err
	}
	return []*Scenario{s}, nil
}

func parseOne(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
