package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mykhaliev/agent-scenarios/agent"
	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/state"
)

// Status tracks a scenario run through its lifecycle. Transitions are
// strictly pending -> running -> completed | failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Runner executes scenarios against a registered agent. Safe for concurrent
// use: every scenario run gets its own session and state bag.
type Runner struct {
	Registry  *agent.Registry
	AgentName string
	// Variables seed the template context for every scenario, under the
	// environment but above nothing else. Scenario variables override them.
	Variables map[string]string
	// TurnTimeout bounds a single agent response. Zero means no limit.
	TurnTimeout time.Duration
	// ScenarioDelay spaces out scenario launches in a batch. Zero means
	// launch back to back.
	ScenarioDelay time.Duration
}

func New(registry *agent.Registry) *Runner {
	return &Runner{Registry: registry}
}

// RunScenario executes every conversation turn of one scenario in order and
// returns the report. Turn-level problems become report data; the only error
// paths out of here are an unknown agent and a cancelled context.
func (r *Runner) RunScenario(ctx context.Context, scenario *model.Scenario) (*model.ScenarioReport, error) {
	ag, err := r.Registry.Get(r.AgentName)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	report := &model.ScenarioReport{
		ScenarioName: scenario.Name,
		Description:  scenario.Description,
		RunID:        uuid.NewString(),
		StartTime:    time.Now(),
		Turns:        make([]model.ExecutionResult, 0, len(scenario.Conversation)),
		Errors:       make([]string, 0),
	}

	logger.Logger.Info("Starting scenario",
		"scenario", scenario.Name,
		"turns", len(scenario.Conversation),
		"agent", ag.Name(),
		"run_id", report.RunID)

	session := ag.NewSession()
	bag := state.NewBag(scenario.InitialContext)
	templateContext := r.buildTemplateContext(scenario)
	status = StatusRunning

	for i, turn := range scenario.Conversation {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("run cancelled before turn %d: %v", i+1, ctx.Err()))
			break
		}

		result := r.ExecuteTurn(ctx, session, &turn, i+1, bag, templateContext)
		report.Turns = append(report.Turns, *result)

		if !result.ValidationPassed {
			logger.Logger.Warn("Turn validation failed",
				"scenario", scenario.Name,
				"turn", result.TurnNumber,
				"errors", result.ValidationErrors)
		}

		for _, extractor := range scenario.Extractors {
			extractor.Extract(result, templateContext)
		}
	}

	report.EndTime = time.Now()
	report.ExecutionTimeMs = float64(report.EndTime.Sub(report.StartTime).Microseconds()) / 1000.0
	report.TotalTurns = len(report.Turns)
	for _, turn := range report.Turns {
		if turn.ValidationPassed {
			report.SuccessfulTurns++
		} else {
			report.FailedTurns++
		}
	}

	execErrors := collectExecutionErrors(report)
	report.Errors = append(report.Errors, execErrors...)

	if scenario.ExpectsError() {
		// Inverted success condition: the scenario passes only when
		// execution actually blew up somewhere.
		if len(execErrors) > 0 {
			report.Outcome = model.OutcomeExpectedError
			report.OverallSuccess = true
			status = StatusCompleted
		} else {
			report.Outcome = model.OutcomeFailed
			report.OverallSuccess = false
			report.Errors = append(report.Errors, "expected an execution error but none occurred")
			status = StatusFailed
		}
	} else {
		success := report.FailedTurns == 0 && len(report.Errors) == 0 &&
			report.TotalTurns == len(scenario.Conversation)
		report.OverallSuccess = success
		if success {
			report.Outcome = model.OutcomeCompleted
			status = StatusCompleted
		} else {
			report.Outcome = model.OutcomeFailed
			status = StatusFailed
		}
	}

	logger.Logger.Info("Scenario finished",
		"scenario", scenario.Name,
		"status", status,
		"outcome", report.Outcome,
		"successful_turns", report.SuccessfulTurns,
		"failed_turns", report.FailedTurns,
		"duration_ms", report.ExecutionTimeMs)

	return report, nil
}

// ExecuteTurn runs one conversation turn: render the input, snapshot the
// context, ask the agent, diff the context, validate. An agent failure is
// recorded in the result rather than returned.
func (r *Runner) ExecuteTurn(
	ctx context.Context,
	session agent.Session,
	turn *model.ConversationTurn,
	turnNumber int,
	bag *state.Bag,
	templateContext map[string]string,
) *model.ExecutionResult {
	input := model.RenderTemplate(turn.UserInput, templateContext)
	before := bag.Snapshot()
	start := time.Now()

	logger.Logger.Info("Executing turn",
		"turn", turnNumber,
		"input", input)

	result := &model.ExecutionResult{
		TurnNumber:       turnNumber,
		UserInput:        input,
		Messages:         make([]string, 0),
		ToolsCalled:      make([]string, 0),
		ValidationErrors: make([]string, 0),
		ContextBefore:    before,
	}

	turnCtx := ctx
	var cancel context.CancelFunc
	if r.TurnTimeout > 0 {
		turnCtx, cancel = context.WithTimeout(ctx, r.TurnTimeout)
		defer cancel()
	}

	reply, err := session.Respond(turnCtx, input, bag)
	result.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	result.ContextAfter = bag.Snapshot()
	result.ContextUpdates = state.Diff(before, result.ContextAfter)

	if err != nil {
		result.ValidationPassed = false
		result.ExecutionError = err.Error()
		result.ValidationErrors = append(result.ValidationErrors,
			fmt.Sprintf("execution error: %v", err))
		logger.Logger.Error("Turn execution failed",
			"turn", turnNumber,
			"error", err)
		return result
	}

	result.ActiveAgent = reply.ActiveAgent
	result.Messages = reply.Messages
	result.Handoffs = reply.Handoffs
	result.ToolsCalled = reply.ToolNames()
	result.ToolCalls = reply.ToolCalls

	outcome := model.ValidateTurn(turn, result)
	if outcome.Skipped {
		logger.Logger.Debug("Turn validation skipped", "turn", turnNumber)
	} else if turn.Expected.IsEmpty() {
		logger.Logger.Warn("Turn has no expectations, passing by default", "turn", turnNumber)
	}
	result.ValidationPassed = outcome.Passed
	result.ValidationErrors = append(result.ValidationErrors, outcome.Errors...)

	return result
}

func (r *Runner) buildTemplateContext(scenario *model.Scenario) map[string]string {
	templateContext := model.GetAllEnv()
	for k, v := range r.Variables {
		templateContext[k] = v
	}
	for k, v := range scenario.Variables {
		templateContext[k] = v
	}
	return templateContext
}

// collectExecutionErrors pulls the execution failures (as opposed to plain
// expectation mismatches) out of the turn results.
func collectExecutionErrors(report *model.ScenarioReport) []string {
	var errs []string
	for _, turn := range report.Turns {
		if turn.ExecutionError != "" {
			errs = append(errs, fmt.Sprintf("turn %d: execution error: %s",
				turn.TurnNumber, turn.ExecutionError))
		}
	}
	return errs
}
