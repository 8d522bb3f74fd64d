package support

import (
	"context"
	"testing"

	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/runner"
	"github.com/mykhaliev/agent-scenarios/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAirlineContext(t *testing.T) {
	ctx := NewAirlineContext()
	assert.NotEmpty(t, ctx.AccountNumber)
	assert.Len(t, ctx.AccountNumber, 8)
	assert.NotEmpty(t, ctx.CustomerName)
	assert.Len(t, ctx.ConfirmationNumber, 6)
	assert.False(t, ctx.Authenticated)

	m := ctx.ToMap()
	assert.Equal(t, ctx.SeatNumber, m["seat_number"])
	assert.Equal(t, ctx.FlightNumber, m["flight_number"])
	assert.Equal(t, false, m["authenticated"])
}

func runScenario(t *testing.T, scenario *model.Scenario) *model.ScenarioReport {
	t.Helper()
	r := runner.New(NewRegistry())
	report, err := r.RunScenario(context.Background(), scenario)
	require.NoError(t, err)
	return report
}

func TestDemoGreetingAndFarewell(t *testing.T) {
	report := runScenario(t, &model.Scenario{
		Name: "greeting",
		Conversation: []model.ConversationTurn{
			{
				UserInput: "hi",
				Expected: model.Expectation{
					Agent:           TriageAgentName,
					MessageContains: []string{"how can I help"},
				},
			},
			{
				UserInput: "goodbye",
				Expected:  model.Expectation{MessageContains: []string{"goodbye"}},
			},
		},
	})

	assert.True(t, report.OverallSuccess)
	assert.Equal(t, model.OutcomeCompleted, report.Outcome)
}

func TestDemoUmbrellaFAQ(t *testing.T) {
	report := runScenario(t, &model.Scenario{
		Name: "umbrella question",
		Conversation: []model.ConversationTurn{
			{
				UserInput: "Can I bring an umbrella on board?",
				Expected: model.Expectation{
					Agent:           FAQAgentName,
					Tools:           []string{"lookup_faq"},
					MessageContains: []string{"under the seat in front of you"},
					Handoffs:        []string{FAQAgentName},
				},
			},
		},
	})

	assert.True(t, report.OverallSuccess)
}

func TestDemoSeatChangeUpdatesContext(t *testing.T) {
	report := runScenario(t, &model.Scenario{
		Name:           "seat change",
		InitialContext: map[string]any{"seat_number": "12B", "confirmation_number": "ABC123"},
		Conversation: []model.ConversationTurn{
			{
				UserInput: "Please change my seat to 23A",
				Expected: model.Expectation{
					Agent:           SeatBookingAgentName,
					Tools:           []string{"update_seat"},
					ContextUpdates:  []string{"seat_number"},
					MessageContains: []string{"23A"},
				},
			},
		},
	})

	require.True(t, report.OverallSuccess)
	assert.Equal(t, "23A", report.Turns[0].ContextAfter["seat_number"])
}

func TestDemoFlightStatus(t *testing.T) {
	report := runScenario(t, &model.Scenario{
		Name:           "flight status",
		InitialContext: map[string]any{"flight_number": "FLT-123"},
		Conversation: []model.ConversationTurn{
			{
				UserInput: "What's the status of my flight?",
				Expected: model.Expectation{
					Agent:           FlightStatusAgentName,
					Tools:           []string{"flight_status_tool"},
					MessageContains: []string{"FLT-123", "on time"},
				},
			},
		},
	})

	assert.True(t, report.OverallSuccess)
}

func TestDemoCancellation(t *testing.T) {
	report := runScenario(t, &model.Scenario{
		Name:           "cancel flight",
		InitialContext: map[string]any{"flight_number": "FLT-123", "confirmation_number": "ABC123"},
		Conversation: []model.ConversationTurn{
			{
				UserInput: "I want to cancel my flight",
				Expected: model.Expectation{
					Agent:          CancellationAgentName,
					Tools:          []string{"cancel_flight"},
					ContextUpdates: []string{"flight_cancelled"},
					Handoffs:       []string{CancellationAgentName},
				},
			},
		},
	})

	assert.True(t, report.OverallSuccess)
}

func TestDemoAuthentication(t *testing.T) {
	bagCtx := map[string]any{"account_number": "12345678"}

	t.Run("matching account number authenticates", func(t *testing.T) {
		report := runScenario(t, &model.Scenario{
			Name:           "authenticate",
			InitialContext: bagCtx,
			Conversation: []model.ConversationTurn{
				{
					UserInput: "My account number is 12345678",
					Expected: model.Expectation{
						ContextUpdates:  []string{"authenticated"},
						MessageContains: []string{"verified"},
					},
				},
			},
		})
		assert.True(t, report.OverallSuccess)
	})

	t.Run("wrong account number does not authenticate", func(t *testing.T) {
		report := runScenario(t, &model.Scenario{
			Name:           "bad account",
			InitialContext: bagCtx,
			Conversation: []model.ConversationTurn{
				{
					UserInput: "My account number is 00000000",
					Expected:  model.Expectation{MessageContains: []string{"couldn't verify"}},
				},
			},
		})
		assert.True(t, report.OverallSuccess)
	})
}

func TestTriageFallback(t *testing.T) {
	reply, err := triageRespond(context.Background(), "quantum mechanics please", state.NewBag(nil))
	require.NoError(t, err)
	assert.Equal(t, TriageAgentName, reply.ActiveAgent)
	require.NotEmpty(t, reply.Messages)
	assert.Contains(t, reply.Messages[0], "seat changes")
}
