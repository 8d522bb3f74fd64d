package agent

import (
	"context"
	"testing"

	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoAgent(name string) *FuncAgent {
	return &FuncAgent{
		AgentName: name,
		Fn: func(ctx context.Context, input string, bag *state.Bag) (*Reply, error) {
			return &Reply{Messages: []string{"echo: " + input}}, nil
		},
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoAgent("first"))
	registry.Register(echoAgent("second"))

	t.Run("empty name resolves to first registered", func(t *testing.T) {
		a, err := registry.Get("")
		require.NoError(t, err)
		assert.Equal(t, "first", a.Name())
	})

	t.Run("named lookup", func(t *testing.T) {
		a, err := registry.Get("second")
		require.NoError(t, err)
		assert.Equal(t, "second", a.Name())
	})

	t.Run("unknown name errors", func(t *testing.T) {
		_, err := registry.Get("ghost")
		assert.ErrorContains(t, err, "ghost")
	})

	t.Run("names lists registered agents", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"first", "second"}, registry.Names())
	})
}

func TestFuncAgentSessionDefaultsActiveAgent(t *testing.T) {
	session := echoAgent("demo").NewSession()
	reply, err := session.Respond(context.Background(), "hello", state.NewBag(nil))
	require.NoError(t, err)
	assert.Equal(t, "demo", reply.ActiveAgent)
	assert.Equal(t, []string{"echo: hello"}, reply.Messages)
}

func TestFuncAgentSessionKeepsExplicitActiveAgent(t *testing.T) {
	a := &FuncAgent{
		AgentName: "router",
		Fn: func(ctx context.Context, input string, bag *state.Bag) (*Reply, error) {
			return &Reply{ActiveAgent: "specialist", Handoffs: []string{"specialist"}}, nil
		},
	}

	reply, err := a.NewSession().Respond(context.Background(), "x", state.NewBag(nil))
	require.NoError(t, err)
	assert.Equal(t, "specialist", reply.ActiveAgent)
}

func TestReplyToolNames(t *testing.T) {
	reply := &Reply{ToolCalls: []model.ToolCall{
		{Name: "lookup_faq"},
		{Name: "update_seat"},
	}}
	assert.Equal(t, []string{"lookup_faq", "update_seat"}, reply.ToolNames())

	empty := &Reply{}
	assert.Empty(t, empty.ToolNames())
}

func TestHandoffTargetResolution(t *testing.T) {
	ag := &LLMAgent{
		name:           "Triage Agent",
		handoffTargets: []string{"Seat Booking Agent"},
	}

	target, ok := ag.handoffTarget("transfer_to_seat_booking_agent")
	require.True(t, ok)
	assert.Equal(t, "Seat Booking Agent", target)

	_, ok = ag.handoffTarget("transfer_to_unknown_agent")
	assert.False(t, ok)

	_, ok = ag.handoffTarget("update_seat")
	assert.False(t, ok)
}
