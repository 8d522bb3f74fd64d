package agent

import (
	"context"
	"fmt"

	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/state"
)

// Reply is everything an agent produced for one user turn.
type Reply struct {
	Messages    []string
	ToolCalls   []model.ToolCall
	Handoffs    []string
	ActiveAgent string
}

// ToolNames lists the tools invoked, in call order.
func (r *Reply) ToolNames() []string {
	names := make([]string, 0, len(r.ToolCalls))
	for _, tc := range r.ToolCalls {
		names = append(names, tc.Name)
	}
	return names
}

// Session is one conversation with an agent. Responses may depend on the
// session's accumulated history. A session must not be shared across
// goroutines.
type Session interface {
	// Respond handles one user input. The state bag is the scenario's live
	// conversation context; the session may read and mutate it.
	Respond(ctx context.Context, input string, bag *state.Bag) (*Reply, error)
}

// Agent produces fresh sessions. Implementations must be safe to call
// NewSession concurrently so parallel scenario runs can share one Agent.
type Agent interface {
	Name() string
	NewSession() Session
}

// ============================================================================
// REGISTRY
// ============================================================================

// Registry resolves agent names to registered agents. The first agent
// registered becomes the default.
type Registry struct {
	agents      map[string]Agent
	defaultName string
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

func (r *Registry) Register(a Agent) {
	if len(r.agents) == 0 {
		r.defaultName = a.Name()
	}
	r.agents[a.Name()] = a
}

// Get returns the named agent, or the default when name is empty.
func (r *Registry) Get(name string) (Agent, error) {
	if name == "" {
		name = r.defaultName
	}
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent '%s' is not registered", name)
	}
	return a, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// ============================================================================
// FUNC AGENT
// ============================================================================

// RespondFunc adapts a plain function to the Session interface.
type RespondFunc func(ctx context.Context, input string, bag *state.Bag) (*Reply, error)

// FuncAgent wraps a response function as a stateless agent. Used for local
// demo agents and as a test double.
type FuncAgent struct {
	AgentName string
	Fn        RespondFunc
}

func (f *FuncAgent) Name() string { return f.AgentName }

func (f *FuncAgent) NewSession() Session {
	return funcSession{name: f.AgentName, fn: f.Fn}
}

type funcSession struct {
	name string
	fn   RespondFunc
}

func (s funcSession) Respond(ctx context.Context, input string, bag *state.Bag) (*Reply, error) {
	reply, err := s.fn(ctx, input, bag)
	if err != nil {
		return nil, err
	}
	if reply.ActiveAgent == "" {
		reply.ActiveAgent = s.name
	}
	return reply, nil
}
