package support

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/mykhaliev/agent-scenarios/agent"
	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/state"
)

const (
	TriageAgentName       = "Triage Agent"
	FAQAgentName          = "FAQ Agent"
	SeatBookingAgentName  = "Seat Booking Agent"
	FlightStatusAgentName = "Flight Status Agent"
	CancellationAgentName = "Cancellation Agent"
)

var seatPattern = regexp.MustCompile(`\b(\d{1,2}[A-F])\b`)

// NewRegistry builds the demo registry. The triage agent is registered first
// and therefore acts as the default entry point.
func NewRegistry() *agent.Registry {
	registry := agent.NewRegistry()
	registry.Register(&agent.FuncAgent{AgentName: TriageAgentName, Fn: triageRespond})
	return registry
}

// triageRespond routes one user turn by keyword, the way the real system
// routes by LLM intent. Specialist handling happens inline; the reply records
// the handoff and the specialist as active agent.
func triageRespond(ctx context.Context, input string, bag *state.Bag) (*agent.Reply, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Scenarios without an initial context get a fabricated customer record
	// so the specialists have something to look up.
	if bag.Len() == 0 {
		for key, value := range NewAirlineContext().ToMap() {
			bag.Set(key, value)
		}
	}

	lowered := strings.ToLower(input)

	switch {
	case containsAny(lowered, "goodbye", "bye", "that's all", "thanks"):
		return say(TriageAgentName, "Goodbye! Thank you for flying with us."), nil

	case containsAny(lowered, "seat") && containsAny(lowered, "change", "move", "switch", "book"):
		return changeSeat(input, bag), nil

	case containsAny(lowered, "status", "delayed", "on time", "departure", "gate"):
		return flightStatus(bag), nil

	case containsAny(lowered, "cancel"):
		return cancelFlight(bag), nil

	case containsAny(lowered, "account"):
		return authenticate(input, bag), nil

	case containsAny(lowered, "umbrella", "baggage", "bag", "wifi", "how many", "carry"):
		return lookupFAQ(input), nil

	case containsAny(lowered, "hi", "hello", "help"):
		return say(TriageAgentName, "How can I help you?"), nil
	}

	return say(TriageAgentName,
		"I can help with seat changes, flight status, cancellations and general questions."), nil
}

func lookupFAQ(question string) *agent.Reply {
	answer := faqAnswer(question)
	reply := handoff(FAQAgentName)
	reply.ToolCalls = append(reply.ToolCalls, toolCall("lookup_faq",
		map[string]any{"question": question},
		fmt.Sprintf(`{"answer": %q}`, answer)))
	reply.Messages = append(reply.Messages, answer)
	return reply
}

func faqAnswer(question string) string {
	lowered := strings.ToLower(question)
	switch {
	case strings.Contains(lowered, "umbrella"):
		return "Umbrellas must be stored under the seat in front of you or in the overhead bin."
	case strings.Contains(lowered, "wifi"):
		return "Free wifi is available on this flight. Join the Airline-Wifi network."
	case containsAny(lowered, "bag", "baggage", "carry"):
		return "You are allowed one carry-on bag and one personal item. Checked baggage fees may apply."
	case strings.Contains(lowered, "how many"):
		return "The plane has 120 seats: 22 business class and 98 economy class."
	}
	return "I'm sorry, I don't have an answer for that. Please contact customer service."
}

func changeSeat(input string, bag *state.Bag) *agent.Reply {
	seat := ""
	if match := seatPattern.FindString(input); match != "" {
		seat = match
	} else {
		seat = fmt.Sprintf("%d%s", gofakeit.Number(1, 40),
			gofakeit.RandomString([]string{"A", "B", "C", "D", "E", "F"}))
	}

	confirmation, _ := bag.Get("confirmation_number")
	bag.Set("seat_number", seat)

	reply := handoff(SeatBookingAgentName)
	reply.ToolCalls = append(reply.ToolCalls, toolCall("update_seat",
		map[string]any{"confirmation_number": confirmation, "new_seat": seat},
		fmt.Sprintf(`{"seat_number": %q, "updated": true}`, seat)))
	reply.Messages = append(reply.Messages,
		fmt.Sprintf("Your seat has been changed to %s.", seat))
	return reply
}

func flightStatus(bag *state.Bag) *agent.Reply {
	flight, ok := bag.Get("flight_number")
	if !ok || flight == "" {
		flight = fmt.Sprintf("FLT-%d", gofakeit.Number(100, 999))
		bag.Set("flight_number", flight)
	}

	gate := fmt.Sprintf("%s%d", gofakeit.RandomString([]string{"A", "B", "C"}), gofakeit.Number(1, 30))
	reply := handoff(FlightStatusAgentName)
	reply.ToolCalls = append(reply.ToolCalls, toolCall("flight_status_tool",
		map[string]any{"flight_number": flight},
		fmt.Sprintf(`{"flight_number": %q, "status": "on time", "gate": %q}`, flight, gate)))
	reply.Messages = append(reply.Messages,
		fmt.Sprintf("Flight %v is on time and scheduled to depart from gate %s.", flight, gate))
	return reply
}

func cancelFlight(bag *state.Bag) *agent.Reply {
	confirmation, _ := bag.Get("confirmation_number")
	flight, _ := bag.Get("flight_number")
	bag.Set("flight_cancelled", true)

	reply := handoff(CancellationAgentName)
	reply.ToolCalls = append(reply.ToolCalls, toolCall("cancel_flight",
		map[string]any{"confirmation_number": confirmation},
		`{"cancelled": true}`))
	reply.Messages = append(reply.Messages,
		fmt.Sprintf("Your flight %v has been cancelled. A confirmation email is on its way.", flight))
	return reply
}

func authenticate(input string, bag *state.Bag) *agent.Reply {
	account, ok := bag.Get("account_number")
	accountStr := ""
	if ok && account != nil {
		accountStr = fmt.Sprint(account)
	}

	if accountStr != "" && strings.Contains(input, accountStr) {
		bag.Set("authenticated", true)
		return say(TriageAgentName, "Thanks, your account has been verified. How can I help you?")
	}
	return say(TriageAgentName, "I couldn't verify that account number. Could you double-check it?")
}

func say(agentName string, messages ...string) *agent.Reply {
	return &agent.Reply{
		ActiveAgent: agentName,
		Messages:    messages,
	}
}

func handoff(target string) *agent.Reply {
	return &agent.Reply{
		ActiveAgent: target,
		Handoffs:    []string{target},
	}
}

func toolCall(name string, args map[string]any, result string) model.ToolCall {
	return model.ToolCall{
		Name:      name,
		Arguments: args,
		Result:    result,
		Timestamp: time.Now(),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
