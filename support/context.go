// Package support ships the built-in airline demo agents used when no
// harness configuration is supplied. They answer locally, call no LLM, and
// exist so scenarios can run end to end out of the box.
package support

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

// AirlineContext is the typed conversation state of the demo airline.
// Scenarios observe it through the state bag as plain fields.
type AirlineContext struct {
	AccountNumber      string `json:"account_number"`
	CustomerName       string `json:"customer_name"`
	ConfirmationNumber string `json:"confirmation_number"`
	FlightNumber       string `json:"flight_number"`
	SeatNumber         string `json:"seat_number"`
	Authenticated      bool   `json:"authenticated"`
}

// NewAirlineContext fabricates a plausible starting context for a demo run.
func NewAirlineContext() *AirlineContext {
	return &AirlineContext{
		AccountNumber:      fmt.Sprintf("%08d", gofakeit.Number(10000000, 99999999)),
		CustomerName:       gofakeit.Name(),
		ConfirmationNumber: gofakeit.LetterN(6),
		FlightNumber:       fmt.Sprintf("FLT-%d", gofakeit.Number(100, 999)),
		SeatNumber:         fmt.Sprintf("%d%s", gofakeit.Number(1, 40), gofakeit.RandomString([]string{"A", "B", "C", "D", "E", "F"})),
	}
}

// ToMap flattens the context into the key set scenarios assert against.
func (c *AirlineContext) ToMap() map[string]any {
	return map[string]any{
		"account_number":      c.AccountNumber,
		"customer_name":       c.CustomerName,
		"confirmation_number": c.ConfirmationNumber,
		"flight_number":       c.FlightNumber,
		"seat_number":         c.SeatNumber,
		"authenticated":       c.Authenticated,
	}
}
