package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"utgifter/internal/core"
)

const EventExpenseCreated = "expense.created"

// ExpenseEvent announces a stored expense. It carries ids only; consumers
// read the expense itself from the record store.
type ExpenseEvent struct {
	Type       string          `json:"type"`
	ID         int64           `json:"id"`
	CategoryID int64           `json:"categoryId"`
	Resolution core.Resolution `json:"resolution"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewExpenseCreated(id, categoryID int64, resolution core.Resolution) *ExpenseEvent {
	return &ExpenseEvent{
		Type:       EventExpenseCreated,
		ID:         id,
		CategoryID: categoryID,
		Resolution: resolution,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects ones without a type or id.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errors.New("event type missing")
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid expense id %d", msg.ID)
	}
	return &msg, nil
}
