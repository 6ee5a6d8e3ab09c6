package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledger/internal/core"

	"github.com/google/uuid"
)

// ChangeEvent is published after a committed mutation. It carries no
// transaction data; consumers re-read whatever they need from the database.
type ChangeEvent struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Month         string    `json:"month,omitempty"`
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewChangeEvent wraps a change in an event with a fresh id.
func NewChangeEvent(c core.Change) *ChangeEvent {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeEvent{
		ID:            uuid.NewString(),
		Kind:          string(c.Kind),
		TransactionID: c.TransactionID,
		Month:         c.Month,
		Count:         c.Count,
		Timestamp:     ts.UTC(),
	}
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes an event, rejecting bodies without an id or kind.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" || e.Kind == "" {
		return nil, fmt.Errorf("change event missing id or kind")
	}
	return &e, nil
}

// Change converts the event back to the domain change it describes.
func (e *ChangeEvent) Change() core.Change {
	return core.Change{
		Kind:          core.ChangeKind(e.Kind),
		TransactionID: e.TransactionID,
		Month:         e.Month,
		Count:         e.Count,
		At:            e.Timestamp,
	}
}
