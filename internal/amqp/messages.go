package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names the mutation a TransactionEvent reports.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// TransactionEvent is a lightweight change notification.
// Contains only the ID, the worker re-reads the record from the store.
type TransactionEvent struct {
	EventID   string    `json:"event_id"`
	ID        int64     `json:"id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event with a fresh event id
func NewTransactionEvent(id int64, kind EventKind) *TransactionEvent {
	return &TransactionEvent{
		EventID:   uuid.NewString(),
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("event %s: invalid transaction id %d", msg.EventID, msg.ID)
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("event %s: unknown kind %q", msg.EventID, msg.Kind)
	}
	return &msg, nil
}
