package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// TransactionEvent announces that a room's transactions changed. Consumers
// reload what they need from storage.
type TransactionEvent struct {
	RoomID        string    `json:"room_id"`
	GroupID       string    `json:"group_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(roomID, groupID, txID, kind, action string) *TransactionEvent {
	return &TransactionEvent{
		RoomID:        roomID,
		GroupID:       groupID,
		TransactionID: txID,
		Kind:          kind,
		Action:        action,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes an event and rejects ones without a room
// or action.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RoomID == "" {
		return nil, errors.New("event without room id")
	}
	if msg.Action != ActionCreated && msg.Action != ActionDeleted {
		return nil, errors.New("event with unknown action " + msg.Action)
	}
	return &msg, nil
}
