// Package events publishes room lifecycle events so downstream
// consumers (notification fanout, analytics) can react without polling
// the stores. Publishing is best effort: a failed publish is logged and
// never fails the operation that produced it.
package events

import (
	"encoding/json"
	"time"
)

// Channel is the pubsub channel room lifecycle events go out on.
const Channel = "room-events"

// Event types.
const (
	TypeRoomCreated = "room.created"
	TypeRoomJoined  = "room.joined"
	TypeRoomExited  = "room.exited"
	TypeRoomClosed  = "room.closed"
)

// Event represents a message published to the event bus.
type Event struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, roomID string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// UnmarshalPayload unmarshals the event payload into the given struct.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
