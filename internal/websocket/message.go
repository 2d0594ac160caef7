package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// TypeNotesChanged nudges a device that notes were written elsewhere.
	// It names the notes but never carries their data; devices pull changes
	// through the sync endpoints.
	TypeNotesChanged MessageType = "notes_changed"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type NotesChangedPayload struct {
	NoteIDs []string `json:"note_ids"`
	// SyncTime is the server clock of the write batch, in milliseconds; a
	// device can use it directly as its next pull cursor.
	SyncTime int64 `json:"sync_time"`
}

func NewMessage(msgType MessageType, payload any) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
