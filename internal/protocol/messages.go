package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage  MessageType = "client_message"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeTurnBusy       MessageType = "turn_busy"
	TypeMemoryUpdate   MessageType = "memory_update"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is one user input submitted from the GUI.
type ClientMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// AppliedOperation mirrors one memory mutation applied during a turn.
type AppliedOperation struct {
	Action  string `json:"action"`
	ID      string `json:"id"`
	Content string `json:"content,omitempty"`
}

// AssistantReply carries the display text for one completed turn.
type AssistantReply struct {
	Type      MessageType        `json:"type"`
	TurnID    string             `json:"turn_id"`
	Text      string             `json:"text"`
	Applied   []AppliedOperation `json:"applied,omitempty"`
	Malformed bool               `json:"malformed,omitempty"`
}

// TurnBusy tells the client a turn is still outstanding and the input was
// dropped.
type TurnBusy struct {
	Type   MessageType `json:"type"`
	Detail string      `json:"detail"`
}

// MemoryRecord is the GUI-facing view of one memory entry.
type MemoryRecord struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// MemoryUpdate pushes the full memory listing after a turn mutated it.
type MemoryUpdate struct {
	Type    MessageType    `json:"type"`
	Records []MemoryRecord `json:"records"`
}

// ErrorEvent reports a failed turn.
type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes one inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode client_message: %w", err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}
