package chat

import (
	"encoding/json"
	"time"

	"relaychat/internal/app/message"
	"relaychat/internal/pkg/randx"
)

// EventType names an inbound request or an outbound event on the websocket.
type EventType string

// Inbound requests.
const (
	TypeGetFriendList     EventType = "GET_FRIEND_LIST"
	TypeGetPublicHistory  EventType = "GET_PUBLIC_HISTORY"
	TypeGetPrivateHistory EventType = "GET_PRIVATE_HISTORY"
	TypeSendMessage       EventType = "SEND_MESSAGE"
)

// Outbound events.
const (
	TypeFriendList      EventType = "FRIEND_LIST"
	TypePublicHistory   EventType = "PUBLIC_HISTORY"
	TypePrivateHistory  EventType = "PRIVATE_HISTORY"
	TypePublicMessage   EventType = "PUBLIC_MESSAGE"
	TypePrivateMessage  EventType = "PRIVATE_MESSAGE"
	TypePresence        EventType = "PRESENCE"
	TypeMessageRejected EventType = "MESSAGE_REJECTED"
	TypeConfirm         EventType = "CONFIRM"
	TypeError           EventType = "ERROR"
)

// Request is the inbound envelope.
type Request struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TempID  string          `json:"tempId,omitempty"`
}

// Event is the outbound envelope.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp int64     `json:"timestamp"`
}

// NewEvent wraps payload in an envelope with a fresh id and the current time in milliseconds.
func NewEvent(t EventType, payload any) Event {
	return Event{
		ID:        randx.EventID(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Encode marshals a new event of type t.
func Encode(t EventType, payload any) ([]byte, error) {
	return json.Marshal(NewEvent(t, payload))
}

// PrivateHistoryRequest is the payload of GET_PRIVATE_HISTORY.
type PrivateHistoryRequest struct {
	PeerID string `json:"peerId"`
}

// HistoryPayload is the payload of PUBLIC_HISTORY and PRIVATE_HISTORY.
type HistoryPayload struct {
	PeerID  string            `json:"peerId,omitempty"`
	History []message.Message `json:"history"`
}

// PresencePayload is the payload of PRESENCE.
type PresencePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// RejectedPayload is the payload of MESSAGE_REJECTED.
type RejectedPayload struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
	TempID string `json:"tempId,omitempty"`
}

// ConfirmPayload acknowledges a SEND_MESSAGE to the connection that sent it.
type ConfirmPayload struct {
	TempID    string `json:"tempId"`
	MessageID int64  `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorPayload is the payload of ERROR.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
