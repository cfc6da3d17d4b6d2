package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// EventType is the "type" tag of every frame on the chat socket.
type EventType string

const (
	EventChatMessage   EventType = "chat_message"
	EventTyping        EventType = "typing"
	EventPing          EventType = "ping"
	EventPong          EventType = "pong"
	EventHeartReaction EventType = "heart_reaction"
	EventMessageAck    EventType = "message_ack"
	EventUserOnline    EventType = "user_online"
	EventUserOffline   EventType = "user_offline"
	EventRoomEvent     EventType = "room_event"
	EventError         EventType = "error"
)

const (
	ReactionAdd    = "add"
	ReactionRemove = "remove"

	AckDelivered = "delivered"

	RoomEventLeft = "left"
)

// InboundEvent is one decoded client frame. The concrete type selects the handler.
type InboundEvent interface {
	Kind() EventType
}

// Client-supplied correlation fields (client_id, id, timestamp) are kept as raw JSON
// and echoed back untouched, whatever their JSON type.

type ChatMessageIn struct {
	Message   string          `json:"message"`
	ClientID  json.RawMessage `json:"client_id"`
	ID        json.RawMessage `json:"id"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type TypingIn struct {
	IsTyping bool `json:"is_typing"`
}

type PingIn struct {
	Timestamp json.RawMessage `json:"timestamp"`
}

type HeartReactionIn struct {
	Action    string          `json:"action"`
	MessageID json.RawMessage `json:"messageId"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// UnknownIn carries a type tag this server does not handle.
type UnknownIn struct {
	Type string
}

func (ChatMessageIn) Kind() EventType   { return EventChatMessage }
func (TypingIn) Kind() EventType        { return EventTyping }
func (PingIn) Kind() EventType          { return EventPing }
func (HeartReactionIn) Kind() EventType { return EventHeartReaction }
func (u UnknownIn) Kind() EventType     { return EventType(u.Type) }

// TargetID parses messageId, which clients send either as a number or a numeric string.
func (h HeartReactionIn) TargetID() (uint, bool) {
	return parseRawID(h.MessageID)
}

func parseRawID(raw json.RawMessage) (uint, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		s = strings.TrimSpace(str)
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// RawID renders a server-assigned id as a JSON number.
func RawID(id uint) json.RawMessage {
	return json.RawMessage(strconv.FormatUint(uint64(id), 10))
}

// OutboundEvent is any frame the server writes to a client.
type OutboundEvent interface {
	Kind() EventType
}

type MessageAck struct {
	Type      EventType       `json:"type"`
	ClientID  json.RawMessage `json:"client_id"`
	MessageID json.RawMessage `json:"message_id"`
	Status    string          `json:"status"`
	ServerTS  int64           `json:"server_ts"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type ChatMessageOut struct {
	Type      EventType       `json:"type"`
	Message   string          `json:"message"`
	UserID    uint            `json:"user_id"`
	Username  string          `json:"username"`
	Timestamp json.RawMessage `json:"timestamp"`
	ID        json.RawMessage `json:"id"`
}

type TypingOut struct {
	Type     EventType `json:"type"`
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	IsTyping bool      `json:"is_typing"`
}

type Pong struct {
	Type      EventType       `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type HeartReactionOut struct {
	Type      EventType       `json:"type"`
	Action    string          `json:"action"`
	MessageID json.RawMessage `json:"messageId"`
	Timestamp json.RawMessage `json:"timestamp"`
	UserID    uint            `json:"user_id"`
	Username  string          `json:"username"`
}

// Presence is a user_online or user_offline signal.
type Presence struct {
	Type     EventType `json:"type"`
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
}

type RoomEvent struct {
	Type      EventType `json:"type"`
	EventType string    `json:"event_type"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp string    `json:"timestamp"`
}

type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (e MessageAck) Kind() EventType       { return e.Type }
func (e ChatMessageOut) Kind() EventType   { return e.Type }
func (e TypingOut) Kind() EventType        { return e.Type }
func (e Pong) Kind() EventType             { return e.Type }
func (e HeartReactionOut) Kind() EventType { return e.Type }
func (e Presence) Kind() EventType         { return e.Type }
func (e RoomEvent) Kind() EventType        { return e.Type }
func (e ErrorEvent) Kind() EventType       { return e.Type }
