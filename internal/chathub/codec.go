package chathub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"lingochat/backend/internal/models"
)

// ErrDecode marks a frame that is not a JSON object or does not fit its declared type.
var ErrDecode = errors.New("undecodable event")

type envelope struct {
	Type string `json:"type"`
}

// Decode turns one inbound frame into its typed event. Unknown or missing type tags
// decode to models.UnknownIn.
func Decode(raw []byte) (models.InboundEvent, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var (
		ev  models.InboundEvent
		err error
	)
	switch models.EventType(env.Type) {
	case models.EventChatMessage:
		var e models.ChatMessageIn
		err = json.Unmarshal(raw, &e)
		ev = e
	case models.EventTyping:
		var e models.TypingIn
		err = json.Unmarshal(raw, &e)
		ev = e
	case models.EventPing:
		var e models.PingIn
		err = json.Unmarshal(raw, &e)
		ev = e
	case models.EventHeartReaction:
		var e models.HeartReactionIn
		err = json.Unmarshal(raw, &e)
		ev = e
	default:
		return models.UnknownIn{Type: env.Type}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, env.Type, err)
	}
	return ev, nil
}

// Encode serializes an outbound event for the wire.
func Encode(ev models.OutboundEvent) ([]byte, error) {
	return json.Marshal(ev)
}
