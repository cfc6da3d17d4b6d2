package chathub

import (
	"context"
	"errors"
	"fmt"
	"lingochat/backend/internal/auth"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/models"
	"log"
	"strings"
	"sync"
	"time"
)

// SessionState is the lifecycle position of one connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session drives one connection: handshake, event dispatch and teardown.
// Handle is called from the connection's read goroutine only.
type Session struct {
	hub    *ManagerService
	roomID uint

	mu     sync.Mutex
	state  SessionState
	user   *models.User
	client Client

	teardown sync.Once
}

// NewSession starts a session for roomID in the Connecting state.
func (m *ManagerService) NewSession(roomID uint) *Session {
	return &Session{hub: m, roomID: roomID, state: StateConnecting}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// CloseCode maps a handshake error to the close code the client receives.
func CloseCode(err error) int {
	if errors.Is(err, auth.ErrNoIdentity) {
		return config.CloseAuthFailed
	}
	return config.CloseSetupFailed
}

// Authenticate resolves the credential and checks the user belongs to the room.
// Any failure moves the session straight to Closed.
func (s *Session) Authenticate(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return fmt.Errorf("authenticate in state %s", s.state)
	}

	user, err := s.hub.Auth.Authenticate(ctx, token)
	if err != nil {
		s.state = StateClosed
		return auth.ErrNoIdentity
	}

	pctx, cancel := s.hub.PersistContext(ctx)
	defer cancel()
	if _, err := s.hub.RequireParticipant(pctx, s.roomID, user.ID); err != nil {
		s.state = StateClosed
		return fmt.Errorf("room %d for user %d: %w", s.roomID, user.ID, err)
	}

	s.user = user
	s.state = StateAuthenticated
	return nil
}

// Activate joins the broadcast group through c and announces the user as online.
func (s *Session) Activate(c Client) error {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("activate in state %s", st)
	}
	s.client = c
	s.state = StateActive
	s.mu.Unlock()

	s.hub.Group.Join(s.roomID, c)
	s.hub.Broadcast(s.roomID, models.Presence{
		Type:     models.EventUserOnline,
		UserID:   s.user.ID,
		Username: s.user.Username,
	}, Delivery{Exclude: c, ExcludeUserID: s.user.ID})

	log.Printf("INFO: User %d joined room %d", s.user.ID, s.roomID)
	return nil
}

// Close tears the session down once. The offline broadcast only happens when the
// session had become active.
func (s *Session) Close() {
	s.teardown.Do(func() {
		s.mu.Lock()
		wasActive := s.state == StateActive
		s.state = StateClosed
		c := s.client
		user := s.user
		s.mu.Unlock()

		if c == nil {
			return
		}
		s.hub.Group.Leave(s.roomID, c)
		if wasActive {
			s.hub.Broadcast(s.roomID, models.Presence{
				Type:     models.EventUserOffline,
				UserID:   user.ID,
				Username: user.Username,
			}, Delivery{Exclude: c, ExcludeUserID: user.ID})
			log.Printf("INFO: User %d disconnected from room %d", user.ID, s.roomID)
		}
		c.Close()
	})
}

// Handle processes one inbound frame. Errors never end the session: undecodable
// frames and handler failures both come back to the sender as error events.
func (s *Session) Handle(raw []byte) {
	if s.State() != StateActive {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic while handling frame from user %d in room %d: %v", s.user.ID, s.roomID, r)
			s.sendError("error.internal")
		}
	}()

	ev, err := Decode(raw)
	if err != nil {
		log.Printf("WARNING: Bad frame from user %d in room %d: %v", s.user.ID, s.roomID, err)
		s.sendError("error.invalid_json")
		return
	}

	if err := s.dispatch(ev); err != nil {
		log.Printf("ERROR: Failed to handle %s from user %d in room %d: %v", ev.Kind(), s.user.ID, s.roomID, err)
		s.sendError("error.internal")
	}
}

func (s *Session) dispatch(ev models.InboundEvent) error {
	switch e := ev.(type) {
	case models.ChatMessageIn:
		return s.handleChatMessage(e)
	case models.TypingIn:
		return s.handleTyping(e)
	case models.PingIn:
		return s.handlePing(e)
	case models.HeartReactionIn:
		return s.handleHeartReaction(e)
	case models.UnknownIn:
		return nil
	}
	return fmt.Errorf("no handler for %T", ev)
}

func (s *Session) reply(ev models.OutboundEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	if !s.client.Send(payload) {
		log.Printf("WARNING: Reply %s to user %d dropped", ev.Kind(), s.user.ID)
	}
	return nil
}

func (s *Session) sendError(key string) {
	err := s.reply(models.ErrorEvent{Type: models.EventError, Message: s.hub.text(key)})
	if err != nil {
		log.Printf("ERROR: Failed to send error event to user %d: %v", s.user.ID, err)
	}
}

func (s *Session) others() Delivery {
	return Delivery{Exclude: s.client, ExcludeUserID: s.user.ID}
}

// persistOutcome is the result of a store call made from the hot path. A failed
// outcome is logged and the live flow carries on.
type persistOutcome struct {
	op  string
	err error
}

func (p persistOutcome) ok() bool { return p.err == nil }

func (s *Session) logOutcome(p persistOutcome) {
	if p.err != nil {
		log.Printf("ERROR: %s failed for user %d in room %d: %v", p.op, s.user.ID, s.roomID, p.err)
	}
}

func (s *Session) handleChatMessage(e models.ChatMessageIn) error {
	content := strings.TrimSpace(e.Message)
	if content == "" {
		return nil
	}

	msg := &models.Message{
		RoomID:      s.roomID,
		SenderID:    s.user.ID,
		Content:     content,
		MessageType: models.MessageText,
	}
	ctx, cancel := s.hub.PersistContext(context.Background())
	saved := persistOutcome{op: "save message", err: s.hub.Storage.CreateMessage(ctx, msg)}
	cancel()
	s.logOutcome(saved)

	id := e.ID
	if saved.ok() {
		id = models.RawID(msg.ID)
	}

	if err := s.reply(models.MessageAck{
		Type:      models.EventMessageAck,
		ClientID:  e.ClientID,
		MessageID: id,
		Status:    models.AckDelivered,
		ServerTS:  time.Now().Unix(),
		Timestamp: e.Timestamp,
	}); err != nil {
		return err
	}

	d := s.others()
	d.ActiveOnly = true
	s.hub.Broadcast(s.roomID, models.ChatMessageOut{
		Type:      models.EventChatMessage,
		Message:   content,
		UserID:    s.user.ID,
		Username:  s.user.Username,
		Timestamp: e.Timestamp,
		ID:        id,
	}, d)
	return nil
}

func (s *Session) handleTyping(e models.TypingIn) error {
	s.hub.Broadcast(s.roomID, models.TypingOut{
		Type:     models.EventTyping,
		UserID:   s.user.ID,
		Username: s.user.Username,
		IsTyping: e.IsTyping,
	}, s.others())
	return nil
}

func (s *Session) handlePing(e models.PingIn) error {
	return s.reply(models.Pong{Type: models.EventPong, Timestamp: e.Timestamp})
}

func (s *Session) handleHeartReaction(e models.HeartReactionIn) error {
	s.logOutcome(s.persistReaction(e))

	s.hub.Broadcast(s.roomID, models.HeartReactionOut{
		Type:      models.EventHeartReaction,
		Action:    e.Action,
		MessageID: e.MessageID,
		Timestamp: e.Timestamp,
		UserID:    s.user.ID,
		Username:  s.user.Username,
	}, s.others())
	return nil
}

// persistReaction applies add or remove. The broadcast that follows reflects the
// request whatever happens here.
func (s *Session) persistReaction(e models.HeartReactionIn) persistOutcome {
	out := persistOutcome{op: "heart " + e.Action}
	if e.Action != models.ReactionAdd && e.Action != models.ReactionRemove {
		return out
	}

	messageID, ok := e.TargetID()
	if !ok {
		out.err = fmt.Errorf("bad messageId %s", string(e.MessageID))
		return out
	}

	ctx, cancel := s.hub.PersistContext(context.Background())
	defer cancel()

	msg, err := s.hub.Storage.GetMessageByID(ctx, messageID)
	if err != nil {
		out.err = fmt.Errorf("message %d: %w", messageID, err)
		return out
	}
	if msg.RoomID != s.roomID {
		out.err = fmt.Errorf("message %d belongs to room %d", messageID, msg.RoomID)
		return out
	}

	if e.Action == models.ReactionAdd {
		_, out.err = s.hub.Storage.AddReaction(ctx, messageID, s.user.ID)
	} else {
		_, out.err = s.hub.Storage.RemoveReaction(ctx, messageID, s.user.ID)
	}
	return out
}
