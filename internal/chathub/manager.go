package chathub

import (
	"context"
	"errors"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/models"
	"lingochat/backend/internal/storage"
	"log"
	"time"
)

// ErrNotParticipant is returned when a user acts on a room that is not theirs.
var ErrNotParticipant = errors.New("user is not a participant of this room")

// Store is the persistence the messaging core depends on.
type Store interface {
	storage.RoomStore
	storage.MessageStore
}

// Authenticator resolves a raw bearer credential to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Options struct {
	// PersistTimeout bounds every store call made while handling a socket event.
	PersistTimeout time.Duration
	// Language selects the catalog for error events and system messages.
	Language string
}

// ManagerService owns the broadcast group and everything sessions share.
type ManagerService struct {
	Group     *Group
	Storage   Store
	Auth      Authenticator
	Localizer *localization.Localizer

	relay          *Relay
	persistTimeout time.Duration
	language       string
}

func NewManagerService(store Store, authn Authenticator, loc *localization.Localizer, opts Options) *ManagerService {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = config.DefaultPersistTimeout
	}
	if opts.Language == "" {
		opts.Language = localization.FallbackLanguage
	}

	return &ManagerService{
		Group:          NewGroup(store, opts.PersistTimeout),
		Storage:        store,
		Auth:           authn,
		Localizer:      loc,
		persistTimeout: opts.PersistTimeout,
		language:       opts.Language,
	}
}

// SetRelay mirrors every broadcast to other nodes through r.
func (m *ManagerService) SetRelay(r *Relay) {
	m.relay = r
}

func (m *ManagerService) text(key string, args ...any) string {
	if m.Localizer == nil {
		return key
	}
	return m.Localizer.Format(m.language, key, args...)
}

// PersistContext bounds a store call by the configured persist timeout.
func (m *ManagerService) PersistContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, m.persistTimeout)
}

// Broadcast encodes ev once and fans it out locally and, when a relay is set, to the
// other nodes.
func (m *ManagerService) Broadcast(roomID uint, ev models.OutboundEvent, d Delivery) int {
	payload, err := Encode(ev)
	if err != nil {
		log.Printf("ERROR: Failed to encode %s for room %d: %v", ev.Kind(), roomID, err)
		return 0
	}

	n := m.Group.Broadcast(roomID, payload, d)
	if m.relay != nil {
		m.relay.Publish(roomID, payload, d)
	}
	return n
}

// BroadcastRoomEvent relays a server-originated room event to everyone in the room
// except the user who caused it.
func (m *ManagerService) BroadcastRoomEvent(roomID uint, ev models.RoomEvent) int {
	ev.Type = models.EventRoomEvent
	return m.Broadcast(roomID, ev, Delivery{ExcludeUserID: ev.UserID})
}

// RequireParticipant loads the room and checks that userID is one of its two users.
func (m *ManagerService) RequireParticipant(ctx context.Context, roomID, userID uint) (*models.ChatRoom, error) {
	room, err := m.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return room, nil
}

// LeaveRoom marks the user as gone, records a system message and tells the partner.
func (m *ManagerService) LeaveRoom(ctx context.Context, roomID uint, user *models.User) error {
	if _, err := m.RequireParticipant(ctx, roomID, user.ID); err != nil {
		return err
	}

	if err := m.Storage.DeactivateParticipant(ctx, roomID, user.ID); err != nil {
		log.Printf("ERROR: Failed to deactivate user %d in room %d: %v", user.ID, roomID, err)
		return err
	}

	notice := &models.Message{
		RoomID:      roomID,
		SenderID:    user.ID,
		Content:     m.text("system.user_left", user.DisplayName()),
		MessageType: models.MessageSystemLeave,
	}
	if err := m.Storage.CreateMessage(ctx, notice); err != nil {
		log.Printf("ERROR: Failed to save leave notice for user %d in room %d: %v", user.ID, roomID, err)
	}

	m.BroadcastRoomEvent(roomID, models.RoomEvent{
		EventType: models.RoomEventLeft,
		UserID:    user.ID,
		Username:  user.Username,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	log.Printf("INFO: User %d left room %d", user.ID, roomID)
	return nil
}

// MarkRead records read statuses for everything the partner sent in the room.
func (m *ManagerService) MarkRead(ctx context.Context, roomID, userID uint) (int64, error) {
	if _, err := m.RequireParticipant(ctx, roomID, userID); err != nil {
		return 0, err
	}
	return m.Storage.MarkRoomRead(ctx, roomID, userID)
}
