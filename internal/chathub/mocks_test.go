package chathub_test

import (
	"context"
	"encoding/json"
	"lingochat/backend/internal/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorage is a testify double for chathub.Store.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetRoomByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatRoom), args.Error(1)
}

func (m *MockStorage) GetParticipantStatus(ctx context.Context, roomID, userID uint) (*models.ParticipantStatus, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParticipantStatus), args.Error(1)
}

func (m *MockStorage) IsParticipantActive(ctx context.Context, roomID, userID uint) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) DeactivateParticipant(ctx context.Context, roomID, userID uint) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MockStorage) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessageByID(ctx context.Context, id uint) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) ListMessages(ctx context.Context, roomID, beforeID uint, limit int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, beforeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) MarkRoomRead(ctx context.Context, roomID, userID uint) (int64, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) AddReaction(ctx context.Context, messageID, userID uint) (bool, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) RemoveReaction(ctx context.Context, messageID, userID uint) (bool, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) ListReactions(ctx context.Context, roomID uint) ([]models.HeartReaction, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HeartReaction), args.Error(1)
}

// MockAuth resolves tokens from a fixed table.
type MockAuth struct {
	mock.Mock
}

func (m *MockAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockClient records every frame it is sent.
type MockClient struct {
	userID   uint
	username string
	roomID   uint

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func newMockClient(userID uint, roomID uint) *MockClient {
	return &MockClient{userID: userID, username: "user", roomID: roomID}
}

func (c *MockClient) GetUserID() uint     { return c.userID }
func (c *MockClient) GetUsername() string { return c.username }
func (c *MockClient) GetRoomID() uint     { return c.roomID }

func (c *MockClient) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.frames = append(c.frames, payload)
	return true
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Events decodes everything received so far.
func (c *MockClient) Events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

// Types lists the type tags received so far.
func (c *MockClient) Types(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, ev := range c.Events(t) {
		types = append(types, ev["type"].(string))
	}
	return types
}

func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

const testTimeout = time.Second
