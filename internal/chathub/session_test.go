package chathub_test

import (
	"errors"
	"lingochat/backend/internal/auth"
	"lingochat/backend/internal/chathub"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/models"
	"lingochat/backend/internal/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice    = &models.User{ID: 1, Username: "alice", IsActive: true}
	bob      = &models.User{ID: 2, Username: "bob", IsActive: true}
	testRoom = &models.ChatRoom{ID: 7, User1ID: 1, User2ID: 2}
)

type hubFixture struct {
	hub   *chathub.ManagerService
	store *MockStorage
	auth  *MockAuth
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	loc, err := localization.Default()
	require.NoError(t, err)

	store := new(MockStorage)
	authn := new(MockAuth)
	authn.On("Authenticate", mock.Anything, "alice-token").Return(alice, nil).Maybe()
	authn.On("Authenticate", mock.Anything, "bob-token").Return(bob, nil).Maybe()
	authn.On("Authenticate", mock.Anything, mock.Anything).Return(nil, auth.ErrNoIdentity).Maybe()
	store.On("GetRoomByID", mock.Anything, uint(7)).Return(testRoom, nil).Maybe()

	hub := chathub.NewManagerService(store, authn, loc, chathub.Options{
		PersistTimeout: time.Second,
		Language:       "en",
	})
	return &hubFixture{hub: hub, store: store, auth: authn}
}

func (f *hubFixture) connect(t *testing.T, token string, user *models.User) (*chathub.Session, *MockClient) {
	t.Helper()
	s := f.hub.NewSession(7)
	require.NoError(t, s.Authenticate(t.Context(), token))
	c := newMockClient(user.ID, 7)
	c.username = user.Username
	require.NoError(t, s.Activate(c))
	return s, c
}

// pair connects alice then bob and clears the presence traffic.
func (f *hubFixture) pair(t *testing.T) (*chathub.Session, *MockClient, *chathub.Session, *MockClient) {
	t.Helper()
	sa, ca := f.connect(t, "alice-token", alice)
	sb, cb := f.connect(t, "bob-token", bob)
	ca.Reset()
	cb.Reset()
	return sa, ca, sb, cb
}

func TestSessionRejectsBadToken(t *testing.T) {
	// Arrange
	f := newHubFixture(t)
	s := f.hub.NewSession(7)

	// Act
	err := s.Authenticate(t.Context(), "forged")

	// Assert
	assert.ErrorIs(t, err, auth.ErrNoIdentity)
	assert.Equal(t, config.CloseAuthFailed, chathub.CloseCode(err))
	assert.Equal(t, chathub.StateClosed, s.State())
	assert.Equal(t, 0, f.hub.Group.Count(7))
	assert.Error(t, s.Activate(newMockClient(1, 7)))
	assert.Equal(t, 0, f.hub.Group.Count(7))
	s.Close()
	f.store.AssertNotCalled(t, "GetRoomByID", mock.Anything, mock.Anything)
}

func TestSessionRejectsOutsider(t *testing.T) {
	f := newHubFixture(t)
	outsider := &models.User{ID: 9, Username: "eve", IsActive: true}
	f.auth.ExpectedCalls = nil
	f.auth.On("Authenticate", mock.Anything, "eve-token").Return(outsider, nil)

	s := f.hub.NewSession(7)
	err := s.Authenticate(t.Context(), "eve-token")

	assert.ErrorIs(t, err, chathub.ErrNotParticipant)
	assert.Equal(t, config.CloseSetupFailed, chathub.CloseCode(err))
	assert.Equal(t, chathub.StateClosed, s.State())
}

func TestSessionRejectsMissingRoom(t *testing.T) {
	f := newHubFixture(t)
	f.store.On("GetRoomByID", mock.Anything, uint(404)).Return(nil, storage.ErrNotFound)

	s := f.hub.NewSession(404)
	err := s.Authenticate(t.Context(), "alice-token")

	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, config.CloseSetupFailed, chathub.CloseCode(err))
}

func TestSessionPresence(t *testing.T) {
	f := newHubFixture(t)
	sa, ca := f.connect(t, "alice-token", alice)
	assert.Equal(t, chathub.StateActive, sa.State())
	assert.Empty(t, ca.Types(t), "no echo of own presence")

	sb, cb := f.connect(t, "bob-token", bob)
	assert.Equal(t, []string{"user_online"}, ca.Types(t))
	assert.EqualValues(t, 2, ca.Events(t)[0]["user_id"])
	assert.Equal(t, "bob", ca.Events(t)[0]["username"])
	assert.Empty(t, cb.Types(t))
	assert.Equal(t, 2, f.hub.Group.Count(7))

	ca.Reset()
	sb.Close()
	sb.Close()
	assert.Equal(t, []string{"user_offline"}, ca.Types(t), "teardown runs once")
	assert.Equal(t, 1, f.hub.Group.Count(7))
	assert.True(t, cb.IsClosed())
	assert.Equal(t, chathub.StateClosed, sb.State())
}

func TestSessionCloseBeforeActive(t *testing.T) {
	f := newHubFixture(t)
	_, ca := f.connect(t, "alice-token", alice)

	s := f.hub.NewSession(7)
	require.NoError(t, s.Authenticate(t.Context(), "bob-token"))
	s.Close()

	assert.Empty(t, ca.Types(t))
	assert.Equal(t, chathub.StateClosed, s.State())
}

func TestSessionChatMessage(t *testing.T) {
	// Arrange
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)
	f.store.On("IsParticipantActive", mock.Anything, uint(7), uint(2)).Return(true, nil)
	f.store.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
		return m.RoomID == 7 && m.SenderID == 1 && m.Content == "hello" && m.MessageType == models.MessageText
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Message).ID = 101
	}).Return(nil).Once()

	// Act
	sa.Handle([]byte(`{"type":"chat_message","message":"  hello ","client_id":"c1","timestamp":1000}`))

	// Assert
	f.store.AssertExpectations(t)

	acks := ca.Events(t)
	require.Len(t, acks, 1)
	assert.Equal(t, "message_ack", acks[0]["type"])
	assert.Equal(t, "c1", acks[0]["client_id"])
	assert.EqualValues(t, 101, acks[0]["message_id"])
	assert.Equal(t, "delivered", acks[0]["status"])
	assert.EqualValues(t, 1000, acks[0]["timestamp"])
	assert.InDelta(t, time.Now().Unix(), acks[0]["server_ts"], 5)

	got := cb.Events(t)
	require.Len(t, got, 1)
	assert.Equal(t, "chat_message", got[0]["type"])
	assert.Equal(t, "hello", got[0]["message"])
	assert.EqualValues(t, 1, got[0]["user_id"])
	assert.Equal(t, "alice", got[0]["username"])
	assert.EqualValues(t, 101, got[0]["id"])
	assert.NotContains(t, cb.Types(t), "message_ack")
}

func TestSessionChatMessageSkipsLeftPartner(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)
	f.store.On("IsParticipantActive", mock.Anything, uint(7), uint(2)).Return(false, nil)
	f.store.On("CreateMessage", mock.Anything, mock.Anything).Return(nil).Once()

	sa.Handle([]byte(`{"type":"chat_message","message":"still there?","client_id":"c2"}`))

	f.store.AssertCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"message_ack"}, ca.Types(t))
	assert.Empty(t, cb.Types(t))
}

func TestSessionChatMessageEmptyIsDropped(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)

	sa.Handle([]byte(`{"type":"chat_message","message":"   \n\t","client_id":"c3"}`))
	sa.Handle([]byte(`{"type":"chat_message","client_id":"c4"}`))

	assert.Empty(t, ca.Types(t))
	assert.Empty(t, cb.Types(t))
	f.store.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSessionChatMessagePersistFailureKeepsFlowing(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)
	f.store.On("IsParticipantActive", mock.Anything, uint(7), uint(2)).Return(true, nil)
	f.store.On("CreateMessage", mock.Anything, mock.Anything).Return(errors.New("db down"))

	sa.Handle([]byte(`{"type":"chat_message","message":"hi","client_id":"c5","id":"tmp-5"}`))

	acks := ca.Events(t)
	require.Len(t, acks, 1)
	assert.Equal(t, "tmp-5", acks[0]["message_id"])
	assert.Equal(t, []string{"chat_message"}, cb.Types(t))
	assert.Equal(t, "tmp-5", cb.Events(t)[0]["id"])
	assert.Equal(t, chathub.StateActive, sa.State())
}

func TestSessionTyping(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)

	sa.Handle([]byte(`{"type":"typing","is_typing":true}`))

	assert.Empty(t, ca.Types(t))
	got := cb.Events(t)
	require.Len(t, got, 1)
	assert.Equal(t, "typing", got[0]["type"])
	assert.Equal(t, true, got[0]["is_typing"])
	assert.EqualValues(t, 1, got[0]["user_id"])
}

func TestSessionPing(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)

	sa.Handle([]byte(`{"type":"ping","timestamp":"2024-05-01T10:00:00Z"}`))

	got := ca.Events(t)
	require.Len(t, got, 1)
	assert.Equal(t, "pong", got[0]["type"])
	assert.Equal(t, "2024-05-01T10:00:00Z", got[0]["timestamp"])
	assert.Empty(t, cb.Types(t))
}

func TestSessionHeartReaction(t *testing.T) {
	target := &models.Message{ID: 55, RoomID: 7, SenderID: 2}
	foreign := &models.Message{ID: 66, RoomID: 8, SenderID: 3}

	t.Run("add twice broadcasts twice", func(t *testing.T) {
		f := newHubFixture(t)
		sa, ca, _, cb := f.pair(t)
		f.store.On("GetMessageByID", mock.Anything, uint(55)).Return(target, nil)
		f.store.On("AddReaction", mock.Anything, uint(55), uint(1)).Return(true, nil).Once()
		f.store.On("AddReaction", mock.Anything, uint(55), uint(1)).Return(false, nil).Once()

		sa.Handle([]byte(`{"type":"heart_reaction","action":"add","messageId":"55","timestamp":1}`))
		sa.Handle([]byte(`{"type":"heart_reaction","action":"add","messageId":55,"timestamp":2}`))

		f.store.AssertNumberOfCalls(t, "AddReaction", 2)
		assert.Equal(t, []string{"heart_reaction", "heart_reaction"}, cb.Types(t))
		first := cb.Events(t)[0]
		assert.Equal(t, "add", first["action"])
		assert.Equal(t, "55", first["messageId"])
		assert.Equal(t, "alice", first["username"])
		assert.Empty(t, ca.Types(t))
	})

	t.Run("remove without reaction still broadcasts", func(t *testing.T) {
		f := newHubFixture(t)
		sa, _, _, cb := f.pair(t)
		f.store.On("GetMessageByID", mock.Anything, uint(55)).Return(target, nil)
		f.store.On("RemoveReaction", mock.Anything, uint(55), uint(1)).Return(false, nil)

		sa.Handle([]byte(`{"type":"heart_reaction","action":"remove","messageId":"55"}`))

		f.store.AssertCalled(t, "RemoveReaction", mock.Anything, uint(55), uint(1))
		assert.Equal(t, []string{"heart_reaction"}, cb.Types(t))
		assert.Equal(t, "remove", cb.Events(t)[0]["action"])
	})

	t.Run("unknown message skips storage", func(t *testing.T) {
		f := newHubFixture(t)
		sa, ca, _, cb := f.pair(t)
		f.store.On("GetMessageByID", mock.Anything, uint(999)).Return(nil, storage.ErrNotFound)

		sa.Handle([]byte(`{"type":"heart_reaction","action":"add","messageId":999}`))

		f.store.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, []string{"heart_reaction"}, cb.Types(t))
		assert.Empty(t, ca.Types(t), "no error event")
	})

	t.Run("message from another room skips storage", func(t *testing.T) {
		f := newHubFixture(t)
		sa, _, _, cb := f.pair(t)
		f.store.On("GetMessageByID", mock.Anything, uint(66)).Return(foreign, nil)

		sa.Handle([]byte(`{"type":"heart_reaction","action":"add","messageId":66}`))

		f.store.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, []string{"heart_reaction"}, cb.Types(t))
	})

	t.Run("bad message id skips lookup", func(t *testing.T) {
		f := newHubFixture(t)
		sa, _, _, cb := f.pair(t)

		sa.Handle([]byte(`{"type":"heart_reaction","action":"add","messageId":"abc"}`))

		f.store.AssertNotCalled(t, "GetMessageByID", mock.Anything, mock.Anything)
		assert.Equal(t, []string{"heart_reaction"}, cb.Types(t))
	})
}

func TestSessionBadFrames(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)

	sa.Handle([]byte(`{not json`))
	sa.Handle([]byte(`{"type":"mystery"}`))

	got := ca.Events(t)
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0]["type"])
	assert.Equal(t, "Invalid JSON format", got[0]["message"])
	assert.Empty(t, cb.Types(t))
	assert.Equal(t, chathub.StateActive, sa.State())
}

func TestSessionRecoversFromPanic(t *testing.T) {
	f := newHubFixture(t)
	sa, ca, _, cb := f.pair(t)
	f.store.On("CreateMessage", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil)

	sa.Handle([]byte(`{"type":"chat_message","message":"hi","client_id":"c9"}`))

	got := ca.Events(t)
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0]["type"])
	assert.Equal(t, "Internal server error", got[0]["message"])
	assert.Empty(t, cb.Types(t))
	assert.Equal(t, chathub.StateActive, sa.State())
}

func TestSessionIgnoresFramesBeforeActive(t *testing.T) {
	f := newHubFixture(t)
	s := f.hub.NewSession(7)
	require.NoError(t, s.Authenticate(t.Context(), "alice-token"))

	s.Handle([]byte(`{"type":"ping"}`))

	assert.Equal(t, chathub.StateAuthenticated, s.State())
}
