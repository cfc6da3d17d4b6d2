package chathub_test

import (
	"errors"
	"lingochat/backend/internal/chathub"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGroupJoinLeave(t *testing.T) {
	g := chathub.NewGroup(nil, time.Second)
	a := newMockClient(1, 7)
	b := newMockClient(2, 7)

	assert.True(t, g.Join(7, a))
	assert.False(t, g.Join(7, a), "second join is a no-op")
	assert.True(t, g.Join(7, b))
	assert.Equal(t, 2, g.Count(7))
	assert.Equal(t, 1, g.Rooms())

	assert.True(t, g.Leave(7, a))
	assert.False(t, g.Leave(7, a))
	assert.Equal(t, 1, g.Count(7))

	g.Leave(7, b)
	assert.Equal(t, 0, g.Count(7))
	assert.Equal(t, 0, g.Rooms(), "empty rooms are evicted")
	assert.False(t, g.Leave(99, a))
}

func TestGroupBroadcastExclusion(t *testing.T) {
	g := chathub.NewGroup(nil, time.Second)
	sender := newMockClient(1, 7)
	senderTab := newMockClient(1, 7)
	partner := newMockClient(2, 7)
	elsewhere := newMockClient(3, 8)
	for _, c := range []*MockClient{sender, senderTab, partner} {
		g.Join(7, c)
	}
	g.Join(8, elsewhere)

	n := g.Broadcast(7, []byte(`{"type":"typing"}`), chathub.Delivery{Exclude: sender})
	assert.Equal(t, 2, n)
	assert.Empty(t, sender.Types(t))
	assert.Len(t, senderTab.Types(t), 1)
	assert.Len(t, partner.Types(t), 1)
	assert.Empty(t, elsewhere.Types(t))

	senderTab.Reset()
	partner.Reset()
	n = g.Broadcast(7, []byte(`{"type":"typing"}`), chathub.Delivery{Exclude: sender, ExcludeUserID: 1})
	assert.Equal(t, 1, n)
	assert.Empty(t, senderTab.Types(t))
	assert.Len(t, partner.Types(t), 1)
}

func TestGroupBroadcastActiveOnly(t *testing.T) {
	// Arrange
	store := new(MockStorage)
	store.On("IsParticipantActive", mock.Anything, uint(7), uint(2)).Return(false, nil)
	store.On("IsParticipantActive", mock.Anything, uint(7), uint(3)).Return(true, nil)
	store.On("IsParticipantActive", mock.Anything, uint(7), uint(4)).Return(false, errors.New("db down"))

	g := chathub.NewGroup(store, time.Second)
	left := newMockClient(2, 7)
	active := newMockClient(3, 7)
	unknown := newMockClient(4, 7)
	for _, c := range []*MockClient{left, active, unknown} {
		g.Join(7, c)
	}

	// Act
	n := g.Broadcast(7, []byte(`{"type":"chat_message"}`), chathub.Delivery{ActiveOnly: true})

	// Assert
	assert.Equal(t, 2, n)
	assert.Empty(t, left.Types(t))
	assert.Equal(t, []string{"chat_message"}, active.Types(t))
	assert.Equal(t, []string{"chat_message"}, unknown.Types(t), "lookup failure delivers")
	store.AssertExpectations(t)
}

func TestGroupBroadcastIsolatesDeadRecipients(t *testing.T) {
	g := chathub.NewGroup(nil, time.Second)
	dead := newMockClient(2, 7)
	dead.Close()
	slow := newMockClient(3, 7)
	slow.full = true
	fine := newMockClient(4, 7)
	for _, c := range []*MockClient{dead, slow, fine} {
		g.Join(7, c)
	}

	n := g.Broadcast(7, []byte(`{"type":"typing"}`), chathub.Delivery{})

	assert.Equal(t, 1, n)
	assert.Len(t, fine.Types(t), 1)
}

func TestGroupConcurrentAccess(t *testing.T) {
	g := chathub.NewGroup(nil, time.Second)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := uint(i % 5)
			c := newMockClient(uint(i+1), room)
			g.Join(room, c)
			g.Broadcast(room, []byte(`{"type":"typing"}`), chathub.Delivery{Exclude: c})
			g.Leave(room, c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, g.Rooms())
}
