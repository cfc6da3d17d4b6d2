package chathub

import (
	"context"
	"log"
	"sync"
	"time"
)

const groupShards = 16

// ActiveChecker reports whether a user still takes part in a room.
type ActiveChecker interface {
	IsParticipantActive(ctx context.Context, roomID, userID uint) (bool, error)
}

// Delivery narrows a broadcast to a subset of the room's connections.
type Delivery struct {
	// Exclude skips one connection, usually the sender's.
	Exclude Client
	// ExcludeUserID skips every connection of that user. Zero disables it.
	ExcludeUserID uint
	// ActiveOnly drops recipients whose participant status says they left the room.
	ActiveOnly bool
}

type groupShard struct {
	mu    sync.Mutex
	rooms map[uint]map[Client]struct{}
}

// Group is the in-memory registry of live connections per room. Rooms are spread
// over lock stripes so joins and fan-outs in different rooms do not contend.
type Group struct {
	shards  [groupShards]*groupShard
	active  ActiveChecker
	timeout time.Duration
}

// NewGroup builds an empty registry. active may be nil, in which case ActiveOnly
// deliveries reach everybody.
func NewGroup(active ActiveChecker, lookupTimeout time.Duration) *Group {
	g := &Group{active: active, timeout: lookupTimeout}
	for i := range g.shards {
		g.shards[i] = &groupShard{rooms: make(map[uint]map[Client]struct{})}
	}
	return g
}

func (g *Group) shard(roomID uint) *groupShard {
	return g.shards[roomID%groupShards]
}

// Join adds c to the room. It reports false when c was already a member.
func (g *Group) Join(roomID uint, c Client) bool {
	sh := g.shard(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	members, ok := sh.rooms[roomID]
	if !ok {
		members = make(map[Client]struct{})
		sh.rooms[roomID] = members
	}
	if _, exists := members[c]; exists {
		return false
	}
	members[c] = struct{}{}
	return true
}

// Leave removes c from the room and drops the room entry once it is empty.
func (g *Group) Leave(roomID uint, c Client) bool {
	sh := g.shard(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	members, ok := sh.rooms[roomID]
	if !ok {
		return false
	}
	if _, exists := members[c]; !exists {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(sh.rooms, roomID)
	}
	return true
}

// Count returns the number of live connections in the room.
func (g *Group) Count(roomID uint) int {
	sh := g.shard(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return len(sh.rooms[roomID])
}

// Rooms returns how many rooms currently hold at least one connection.
func (g *Group) Rooms() int {
	n := 0
	for _, sh := range g.shards {
		sh.mu.Lock()
		n += len(sh.rooms)
		sh.mu.Unlock()
	}
	return n
}

func (g *Group) members(roomID uint) []Client {
	sh := g.shard(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	members := sh.rooms[roomID]
	out := make([]Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// Broadcast hands payload to every matching connection of the room and returns how
// many accepted it. Sends never block: a full or closed client just misses the frame.
func (g *Group) Broadcast(roomID uint, payload []byte, d Delivery) int {
	delivered := 0
	for _, c := range g.members(roomID) {
		if c == d.Exclude {
			continue
		}
		if d.ExcludeUserID != 0 && c.GetUserID() == d.ExcludeUserID {
			continue
		}
		if d.ActiveOnly && !g.isActive(roomID, c.GetUserID()) {
			continue
		}
		if c.Send(payload) {
			delivered++
		} else {
			log.Printf("WARNING: Dropped frame for user %d in room %d", c.GetUserID(), roomID)
		}
	}
	return delivered
}

// isActive counts lookup failures as active.
func (g *Group) isActive(roomID, userID uint) bool {
	if g.active == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	active, err := g.active.IsParticipantActive(ctx, roomID, userID)
	if err != nil {
		log.Printf("WARNING: Participant lookup failed for user %d in room %d, delivering: %v", userID, roomID, err)
		return true
	}
	return active
}
