package chathub

import (
	"context"
	"encoding/json"
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/storage"
	"log"
	"sync"
	"time"
)

// relayEnvelope is what travels over the Redis broadcast channel.
type relayEnvelope struct {
	Node          string          `json:"node"`
	RoomID        uint            `json:"room_id"`
	Payload       json.RawMessage `json:"payload"`
	ExcludeUserID uint            `json:"exclude_user_id,omitempty"`
	ActiveOnly    bool            `json:"active_only,omitempty"`
}

// Relay carries room broadcasts between server nodes over Redis Pub/Sub.
// Outgoing envelopes are queued and published by one goroutine. Incoming ones are
// fanned out by one goroutine per room, so a slow room never holds up the others.
type Relay struct {
	broker  storage.Broker
	group   *Group
	node    string
	channel string

	outMu     sync.Mutex
	outClosed bool
	outbox    chan []byte
	published chan struct{}

	inMu    sync.Mutex
	pending map[uint][]relayEnvelope
}

// NewRelay starts the publisher goroutine. Call Close to flush and stop it.
func NewRelay(broker storage.Broker, group *Group, nodeID string) *Relay {
	r := &Relay{
		broker:    broker,
		group:     group,
		node:      nodeID,
		channel:   config.BroadcastChannel,
		outbox:    make(chan []byte, config.RelayOutboxSize),
		published: make(chan struct{}),
		pending:   make(map[uint][]relayEnvelope),
	}
	go r.publishLoop()
	return r
}

// Publish queues an already delivered local broadcast for the other nodes. It never
// waits on Redis: when the outbox is full the envelope is dropped.
func (r *Relay) Publish(roomID uint, payload []byte, d Delivery) {
	exclude := d.ExcludeUserID
	if exclude == 0 && d.Exclude != nil {
		exclude = d.Exclude.GetUserID()
	}

	data, err := json.Marshal(relayEnvelope{
		Node:          r.node,
		RoomID:        roomID,
		Payload:       payload,
		ExcludeUserID: exclude,
		ActiveOnly:    d.ActiveOnly,
	})
	if err != nil {
		log.Printf("ERROR: Failed to encode relay envelope for room %d: %v", roomID, err)
		return
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()
	if r.outClosed {
		return
	}
	select {
	case r.outbox <- data:
	default:
		log.Printf("WARNING: Relay outbox full, dropped broadcast for room %d", roomID)
	}
}

// Close publishes what is still queued and stops the publisher.
func (r *Relay) Close() {
	r.outMu.Lock()
	if !r.outClosed {
		r.outClosed = true
		close(r.outbox)
	}
	r.outMu.Unlock()
	<-r.published
}

func (r *Relay) publishLoop() {
	defer close(r.published)
	for data := range r.outbox {
		ctx, cancel := context.WithTimeout(context.Background(), config.WriteWait)
		if err := r.broker.PublishEvent(ctx, r.channel, data); err != nil {
			log.Printf("ERROR: Failed to relay broadcast: %v", err)
		}
		cancel()
	}
}

// Run listens on the broadcast channel until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.broker.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("INFO: Relay node %s subscribed to %s", r.node, r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.receive([]byte(msg.Payload))
		}
	}
}

func (r *Relay) receive(data []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("WARNING: Error unmarshalling relay message: %v", err)
		return
	}
	if env.Node == r.node {
		return
	}

	r.inMu.Lock()
	queue, draining := r.pending[env.RoomID]
	if len(queue) >= config.RelayRoomQueueSize {
		r.inMu.Unlock()
		log.Printf("WARNING: Relay queue for room %d full, dropped envelope from %s", env.RoomID, env.Node)
		return
	}
	r.pending[env.RoomID] = append(queue, env)
	r.inMu.Unlock()

	if !draining {
		go r.drain(env.RoomID)
	}
}

// drain delivers a room's envelopes in arrival order and exits once the queue is empty.
// A room has an entry in pending exactly while its drain goroutine runs.
func (r *Relay) drain(roomID uint) {
	for {
		r.inMu.Lock()
		queue := r.pending[roomID]
		if len(queue) == 0 {
			delete(r.pending, roomID)
			r.inMu.Unlock()
			return
		}
		env := queue[0]
		r.pending[roomID] = queue[1:]
		r.inMu.Unlock()

		r.group.Broadcast(env.RoomID, env.Payload, Delivery{
			ExcludeUserID: env.ExcludeUserID,
			ActiveOnly:    env.ActiveOnly,
		})
	}
}

// RunWithRetry keeps the relay subscribed across Redis outages.
func (r *Relay) RunWithRetry(ctx context.Context, backoff time.Duration) {
	for {
		err := r.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("WARNING: Relay subscription ended: %v; retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}
