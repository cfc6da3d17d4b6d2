package config

import "time"

const (
	// Close codes sent on the chat socket.
	CloseAuthFailed  = 4401
	CloseSetupFailed = 4000

	// Socket timing
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 8192

	// Outbound frames buffered per connection before it counts as a slow consumer.
	SendBufferSize = 256

	DefaultPersistTimeout = 5 * time.Second

	// Redis
	BroadcastChannel = "chat:broadcast"
	BanKeyPrefix     = "ban:"
	// Envelopes waiting to be published, and per room waiting for local fan-out.
	RelayOutboxSize    = 1024
	RelayRoomQueueSize = 256

	// Moderation
	ReportEvidenceMessages = 20
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 200
)
