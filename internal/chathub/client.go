package chathub

// Client is one live connection bound to a single room. The broadcast group only
// talks to connections through this interface, so tests can swap in doubles.
type Client interface {
	// GetUserID returns the identifier of the authenticated user behind the connection.
	GetUserID() uint
	GetUsername() string
	// GetRoomID returns the room the connection was opened for.
	GetRoomID() uint

	// Send queues an encoded frame without blocking. It reports false when the frame
	// was dropped because the client is closed or its buffer is full.
	Send(payload []byte) bool

	// Close stops the connection. Safe to call more than once.
	Close()
}
