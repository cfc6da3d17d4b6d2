package chathub

import (
	"lingochat/backend/internal/config"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketClient implements Client over a gorilla connection.
type WebSocketClient struct {
	UserID   uint
	Username string
	RoomID   uint
	Conn     *websocket.Conn

	send   chan []byte
	mu     sync.Mutex
	closed bool

	onMessage func([]byte)
	onClose   func()
}

// NewWebSocketClient wires a connection to the callbacks of its session. onMessage
// runs on the read goroutine, one frame at a time. onClose runs once the read loop ends.
func NewWebSocketClient(conn *websocket.Conn, userID uint, username string, roomID uint, onMessage func([]byte), onClose func()) *WebSocketClient {
	return &WebSocketClient{
		UserID:    userID,
		Username:  username,
		RoomID:    roomID,
		Conn:      conn,
		send:      make(chan []byte, config.SendBufferSize),
		onMessage: onMessage,
		onClose:   onClose,
	}
}

func (c *WebSocketClient) GetUserID() uint     { return c.UserID }
func (c *WebSocketClient) GetUsername() string { return c.Username }
func (c *WebSocketClient) GetRoomID() uint     { return c.RoomID }

func (c *WebSocketClient) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close closes the send channel, which makes writePump say goodbye and drop the socket.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *WebSocketClient) readPump() {
	defer func() {
		if c.onClose != nil {
			c.onClose()
		}
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WARNING: Read error for user %d in room %d: %v", c.UserID, c.RoomID, err)
			}
			return
		}
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// writePump writes one text frame per queued payload and keeps the peer alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WARNING: Write failed for user %d in room %d: %v", c.UserID, c.RoomID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Reject closes a freshly upgraded connection with an application close code.
func Reject(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(config.WriteWait)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Printf("WARNING: Could not send close code %d: %v", code, err)
	}
	conn.Close()
}
