package handler

import (
	"errors"
	"lingochat/backend/internal/auth"
	"lingochat/backend/internal/chathub"
	"lingochat/backend/internal/config"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients send no Origin; browsers are checked by the gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket runs the handshake for /ws/chat/:room_id and hands the connection
// to a chat session.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	roomID, ok := parseID(c.Param("room_id"))
	if !ok {
		h.refuse(c, config.CloseSetupFailed, http.StatusBadRequest, "api.bad_request")
		return
	}

	session := h.Hub.NewSession(roomID)
	ctx, cancel := h.Hub.PersistContext(c.Request.Context())
	err := session.Authenticate(ctx, auth.TokenFromRequest(c.Request))
	cancel()
	if err != nil {
		log.Printf("WARNING: Refused connection to room %d: %v", roomID, err)
		status, key := http.StatusForbidden, "api.forbidden"
		if errors.Is(err, auth.ErrNoIdentity) {
			status, key = http.StatusUnauthorized, "api.unauthorized"
		}
		h.refuse(c, chathub.CloseCode(err), status, key)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: Upgrade failed for room %d: %v", roomID, err)
		session.Close()
		return
	}

	user := session.User()
	client := chathub.NewWebSocketClient(conn, user.ID, user.Username, roomID, session.Handle, session.Close)
	if err := session.Activate(client); err != nil {
		log.Printf("ERROR: Could not activate session for user %d: %v", user.ID, err)
		chathub.Reject(conn, config.CloseSetupFailed, "")
		return
	}
	client.Run()
}

// refuse ends a failed handshake: WebSocket clients get the close code after the
// upgrade, plain HTTP callers get a JSON error.
func (h *Handler) refuse(c *gin.Context, closeCode, status int, key string) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		h.fail(c, status, key)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	chathub.Reject(conn, closeCode, h.text(c, key))
}
