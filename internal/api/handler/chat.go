package handler

import (
	"lingochat/backend/internal/config"
	"lingochat/backend/internal/models"
	"lingochat/backend/internal/moderation"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type partnerView struct {
	ID        uint     `json:"id"`
	Username  string   `json:"username"`
	Nickname  string   `json:"nickname"`
	Languages []string `json:"languages"`
}

type roomView struct {
	ID        uint         `json:"id"`
	Partner   *partnerView `json:"partner"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newPartnerView(u *models.User) *partnerView {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &partnerView{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.DisplayName(),
		Languages: u.Languages,
	}
}

// ListRooms returns the caller's rooms, most recently active first.
func (h *Handler) ListRooms(c *gin.Context) {
	user := currentUser(c)
	rooms, err := h.Store.ListRoomsForUser(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}

	views := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		partner := &r.User2
		if r.User2ID == user.ID {
			partner = &r.User1
		}
		views = append(views, roomView{
			ID:        r.ID,
			Partner:   newPartnerView(partner),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": views})
}

// GetPartner returns the other participant of the room.
func (h *Handler) GetPartner(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}
	user := currentUser(c)

	room, err := h.Hub.RequireParticipant(c.Request.Context(), roomID, user.ID)
	if err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}
	partnerID, _ := room.PartnerOf(user.ID)

	partner, err := h.Store.GetUserByID(c.Request.Context(), partnerID)
	if err != nil {
		h.respondError(c, err, "api.partner_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "partner": newPartnerView(partner)})
}

// ListMessages pages through the room history: ?before=<id>&limit=<n>.
func (h *Handler) ListMessages(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	var before uint
	if raw := c.Query("before"); raw != "" {
		if before, ok = parseID(raw); !ok {
			h.fail(c, http.StatusBadRequest, "api.bad_request")
			return
		}
	}
	limit := config.DefaultMessagePageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(c, http.StatusBadRequest, "api.bad_request")
			return
		}
		limit = min(n, config.MaxMessagePageSize)
	}

	ctx := c.Request.Context()
	if _, err := h.Hub.RequireParticipant(ctx, roomID, currentUser(c).ID); err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}

	msgs, err := h.Store.ListMessages(ctx, roomID, before, limit)
	if err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": msgs,
		"has_more": len(msgs) == limit,
	})
}

// MarkRead marks every message from the partner as read by the caller.
func (h *Handler) MarkRead(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	n, err := h.Hub.MarkRead(c.Request.Context(), roomID, currentUser(c).ID)
	if err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"marked":  n,
		"message": h.text(c, "api.marked_read", n),
	})
}

// ListReactions returns every heart in the room.
func (h *Handler) ListReactions(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Hub.RequireParticipant(ctx, roomID, currentUser(c).ID); err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}

	reactions, err := h.Store.ListReactions(ctx, roomID)
	if err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reactions": reactions})
}

// FileReport reports the partner, one of their messages, or the room.
func (h *Handler) FileReport(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	var in moderation.ReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, http.StatusBadRequest, "api.bad_request")
		return
	}
	in.ReporterID = currentUser(c).ID
	in.RoomID = roomID

	report, err := h.Moderation.FileReport(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"report_id": report.ID,
		"message":   h.text(c, "api.report_filed"),
	})
}

// LeaveRoom marks the caller as gone and notifies the partner.
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	if err := h.Hub.LeaveRoom(c.Request.Context(), roomID, currentUser(c)); err != nil {
		h.respondError(c, err, "api.room_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": h.text(c, "api.left_room")})
}
