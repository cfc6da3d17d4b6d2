package handler

import (
	"context"
	"errors"
	"lingochat/backend/internal/chathub"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/models"
	"lingochat/backend/internal/moderation"
	"lingochat/backend/internal/storage"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Store is the read side the REST endpoints need.
type Store interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	ListMessages(ctx context.Context, roomID, beforeID uint, limit int) ([]models.Message, error)
	ListReactions(ctx context.Context, roomID uint) ([]models.HeartReaction, error)
	Ping(ctx context.Context) error
}

// Moderation files and resolves reports.
type Moderation interface {
	FileReport(ctx context.Context, in moderation.ReportInput) (*models.Report, error)
	Resolve(ctx context.Context, id uint, status models.ReportStatus, notes string) (*models.Report, error)
	List(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
}

// Handler serves the chat socket and the REST API around it.
type Handler struct {
	Hub        *chathub.ManagerService
	Store      Store
	Moderation Moderation
	Localizer  *localization.Localizer
	Language   string
}

func NewHandler(hub *chathub.ManagerService, s Store, mod Moderation, loc *localization.Localizer, language string) *Handler {
	return &Handler{
		Hub:        hub,
		Store:      s,
		Moderation: mod,
		Localizer:  loc,
		Language:   language,
	}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ws/chat/:room_id", h.ServeWebSocket)
	r.GET("/ws/chat/:room_id/", h.ServeWebSocket)

	chat := r.Group("/api/chat", h.RequireAuth())
	{
		chat.GET("/rooms", h.ListRooms)
		chat.GET("/rooms/:room_id/partner", h.GetPartner)
		chat.GET("/rooms/:room_id/messages", h.ListMessages)
		chat.POST("/rooms/:room_id/messages/read", h.MarkRead)
		chat.GET("/rooms/:room_id/heart-reactions", h.ListReactions)
		chat.POST("/rooms/:room_id/report", h.FileReport)
		chat.POST("/rooms/:room_id/leave", h.LeaveRoom)
	}

	admin := r.Group("/api/admin", h.RequireAuth(), h.RequireStaff())
	{
		admin.GET("/reports", h.ListReports)
		admin.PATCH("/reports/:report_id", h.ResolveReport)
	}
}

// lang picks the catalog from Accept-Language, falling back to the configured default.
func (h *Handler) lang(c *gin.Context) string {
	header := strings.ToLower(c.GetHeader("Accept-Language"))
	if header != "" && h.Localizer != nil {
		for _, l := range h.Localizer.Languages() {
			if strings.HasPrefix(header, l) {
				return l
			}
		}
	}
	return h.Language
}

func (h *Handler) text(c *gin.Context, key string, args ...any) string {
	if h.Localizer == nil {
		return key
	}
	return h.Localizer.Format(h.lang(c), key, args...)
}

func (h *Handler) fail(c *gin.Context, status int, key string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": h.text(c, key)})
}

// respondError maps domain errors to HTTP responses.
func (h *Handler) respondError(c *gin.Context, err error, notFoundKey string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.fail(c, http.StatusNotFound, notFoundKey)
	case errors.Is(err, chathub.ErrNotParticipant), errors.Is(err, moderation.ErrNotParticipant):
		h.fail(c, http.StatusForbidden, "api.forbidden")
	case errors.Is(err, moderation.ErrInvalidReport):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": h.text(c, "api.bad_request"),
			"detail":  err.Error(),
		})
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		h.fail(c, http.StatusInternalServerError, "api.internal")
	}
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// roomParam reads :room_id or answers 400.
func (h *Handler) roomParam(c *gin.Context) (uint, bool) {
	id, ok := parseID(c.Param("room_id"))
	if !ok {
		h.fail(c, http.StatusBadRequest, "api.bad_request")
	}
	return id, ok
}
