package handler

import (
	"lingochat/backend/internal/auth"
	"lingochat/backend/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// RequireAuth resolves the bearer credential with the hub's authenticator.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.Hub.Auth.Authenticate(c.Request.Context(), auth.TokenFromRequest(c.Request))
		if err != nil {
			h.fail(c, http.StatusUnauthorized, "api.unauthorized")
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireStaff must run after RequireAuth.
func (h *Handler) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsStaff {
			h.fail(c, http.StatusForbidden, "api.staff_only")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}
