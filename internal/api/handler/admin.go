package handler

import (
	"lingochat/backend/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type resolveRequest struct {
	Status     models.ReportStatus `json:"status" binding:"required"`
	AdminNotes string              `json:"admin_notes"`
}

// ListReports lists reports, optionally filtered by ?status=.
func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.Moderation.List(c.Request.Context(), models.ReportStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err, "api.report_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reports": reports})
}

// ResolveReport moves a report to reviewing, resolved or rejected.
func (h *Handler) ResolveReport(c *gin.Context) {
	id, ok := parseID(c.Param("report_id"))
	if !ok {
		h.fail(c, http.StatusBadRequest, "api.bad_request")
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "api.bad_request")
		return
	}

	report, err := h.Moderation.Resolve(c.Request.Context(), id, req.Status, req.AdminNotes)
	if err != nil {
		h.respondError(c, err, "api.report_not_found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
