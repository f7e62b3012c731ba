package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldsync-backend/internal/inspection"
	"fieldsync-backend/internal/model"
)

type commentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// ListReports handles GET /api/reports.
func (h *Handler) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, h.inspection.Reports(c.Request.Context()))
}

type createReportResponse struct {
	Report  model.Report        `json:"report"`
	Pending []model.PendingItem `json:"pending"`
}

// CreateReport handles POST /api/reports.
func (h *Handler) CreateReport(c *gin.Context) {
	var req inspection.NewReport
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	report, derived, err := h.inspection.SubmitReport(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createReportResponse{Report: report, Pending: derived})
}

// CommentReportItem handles POST /api/reports/:id/items/:index/comments.
func (h *Handler) CommentReportItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid item index")
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	report, err := h.inspection.CommentReportItem(c.Request.Context(), c.Param("id"), index, req.Text, req.Author)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
