package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldsync-backend/internal/model"
)

type resolveRequest struct {
	ResolvedBy     string     `json:"resolvedBy"`
	ResolvedByCrew model.Crew `json:"resolvedByCrew"`
}

// ListPending handles GET /api/pending?status=open|resolved.
func (h *Handler) ListPending(c *gin.Context) {
	items, err := h.inspection.PendingItems(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ResolvePending handles POST /api/pending/:id/resolve.
func (h *Handler) ResolvePending(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	item, err := h.inspection.ResolvePending(c.Request.Context(), c.Param("id"), req.ResolvedBy, req.ResolvedByCrew)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CommentPending handles POST /api/pending/:id/comments.
func (h *Handler) CommentPending(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	item, err := h.inspection.CommentPending(c.Request.Context(), c.Param("id"), req.Text, req.Author)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
