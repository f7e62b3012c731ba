package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldsync-backend/internal/db"
)

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	gdb := h.store.DB()
	if gdb == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "no database"})
		return
	}
	sqlDB, err := gdb.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "schemaVersion": db.Version(gdb)})
}
