package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"fieldsync-backend/config"
	"fieldsync-backend/internal/mw"
	"fieldsync-backend/internal/syncer"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()
	handler := NewHandler(d)

	rateLimiter := mw.NewClientRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, mw.DefaultClientIdle)

	// Remote stats are cached until the TTL passes or the next refresh completes.
	statsCache := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	d.Worker.OnComplete(func(syncer.Result) { statsCache.Flush() })

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter.Middleware(), mw.AccessKey(cfg.AccessKey))
	{
		api.GET("/reports", handler.ListReports)
		api.POST("/reports", handler.CreateReport)
		api.POST("/reports/:id/items/:index/comments", handler.CommentReportItem)

		api.GET("/pending", handler.ListPending)
		api.POST("/pending/:id/resolve", handler.ResolvePending)
		api.POST("/pending/:id/comments", handler.CommentPending)

		api.POST("/sync/refresh", handler.RefreshSync)
		api.GET("/sync/status", handler.SyncStatus)
		api.GET("/sync/stats", statsCache.Middleware(), handler.SyncStats)
		api.GET("/sync/ping", handler.PingRemote)
	}

	return r
}
