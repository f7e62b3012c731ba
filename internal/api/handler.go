package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"fieldsync-backend/internal/inspection"
	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/pending"
	"fieldsync-backend/internal/refresh"
	"fieldsync-backend/internal/remote"
	"fieldsync-backend/internal/store"
	"fieldsync-backend/internal/syncer"
)

// RemoteProbe is the read-only part of the remote client the API exposes.
type RemoteProbe interface {
	Ping(ctx context.Context) remote.Ack
	PullStats(ctx context.Context) *model.Stats
}

// Deps are the components the API is built on.
type Deps struct {
	Store      store.Store
	Inspection *inspection.Service
	Controller *syncer.Controller
	Worker     *refresh.Worker
	Remote     RemoteProbe
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	inspection *inspection.Service
	controller *syncer.Controller
	worker     *refresh.Worker
	remote     RemoteProbe
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:      d.Store,
		inspection: d.Inspection,
		controller: d.Controller,
		worker:     d.Worker,
		remote:     d.Remote,
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, inspection.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pending.ErrAlreadyResolved):
		status = http.StatusConflict
	case errors.Is(err, inspection.ErrInvalidInput),
		errors.Is(err, pending.ErrResolverRequired),
		errors.Is(err, pending.ErrInvalidCrew),
		errors.Is(err, pending.ErrEmptyComment):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
