package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/upbeat-works/edgecms/internal/http/response"
	pkgerrors "github.com/upbeat-works/edgecms/internal/pkg/errors"
	"github.com/upbeat-works/edgecms/internal/services"
)

type ReleaseHandler struct {
	releases services.ReleaseService
}

func NewReleaseHandler(releases services.ReleaseService) *ReleaseHandler {
	return &ReleaseHandler{releases: releases}
}

// POST /api/releases
// Publishes the current draft. Responds 202: the workflow is enqueued, its
// outcome is observed via GET /api/releases/current.
func (h *ReleaseHandler) Publish(c *gin.Context) {
	run, err := h.releases.EnqueueRelease(c.Request.Context())
	if err != nil {
		if errors.Is(err, pkgerrors.ErrReleaseInFlight) {
			response.RespondError(c, http.StatusConflict, "release_in_flight", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "enqueue_release_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"run": run})
}

// POST /api/releases/rollback/:versionId
func (h *ReleaseHandler) Rollback(c *gin.Context) {
	versionID, err := strconv.ParseInt(c.Param("versionId"), 10, 64)
	if err != nil || versionID <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
		return
	}
	run, err := h.releases.EnqueueRollback(c.Request.Context(), versionID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrReleaseInFlight) {
			response.RespondError(c, http.StatusConflict, "release_in_flight", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "enqueue_rollback_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"run": run})
}

// GET /api/releases/current
func (h *ReleaseHandler) Current(c *gin.Context) {
	status, err := h.releases.CurrentRun(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "describe_release_failed", err)
		return
	}
	if status == nil {
		response.RespondOK(c, gin.H{"run": nil})
		return
	}
	response.RespondOK(c, gin.H{"run": status})
}
