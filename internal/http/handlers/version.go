package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/upbeat-works/edgecms/internal/domain"
	"github.com/upbeat-works/edgecms/internal/http/response"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/services"
)

type VersionHandler struct {
	versions services.VersionService
}

func NewVersionHandler(versions services.VersionService) *VersionHandler {
	return &VersionHandler{versions: versions}
}

// GET /api/versions
func (h *VersionHandler) List(c *gin.Context) {
	out, err := h.versions.List(dbctx.New(c.Request.Context()))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_versions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"versions": out})
}

// GET /api/versions/latest?status=live
func (h *VersionHandler) Latest(c *gin.Context) {
	status := domain.VersionStatus(c.Query("status"))
	switch status {
	case "", domain.VersionDraft, domain.VersionLive, domain.VersionArchived:
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	v, err := h.versions.Latest(dbctx.New(c.Request.Context()), status)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "latest_version_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"version": v})
}
