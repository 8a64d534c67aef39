package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/upbeat-works/edgecms/internal/http/middleware"
	"github.com/upbeat-works/edgecms/internal/http/response"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/services"
)

type BlockHandler struct {
	content services.ContentService
}

func NewBlockHandler(content services.ContentService) *BlockHandler {
	return &BlockHandler{content: content}
}

// PUT /api/blocks/:key
// Body is the block's JSON payload, stored as-is.
func (h *BlockHandler) Upsert(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	block, err := h.content.UpsertBlock(
		dbctx.New(c.Request.Context()),
		c.Param("key"), datatypes.JSON(raw),
		middleware.EditorID(c),
	)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "upsert_block_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"block": block})
}

// GET /api/blocks/:key
func (h *BlockHandler) Get(c *gin.Context) {
	block, err := h.content.GetBlock(dbctx.New(c.Request.Context()), c.Param("key"))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_block_failed", err)
		return
	}
	if block == nil {
		response.RespondError(c, http.StatusNotFound, "block_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"block": block})
}

// GET /api/blocks
func (h *BlockHandler) List(c *gin.Context) {
	blocks, err := h.content.ListBlocks(dbctx.New(c.Request.Context()))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_blocks_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"blocks": blocks})
}
