package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/upbeat-works/edgecms/internal/http/middleware"
	"github.com/upbeat-works/edgecms/internal/http/response"
	"github.com/upbeat-works/edgecms/internal/pkg/dbctx"
	"github.com/upbeat-works/edgecms/internal/services"
)

type TranslationHandler struct {
	content services.ContentService
}

func NewTranslationHandler(content services.ContentService) *TranslationHandler {
	return &TranslationHandler{content: content}
}

type upsertTranslationRequest struct {
	Value   string `json:"value" binding:"required"`
	Section string `json:"section"`
}

// PUT /api/translations/:locale/:key
func (h *TranslationHandler) Upsert(c *gin.Context) {
	var req upsertTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	draft, err := h.content.UpsertTranslation(
		dbctx.New(c.Request.Context()),
		c.Param("locale"), c.Param("key"), req.Value, req.Section,
		middleware.EditorID(c),
	)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "upsert_translation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

// GET /api/translations/:locale
func (h *TranslationHandler) ListByLocale(c *gin.Context) {
	rows, err := h.content.ListTranslations(dbctx.New(c.Request.Context()), c.Param("locale"))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_translations_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"translations": rows})
}

type createLanguageRequest struct {
	Locale string `json:"locale" binding:"required"`
}

// POST /api/languages
func (h *TranslationHandler) CreateLanguage(c *gin.Context) {
	var req createLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	lang, err := h.content.CreateLanguage(dbctx.New(c.Request.Context()), req.Locale, middleware.EditorID(c))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_language_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"language": lang})
}

// GET /api/languages
func (h *TranslationHandler) ListLanguages(c *gin.Context) {
	langs, err := h.content.ListLanguages(dbctx.New(c.Request.Context()))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_languages_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"languages": langs})
}
