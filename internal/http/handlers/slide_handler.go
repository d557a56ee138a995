// Slide HTTP handlers.
//
// This file exposes REST endpoints for individual slides, addressed by
// their curriculum position "stage.module.submodule.slide" (1-based):
//   - GET    /sessions/{id}/slides/{path}            (fetch, generating on first access)
//   - POST   /sessions/{id}/slides/{path}/mutations (simplify/expand/chart/image)
//   - POST   /sessions/{id}/slides/{path}/questions (ask about this slide)
//   - GET    /sessions/{id}/slides/{path}/turns     (conversation, paginated)
//   - GET    /sessions/{id}/slides/{path}/versions  (content history)
//
// The first GET of a slide triggers generation and may block on the
// per-training rate limiter; subsequent GETs serve the stored content.
// The POST endpoints honor the Idempotency-Key header: a retry of a
// completed mutation or question is answered from the stored record.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
	"github.com/adaptive-elearn/go-training-backend/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// SlideResponse is a slide together with its current content version.
type SlideResponse struct {
	Slide   *domain.Slide        `json:"slide"`
	Version *domain.SlideVersion `json:"version"`
}

// sessionAndPath validates the common path params of slide endpoints.
func sessionAndPath(c *gin.Context) (sessionID, pathKey string, ok bool) {
	sessionID = c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return "", "", false
	}
	return sessionID, c.Param("path"), true
}

// GetSlide handles GET /sessions/:id/slides/:path. The first access
// generates the slide's content; later accesses return the stored version.
func (h *Handlers) GetSlide(c *gin.Context) {
	sessionID, pathKey, valid := sessionAndPath(c)
	if !valid {
		return
	}
	slide, version, err := h.orch.EnsureSlide(c.Request.Context(), sessionID, pathKey)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, SlideResponse{Slide: slide, Version: version})
}

// MutateSlideRequest is the JSON payload for a slide mutation.
type MutateSlideRequest struct {
	Kind string `json:"kind" binding:"required,oneof=simplify expand chart image"`
}

// MutateSlide handles POST /sessions/:id/slides/:path/mutations.
func (h *Handlers) MutateSlide(c *gin.Context) {
	sessionID, pathKey, valid := sessionAndPath(c)
	if !valid {
		return
	}
	var req MutateSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be one of simplify, expand, chart, image")
		return
	}
	if rec := h.idempotentRecord(c, sessionID); rec != nil {
		version, verr := repo.GetSlideVersion(c.Request.Context(), h.db, rec.ResultID)
		slide, serr := h.orch.Slide(c.Request.Context(), sessionID, pathKey)
		if verr == nil && serr == nil && version.SlideID == slide.ID {
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, SlideResponse{Slide: slide, Version: version})
			return
		}
	}
	slide, version, err := h.orch.ApplyMutation(c.Request.Context(), sessionID, pathKey, req.Kind)
	if err != nil {
		failFromService(c, err)
		return
	}
	h.rememberIdempotent(c, sessionID, version.ID, http.StatusCreated)
	ok(c, http.StatusCreated, SlideResponse{Slide: slide, Version: version})
}

// AskQuestionRequest is the JSON payload for a slide-scoped question.
type AskQuestionRequest struct {
	Question string `json:"question" binding:"required,min=1,max=2000"`
}

// AskQuestion handles POST /sessions/:id/slides/:path/questions.
func (h *Handlers) AskQuestion(c *gin.Context) {
	sessionID, pathKey, valid := sessionAndPath(c)
	if !valid {
		return
	}
	var req AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required (1-2000 chars)")
		return
	}
	if rec := h.idempotentRecord(c, sessionID); rec != nil {
		if turn, err := repo.GetTurn(h.db, rec.ResultID); err == nil {
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, turn)
			return
		}
	}
	turn, err := h.orch.AskQuestion(c.Request.Context(), sessionID, pathKey, req.Question)
	if err != nil {
		failFromService(c, err)
		return
	}
	h.rememberIdempotent(c, sessionID, turn.ID, http.StatusCreated)
	ok(c, http.StatusCreated, turn)
}

// ListTurnsResponse wraps a page of conversation turns.
type ListTurnsResponse struct {
	Turns      []domain.ConversationTurn `json:"turns"`
	Pagination Pagination                `json:"pagination"`
}

// ListTurns handles GET /sessions/:id/slides/:path/turns.
func (h *Handlers) ListTurns(c *gin.Context) {
	sessionID, pathKey, valid := sessionAndPath(c)
	if !valid {
		return
	}
	slide, err := h.orch.Slide(c.Request.Context(), sessionID, pathKey)
	if err != nil {
		failFromService(c, err)
		return
	}
	page, pageSize := clampPagination(c)
	items, total, err := h.slides.ListTurnsPage(c.Request.Context(), sessionID, slide.ID, page, pageSize)
	if err != nil {
		failFromService(c, err)
		return
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListTurnsResponse{
		Turns: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListVersions handles GET /sessions/:id/slides/:path/versions.
func (h *Handlers) ListVersions(c *gin.Context) {
	sessionID, pathKey, valid := sessionAndPath(c)
	if !valid {
		return
	}
	slide, err := h.orch.Slide(c.Request.Context(), sessionID, pathKey)
	if err != nil {
		failFromService(c, err)
		return
	}
	versions, err := h.slides.Versions(c.Request.Context(), slide.ID)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"versions": versions})
}
