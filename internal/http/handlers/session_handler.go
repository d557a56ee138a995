// Session HTTP handlers.
//
// This file exposes REST endpoints for learner sessions:
//   - POST   /sessions               (start session with onboarding survey)
//   - GET    /sessions/{id}          (fetch)
//   - GET    /sessions/{id}/profile  (fetch profile incl. enriched notes)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adaptive-elearn/go-training-backend/internal/services"
)

// CreateSessionRequest is the JSON payload for starting a session. The
// survey answers become the learner profile that every later prompt adapts
// to.
type CreateSessionRequest struct {
	TrainingID      string `json:"training_id"      binding:"required,uuid"`
	ExperienceLevel string `json:"experience_level" binding:"required,oneof=beginner intermediate advanced"`
	LearningStyle   string `json:"learning_style"   binding:"required,min=1,max=32"`
	JobRole         string `json:"job_role"         binding:"max=128"`
	Sector          string `json:"sector"           binding:"max=128"`
	Country         string `json:"country"          binding:"max=64"`
	Language        string `json:"language"         binding:"max=16"`
	Objectives      string `json:"objectives"       binding:"max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"gte=0,lte=1440"`
}

// CreateSessionResponse bundles the created session with its profile.
type CreateSessionResponse struct {
	Session any `json:"session"`
	Profile any `json:"profile"`
}

// CreateSession handles POST /sessions.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid session payload: "+err.Error())
		return
	}

	session, profile, err := h.sessions.Create(c.Request.Context(), req.TrainingID, learnerID(c), services.SurveyInput{
		ExperienceLevel: req.ExperienceLevel,
		LearningStyle:   req.LearningStyle,
		JobRole:         req.JobRole,
		Sector:          req.Sector,
		Country:         req.Country,
		Language:        strings.TrimSpace(req.Language),
		Objectives:      req.Objectives,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, CreateSessionResponse{Session: session, Profile: profile})
}

// GetSession handles GET /sessions/:id.
func (h *Handlers) GetSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, session)
}

// GetProfile handles GET /sessions/:id/profile.
func (h *Handlers) GetProfile(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	profile, err := h.sessions.Profile(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}
