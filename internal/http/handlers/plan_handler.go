// Plan HTTP handlers.
//
// This file exposes REST endpoints for training plans:
//   - POST   /sessions/{id}/plan          (generate, idempotent)
//   - GET    /sessions/{id}/plan          (full curriculum tree, ETag support)
//   - GET    /sessions/{id}/plan/summary  (fill-progress counters)
//
// Plan generation is idempotent per session: the first POST generates and
// persists the plan, later POSTs return the stored one. Concurrent POSTs
// converge on a single plan.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// EnsurePlan handles POST /sessions/:id/plan.
func (h *Handlers) EnsurePlan(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	if rec := h.idempotentRecord(c, id); rec != nil {
		if plan, err := repo.GetPlanBySession(c.Request.Context(), h.db, id); err == nil && plan.ID == rec.ResultID {
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, plan)
			return
		}
	}
	plan, err := h.orch.EnsurePlan(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	h.rememberIdempotent(c, id, plan.ID, http.StatusOK)
	ok(c, http.StatusOK, plan)
}

// GetPlan handles GET /sessions/:id/plan. Supports weak ETags derived from
// the plan's fill state, so a polling client only re-downloads the tree
// when a slide has been generated or mutated since its last fetch.
func (h *Handlers) GetPlan(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	tree, err := h.plans.Tree(ctx, id)
	if err != nil {
		failFromService(c, err)
		return
	}

	// ETag check (best effort).
	if h.db != nil {
		filled, maxTS, err := repo.SlideStats(ctx, h.db, tree.Plan.ID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"plan:%s:%d:%d"`, tree.Plan.ID, filled, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	ok(c, http.StatusOK, tree)
}

// PlanSummaryResponse wraps a plan with its progress counters.
type PlanSummaryResponse struct {
	Plan     any               `json:"plan"`
	Progress repo.PlanProgress `json:"progress"`
}

// GetPlanSummary handles GET /sessions/:id/plan/summary.
func (h *Handlers) GetPlanSummary(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	plan, progress, err := h.plans.Progress(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, PlanSummaryResponse{Plan: plan, Progress: progress})
}
