// Idempotent replay support for the generation POST endpoints.
//
// middleware.IdempotencyValidator validates the Idempotency-Key header and
// flags requests whose (learner, session, key) scope already completed.
// The helpers here supply the storage half: reading the stored record when
// a replay is flagged and writing one after a successful generation.
// Record writes are best-effort; a failed write never fails the request
// that produced the result.
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/http/middleware"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// HeaderIdempotencyReplayed marks a response that was served from a stored
// idempotency record instead of running the operation again.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const defaultIdempotencyTTL = 24 * time.Hour

// idempotentRecord returns the stored record for this request when the
// validator flagged it as a replay, or nil when the request should run
// normally. Lookup failures fall back to normal processing.
func (h *Handlers) idempotentRecord(c *gin.Context, sessionID string) *domain.Idempotency {
	if h.db == nil || !middleware.IsReplay(c) {
		return nil
	}
	key, present := middleware.GetIdempotencyKey(c)
	if !present {
		return nil
	}
	rec, err := repo.GetIdempotency(c.Request.Context(), h.db, learnerID(c), sessionID, key, time.Now().UTC())
	if err != nil {
		return nil
	}
	return rec
}

// rememberIdempotent stores the produced result id against the request's
// idempotency key so retries can be answered without regenerating.
func (h *Handlers) rememberIdempotent(c *gin.Context, sessionID, resultID string, status int) {
	if h.db == nil || resultID == "" {
		return
	}
	key, present := middleware.GetIdempotencyKey(c)
	if !present {
		return
	}
	ttl := h.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	_, _ = repo.CreateIdempotency(c.Request.Context(), h.db, learnerID(c), sessionID, key, resultID, status, ttl)
}
