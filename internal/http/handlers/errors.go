// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the `fail()`
// helper and give clients a stable, machine-readable error taxonomy next to
// the human-readable message. Generic codes mirror common HTTP status
// semantics; domain-specific codes cover business outcomes a status alone
// cannot convey (a structurally invalid generated plan, an exhausted
// provider retry, a mutation on an empty slide).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adaptive-elearn/go-training-backend/internal/docstore"
	"github.com/adaptive-elearn/go-training-backend/internal/ratelimit"
	"github.com/adaptive-elearn/go-training-backend/internal/services"
)

const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeRateLimited    = "too_many_requests"
	ErrCodeInternal       = "internal_error"
	ErrCodePayloadTooBig  = "payload_too_large"
	ErrCodeUnsupportedDoc = "unsupported_media_type"

	// Domain-specific:
	ErrCodePlanInvalid      = "plan_invalid"
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeSlideNotFilled   = "slide_not_filled"
	ErrCodeDocumentMissing  = "document_missing"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failFromService translates service-layer errors into the envelope. Every
// handler that calls into the orchestrator or a service funnels its error
// through here so the status/code mapping stays in one place.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTrainingNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrPlanNotFound),
		errors.Is(err, services.ErrSlideNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrBadPosition),
		errors.Is(err, services.ErrInvalidMutation),
		errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrQuestionTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrSlideNotFilled):
		fail(c, http.StatusConflict, ErrCodeSlideNotFilled, err.Error())
	case errors.Is(err, services.ErrDocumentMissing):
		fail(c, http.StatusConflict, ErrCodeDocumentMissing, err.Error())
	case errors.Is(err, services.ErrPlanInvalid):
		fail(c, http.StatusBadGateway, ErrCodePlanInvalid, "the generated plan was structurally invalid; please retry")
	case errors.Is(err, services.ErrGenerationFailed):
		fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, "content generation failed; please retry")
	case errors.Is(err, ratelimit.ErrRateLimited):
		c.Header("Retry-After", "30")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "generation capacity exhausted, retry later")
	case errors.Is(err, docstore.ErrUnsupportedType):
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedDoc, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
