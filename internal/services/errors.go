// Package services defines the business logic of the content-generation
// pipeline: plan generation and persistence, lazy slide materialization,
// slide mutations, conversation, and profile enrichment.
//
// This file centralizes common service-level error values so that they can
// be consistently returned by service methods and checked by callers.
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer; none of these errors carry provider detail.
package services

import "errors"

var (
	// ErrTrainingNotFound indicates that the requested training does not
	// exist or is not accessible.
	ErrTrainingNotFound = errors.New("training not found")

	// ErrSessionNotFound indicates that the learner session does not exist.
	ErrSessionNotFound = errors.New("learner session not found")

	// ErrDocumentMissing is returned when a generation flow starts for a
	// training that has no uploaded source document yet.
	ErrDocumentMissing = errors.New("training has no source document")

	// ErrPlanNotFound indicates that the session has no plan yet.
	ErrPlanNotFound = errors.New("training plan not found")

	// ErrPlanInvalid is returned when the provider's structured output
	// violates the curriculum shape (stage count, empty modules or
	// submodules). One corrective retry is attempted before this error
	// reaches the orchestrator.
	ErrPlanInvalid = errors.New("generated plan has invalid shape")

	// ErrBadPosition indicates a malformed slide position string; the
	// expected form is "stage.module.submodule.slide" with 1-based parts.
	ErrBadPosition = errors.New("invalid slide position")

	// ErrSlideNotFound indicates that no slide exists at the requested
	// curriculum position.
	ErrSlideNotFound = errors.New("slide not found")

	// ErrSlideNotFilled is returned when a mutation or question targets a
	// slide whose content has not been generated yet.
	ErrSlideNotFilled = errors.New("slide has no content yet")

	// ErrInvalidMutation is returned for mutation kinds outside
	// simplify/expand/chart/image.
	ErrInvalidMutation = errors.New("unknown mutation kind")

	// ErrEmptyQuestion is returned when a conversation request contains an
	// empty question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrQuestionTooLong is returned when a question exceeds the maximum
	// configured length limit.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrGenerationFailed wraps exhausted-retry or semantic provider
	// failures. The detailed cause is logged server-side; clients only see
	// a generic retry message.
	ErrGenerationFailed = errors.New("content generation failed")
)
