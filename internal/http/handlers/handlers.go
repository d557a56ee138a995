package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
	"github.com/adaptive-elearn/go-training-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// SessionService defines learner session operations consumed by HTTP
// handlers.
type SessionService interface {
	// Create starts a session for a learner on a training with the survey.
	Create(ctx context.Context, trainingID, learnerID string, survey services.SurveyInput) (*domain.LearnerSession, *domain.LearnerProfile, error)
	// Get fetches a session by id.
	Get(ctx context.Context, id string) (*domain.LearnerSession, error)
	// Profile fetches the profile attached to a session.
	Profile(ctx context.Context, sessionID string) (*domain.LearnerProfile, error)
}

// PlanService defines read access to a session's persisted plan.
type PlanService interface {
	// Tree returns the whole curriculum of a session.
	Tree(ctx context.Context, sessionID string) (*repo.PlanTree, error)
	// Progress returns the plan with its fill-progress counters.
	Progress(ctx context.Context, sessionID string) (*domain.TrainingPlan, repo.PlanProgress, error)
}

// Orchestrator defines the generation entry points: everything here may
// block on the rate limiter and call the provider.
type Orchestrator interface {
	// EnsurePlan returns the session's plan, generating it on first call.
	EnsurePlan(ctx context.Context, sessionID string) (*domain.TrainingPlan, error)
	// EnsureSlide returns the slide at path with content, generating it
	// at most once.
	EnsureSlide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, *domain.SlideVersion, error)
	// Slide resolves a slide without triggering generation.
	Slide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, error)
	// ApplyMutation produces a mutated variant of a filled slide.
	ApplyMutation(ctx context.Context, sessionID, pathKey, kind string) (*domain.Slide, *domain.SlideVersion, error)
	// AskQuestion answers a learner question about a slide.
	AskQuestion(ctx context.Context, sessionID, pathKey, question string) (*domain.ConversationTurn, error)
}

// SlideService defines slide read operations that never generate content.
type SlideService interface {
	// Versions lists every stored version of a slide, oldest first.
	Versions(ctx context.Context, slideID string) ([]domain.SlideVersion, error)
	// ListTurnsPage returns a page of conversation turns for a slide.
	ListTurnsPage(ctx context.Context, sessionID, slideID string, page, pageSize int) ([]domain.ConversationTurn, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for trainings, sessions, plans and
// slides. It depends on abstract service interfaces to keep transport
// concerns separate from business logic. DB is used only for cheap ETag
// pre-checks on list endpoints.
type Handlers struct {
	trainings TrainingService
	sessions  SessionService
	plans     PlanService
	slides    SlideService
	orch      Orchestrator
	db        *gorm.DB

	// IdempotencyTTL bounds how long a stored idempotency record keeps
	// answering replays. Zero or negative means the 24h default.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(trainings TrainingService, sessions SessionService, plans PlanService, slides SlideService, orch Orchestrator, db *gorm.DB) *Handlers {
	return &Handlers{
		trainings: trainings,
		sessions:  sessions,
		plans:     plans,
		slides:    slides,
		orch:      orch,
		db:        db,
	}
}
