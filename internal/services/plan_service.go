// Package services – PlanService
//
// This file implements the curriculum generator and persister. Generate
// asks the provider for a schema-constrained skeleton and enforces the
// curriculum shape (exactly five stages, no empty modules or submodules),
// retrying once with a corrective instruction when the shape is violated.
// Persist converts a validated skeleton into the full entity tree inside a
// single transaction; a concurrent persist for the same session converges
// on the winner's plan instead of failing.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// PlanService generates and persists curriculum skeletons.
type PlanService struct {
	DB       *gorm.DB
	Provider genai.Client
}

// NewPlanService constructs a PlanService.
func NewPlanService(db *gorm.DB, provider genai.Client) *PlanService {
	return &PlanService{DB: db, Provider: provider}
}

// Generate produces a validated plan skeleton for the profile, grounded on
// the referenced document. Costs one rate-limited provider call, two when
// the first response violates the curriculum shape.
func (s *PlanService) Generate(ctx context.Context, profile *domain.LearnerProfile, doc *genai.DocumentRef) (*domain.PlanSkeleton, error) {
	tr := otel.Tracer("services/PlanService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("session.id", profile.SessionID),
			attribute.String("profile.experience", profile.ExperienceLevel),
		),
	)
	defer span.End()

	skeleton, reason, err := s.generateOnce(ctx, planUserPrompt(profile), doc)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return skeleton, nil
	}

	// Exactly one corrective retry on shape violations.
	span.AddEvent("plan shape invalid, retrying", trace.WithAttributes(attribute.String("reason", reason)))
	skeleton, reason, err = s.generateOnce(ctx, planUserPrompt(profile)+planCorrectiveInstruction(reason), doc)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrPlanInvalid, reason)
	}
	return skeleton, nil
}

// generateOnce performs one provider call and shape check. A non-empty
// reason means the response parsed but violated the curriculum shape.
func (s *PlanService) generateOnce(ctx context.Context, user string, doc *genai.DocumentRef) (*domain.PlanSkeleton, string, error) {
	raw, err := s.Provider.GenerateJSON(ctx, planSystemPrompt, user, doc, planSchema())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var skeleton domain.PlanSkeleton
	if err := json.Unmarshal(raw, &skeleton); err != nil {
		return nil, "response was not the requested JSON structure", nil
	}
	if reason := validateSkeleton(&skeleton); reason != "" {
		return nil, reason, nil
	}
	return &skeleton, "", nil
}

// validateSkeleton checks the curriculum shape invariants and returns an
// empty string when the skeleton is valid.
func validateSkeleton(p *domain.PlanSkeleton) string {
	if len(p.Stages) != planStageCount {
		return fmt.Sprintf("expected exactly %d stages, got %d", planStageCount, len(p.Stages))
	}
	for si, st := range p.Stages {
		if len(st.Modules) == 0 {
			return fmt.Sprintf("stage %d has no modules", si+1)
		}
		for mi, m := range st.Modules {
			if len(m.Submodules) == 0 {
				return fmt.Sprintf("stage %d module %d has no submodules", si+1, mi+1)
			}
			for smi, sm := range m.Submodules {
				if len(sm.SlideTitles) == 0 {
					return fmt.Sprintf("stage %d module %d submodule %d has no slide titles", si+1, mi+1, smi+1)
				}
			}
		}
	}
	return ""
}

// Persist stores the skeleton as the session's plan. When a concurrent
// writer already created one, the existing plan is returned instead: plan
// creation is idempotent per session.
func (s *PlanService) Persist(ctx context.Context, sessionID string, skeleton *domain.PlanSkeleton) (*domain.TrainingPlan, error) {
	tr := otel.Tracer("services/PlanService")
	ctx, span := tr.Start(ctx, "Persist",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	plan, err := repo.CreatePlanTree(ctx, s.DB, sessionID, skeleton)
	if err == nil {
		return plan, nil
	}
	if errors.Is(err, repo.ErrDuplicate) {
		span.AddEvent("plan already exists, converging")
		return s.GetBySession(ctx, sessionID)
	}
	return nil, err
}

// GetBySession returns the session's plan or ErrPlanNotFound.
func (s *PlanService) GetBySession(ctx context.Context, sessionID string) (*domain.TrainingPlan, error) {
	plan, err := repo.GetPlanBySession(ctx, s.DB, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	return plan, err
}

// Tree returns the full curriculum read model for the session's plan.
func (s *PlanService) Tree(ctx context.Context, sessionID string) (*repo.PlanTree, error) {
	plan, err := s.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return repo.LoadPlanTree(ctx, s.DB, plan.ID)
}

// Progress returns the aggregate fill statistics for the session's plan.
func (s *PlanService) Progress(ctx context.Context, sessionID string) (*domain.TrainingPlan, repo.PlanProgress, error) {
	plan, err := s.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, repo.PlanProgress{}, err
	}
	progress, err := repo.PlanStats(ctx, s.DB, plan)
	return plan, progress, err
}
