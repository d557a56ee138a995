// Package services – SlideService
//
// This file implements per-slide content generation: the lazy initial fill
// requested by the orchestrator, explicit learner-requested mutations
// (simplify, expand, chart, image), and slide-scoped question answering.
//
// The fill itself is only the provider call plus prompt assembly; the
// at-most-once discipline around it (singleflight, guarded transactional
// write, convergence on conflict) lives in the orchestrator and the repo
// layer. Mutations are deliberately outside that discipline: learners may
// invoke them repeatedly, and every invocation appends a new version.
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

const (
	roleLearner   = "learner"
	roleAssistant = "assistant"

	// historyWindow bounds how many prior turns feed a prompt.
	historyWindow = 12
)

// SlideService generates slide content and conversation answers.
type SlideService struct {
	DB       *gorm.DB
	Provider genai.Client

	// MaxQuestionRunes caps learner questions; 0 disables the check.
	MaxQuestionRunes int
}

// NewSlideService constructs a SlideService with default guards.
func NewSlideService(db *gorm.DB, provider genai.Client) *SlideService {
	return &SlideService{DB: db, Provider: provider, MaxQuestionRunes: 2000}
}

// GenerateContent produces the markdown body for an unfilled slide. Pure
// generation: persistence and the generate-once guarantee are the caller's
// responsibility.
func (s *SlideService) GenerateContent(ctx context.Context, slide *domain.Slide, profile *domain.LearnerProfile, doc *genai.DocumentRef, history []domain.ConversationTurn) (string, error) {
	tr := otel.Tracer("services/SlideService")
	ctx, span := tr.Start(ctx, "GenerateContent",
		trace.WithAttributes(
			attribute.String("slide.id", slide.ID),
			attribute.String("slide.path", slide.PathKey),
		),
	)
	defer span.End()

	pos, err := s.resolvePosition(ctx, slide)
	if err != nil {
		return "", err
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	content, err := s.Provider.GenerateText(ctx, slideSystemPrompt, slideUserPrompt(slide, pos, profile, history), doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty slide content", ErrGenerationFailed)
	}
	return content, nil
}

// Mutate applies one explicit content mutation to a filled slide and
// returns the new version. Repeatable by design; each call appends a
// version and moves the current pointer.
func (s *SlideService) Mutate(ctx context.Context, slide *domain.Slide, kind string, profile *domain.LearnerProfile, doc *genai.DocumentRef) (*domain.SlideVersion, error) {
	tr := otel.Tracer("services/SlideService")
	ctx, span := tr.Start(ctx, "Mutate",
		trace.WithAttributes(
			attribute.String("slide.id", slide.ID),
			attribute.String("mutation.kind", kind),
		),
	)
	defer span.End()

	if !slide.Filled {
		return nil, ErrSlideNotFilled
	}
	current, err := repo.CurrentContent(ctx, s.DB, slide)
	if err != nil {
		return nil, ErrSlideNotFilled
	}

	user, err := mutationUserPrompt(kind, slide, current.Content, profile)
	if err != nil {
		return nil, err
	}
	content, err := s.Provider.GenerateText(ctx, slideSystemPrompt, user, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty mutation result", ErrGenerationFailed)
	}

	return repo.AppendSlideVersion(ctx, s.DB, slide.ID, kind, content)
}

// Answer handles a learner question about a filled slide: it records the
// learner turn, asks the provider grounded on the document and the slide
// content, and records the assistant turn. Both turns are persisted
// together after generation succeeds, so a failed call leaves no
// half-written exchange.
func (s *SlideService) Answer(ctx context.Context, sessionID string, slide *domain.Slide, profile *domain.LearnerProfile, doc *genai.DocumentRef, question string) (*domain.ConversationTurn, error) {
	tr := otel.Tracer("services/SlideService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("slide.id", slide.ID),
		),
	)
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if s.MaxQuestionRunes > 0 && utf8.RuneCountInString(question) > s.MaxQuestionRunes {
		return nil, ErrQuestionTooLong
	}
	if !slide.Filled {
		return nil, ErrSlideNotFilled
	}
	current, err := repo.CurrentContent(ctx, s.DB, slide)
	if err != nil {
		return nil, ErrSlideNotFilled
	}

	history, err := repo.ListTurns(s.DB.WithContext(ctx), sessionID, slide.ID, historyWindow)
	if err != nil {
		return nil, err
	}

	reply, err := s.Provider.GenerateText(ctx, answerSystemPrompt, answerUserPrompt(question, slide, current.Content, profile, history), doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrGenerationFailed)
	}

	var assistant *domain.ConversationTurn
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateTurn(tx, sessionID, slide.ID, roleLearner, question); err != nil {
			return err
		}
		t, err := repo.CreateTurn(tx, sessionID, slide.ID, roleAssistant, reply)
		if err != nil {
			return err
		}
		assistant = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assistant, nil
}

// ListTurnsPage returns paginated turns for a slide within a session.
func (s *SlideService) ListTurnsPage(ctx context.Context, sessionID, slideID string, page, pageSize int) ([]domain.ConversationTurn, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountTurns(s.DB.WithContext(ctx), sessionID, slideID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ConversationTurn{}, 0, nil
	}
	items, err := repo.ListTurnsPage(s.DB.WithContext(ctx), sessionID, slideID, offset, pageSize)
	return items, total, err
}

// Versions returns every stored version of a slide, oldest first.
func (s *SlideService) Versions(ctx context.Context, slideID string) ([]domain.SlideVersion, error) {
	return repo.ListSlideVersions(ctx, s.DB, slideID)
}

// resolvePosition loads the slide's ancestor titles and sibling count so
// the prompt can state where in the curriculum the slide sits.
func (s *SlideService) resolvePosition(ctx context.Context, slide *domain.Slide) (slidePosition, error) {
	var sub domain.Submodule
	if err := s.DB.WithContext(ctx).Where("id = ?", slide.SubmoduleID).First(&sub).Error; err != nil {
		return slidePosition{}, err
	}
	var mod domain.Module
	if err := s.DB.WithContext(ctx).Where("id = ?", sub.ModuleID).First(&mod).Error; err != nil {
		return slidePosition{}, err
	}
	var stage domain.Stage
	if err := s.DB.WithContext(ctx).Where("id = ?", mod.StageID).First(&stage).Error; err != nil {
		return slidePosition{}, err
	}
	var total int64
	if err := s.DB.WithContext(ctx).Model(&domain.Slide{}).Where("submodule_id = ?", sub.ID).Count(&total).Error; err != nil {
		return slidePosition{}, err
	}
	return slidePosition{
		StageIndex:     stage.Position,
		StageTitle:     stage.Title,
		ModuleIndex:    mod.Position,
		ModuleTitle:    mod.Title,
		SubmoduleIndex: sub.Position,
		SubmoduleTitle: sub.Title,
		SlideIndex:     slide.Position,
		SlideTotal:     int(total),
	}, nil
}
