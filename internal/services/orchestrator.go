// Package services – Orchestrator
//
// The orchestrator is the single entry point handlers call for anything
// that may trigger a provider round-trip. It owns the cross-cutting
// sequencing that no individual service should: resolving the session's
// document into a prompt attachment (cached handle or inline fallback),
// holding the per-training rate limit, and enforcing the generate-once
// guarantee for plans and slides.
//
// Generation deduplication is layered. A singleflight group collapses
// concurrent identical requests inside one process; the database's unique
// constraints catch races across processes, surfaced by the repo layer as
// ErrDuplicate, which the orchestrator converts into success by re-reading
// the winner's row.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adaptive-elearn/go-training-backend/internal/contentcache"
	"github.com/adaptive-elearn/go-training-backend/internal/docstore"
	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	"github.com/adaptive-elearn/go-training-backend/internal/ratelimit"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// Orchestrator coordinates plan and slide generation across the cache,
// the rate limiter and the generation services.
type Orchestrator struct {
	DB       *gorm.DB
	Plans    *PlanService
	Slides   *SlideService
	Profiles *ProfileService
	Cache    *contentcache.Cache
	Limiter  *ratelimit.Limiter
	Docs     *docstore.Store

	log zerolog.Logger
	sf  singleflight.Group
}

// NewOrchestrator wires the orchestrator from its collaborators.
func NewOrchestrator(db *gorm.DB, plans *PlanService, slides *SlideService, profiles *ProfileService, cache *contentcache.Cache, limiter *ratelimit.Limiter, docs *docstore.Store, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		DB:       db,
		Plans:    plans,
		Slides:   slides,
		Profiles: profiles,
		Cache:    cache,
		Limiter:  limiter,
		Docs:     docs,
		log:      log,
	}
}

// sessionContext is everything resolved once per orchestrated operation:
// the session, its profile, the source document and the prompt attachment
// derived from the cache layer.
type sessionContext struct {
	Session *domain.LearnerSession
	Profile *domain.LearnerProfile
	Doc     *domain.SourceDocument
	Ref     *genai.DocumentRef
}

// EnsurePlan returns the session's training plan, generating and persisting
// it on first call. Concurrent calls for the same session converge on one
// generation and one stored plan.
func (o *Orchestrator) EnsurePlan(ctx context.Context, sessionID string) (*domain.TrainingPlan, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "EnsurePlan",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	v, err, _ := o.sf.Do("plan:"+sessionID, func() (any, error) {
		return o.ensurePlan(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.TrainingPlan), nil
}

func (o *Orchestrator) ensurePlan(ctx context.Context, sessionID string) (*domain.TrainingPlan, error) {
	plan, err := o.Plans.GetBySession(ctx, sessionID)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}

	sc, err := o.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := o.Limiter.Wait(ctx, sc.Session.TrainingID); err != nil {
		return nil, err
	}

	skeleton, err := o.Plans.Generate(ctx, sc.Profile, sc.Ref)
	if err != nil {
		return nil, err
	}
	return o.Plans.Persist(ctx, sessionID, skeleton)
}

// EnsureSlide returns the slide at the given path with its current content,
// generating the content on first access. The slide is generated at most
// once; losers of a concurrent race receive the winner's content.
func (o *Orchestrator) EnsureSlide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, *domain.SlideVersion, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "EnsureSlide",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("slide.path", pathKey),
		),
	)
	defer span.End()

	pos, err := ParsePosition(pathKey)
	if err != nil {
		return nil, nil, err
	}
	// Lookups use the canonical path so "1.01.1.1" resolves the same
	// slide as "1.1.1.1".
	pathKey = pos.Key()
	plan, err := o.Plans.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	slide, err := o.getSlide(ctx, plan.ID, pathKey)
	if err != nil {
		return nil, nil, err
	}
	if slide.Filled {
		version, err := repo.CurrentContent(ctx, o.DB, slide)
		if err != nil {
			return nil, nil, err
		}
		return slide, version, nil
	}

	type filled struct {
		Slide   *domain.Slide
		Version *domain.SlideVersion
	}
	v, err, _ := o.sf.Do("slide:"+plan.ID+":"+pathKey, func() (any, error) {
		s, ver, err := o.fillSlide(ctx, sessionID, plan.ID, pathKey)
		if err != nil {
			return nil, err
		}
		return &filled{Slide: s, Version: ver}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	f := v.(*filled)
	return f.Slide, f.Version, nil
}

func (o *Orchestrator) fillSlide(ctx context.Context, sessionID, planID, pathKey string) (*domain.Slide, *domain.SlideVersion, error) {
	// Re-check under the flight: another request may have filled the
	// slide between the caller's check and this one.
	slide, err := o.getSlide(ctx, planID, pathKey)
	if err != nil {
		return nil, nil, err
	}
	if slide.Filled {
		version, err := repo.CurrentContent(ctx, o.DB, slide)
		if err != nil {
			return nil, nil, err
		}
		return slide, version, nil
	}

	sc, err := o.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if err := o.Limiter.Wait(ctx, sc.Session.TrainingID); err != nil {
		return nil, nil, err
	}

	history, err := repo.RecentSessionTurns(o.DB.WithContext(ctx), sessionID, historyWindow)
	if err != nil {
		return nil, nil, err
	}
	content, err := o.Slides.GenerateContent(ctx, slide, sc.Profile, sc.Ref, history)
	if err != nil {
		return nil, nil, err
	}

	version, err := repo.FillSlide(ctx, o.DB, slide.ID, content)
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent process filled it first; serve the stored row.
		o.log.Debug().Str("slide_id", slide.ID).Msg("slide filled concurrently, converging")
		winner, err := o.getSlide(ctx, planID, pathKey)
		if err != nil {
			return nil, nil, err
		}
		version, err := repo.CurrentContent(ctx, o.DB, winner)
		if err != nil {
			return nil, nil, err
		}
		return winner, version, nil
	}
	if err != nil {
		return nil, nil, err
	}
	slide.Filled = true
	slide.CurrentVersionID = &version.ID
	return slide, version, nil
}

// ApplyMutation generates a mutated variant of a filled slide and makes it
// the current version.
func (o *Orchestrator) ApplyMutation(ctx context.Context, sessionID, pathKey, kind string) (*domain.Slide, *domain.SlideVersion, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "ApplyMutation",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("slide.path", pathKey),
			attribute.String("mutation.kind", kind),
		),
	)
	defer span.End()

	slide, sc, err := o.resolveSlide(ctx, sessionID, pathKey)
	if err != nil {
		return nil, nil, err
	}
	if err := o.Limiter.Wait(ctx, sc.Session.TrainingID); err != nil {
		return nil, nil, err
	}
	version, err := o.Slides.Mutate(ctx, slide, kind, sc.Profile, sc.Ref)
	if err != nil {
		return nil, nil, err
	}
	slide.CurrentVersionID = &version.ID
	return slide, version, nil
}

// AskQuestion answers a learner question about a slide and records the
// exchange. After the answer is stored it may trigger a background profile
// enrichment pass.
func (o *Orchestrator) AskQuestion(ctx context.Context, sessionID, pathKey, question string) (*domain.ConversationTurn, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "AskQuestion",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("slide.path", pathKey),
		),
	)
	defer span.End()

	slide, sc, err := o.resolveSlide(ctx, sessionID, pathKey)
	if err != nil {
		return nil, err
	}
	if err := o.Limiter.Wait(ctx, sc.Session.TrainingID); err != nil {
		return nil, err
	}
	turn, err := o.Slides.Answer(ctx, sessionID, slide, sc.Profile, sc.Ref, question)
	if err != nil {
		return nil, err
	}

	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		o.Profiles.MaybeEnrich(bg, sessionID)
	}()
	return turn, nil
}

// Slide resolves the slide addressed by pathKey within the session's plan
// without triggering generation.
func (o *Orchestrator) Slide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, error) {
	pos, err := ParsePosition(pathKey)
	if err != nil {
		return nil, err
	}
	plan, err := o.Plans.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return o.getSlide(ctx, plan.ID, pos.Key())
}

// resolveSlide loads the slide addressed by pathKey within the session's
// plan together with the resolved session context.
func (o *Orchestrator) resolveSlide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, *sessionContext, error) {
	pos, err := ParsePosition(pathKey)
	if err != nil {
		return nil, nil, err
	}
	plan, err := o.Plans.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	slide, err := o.getSlide(ctx, plan.ID, pos.Key())
	if err != nil {
		return nil, nil, err
	}
	sc, err := o.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return slide, sc, nil
}

func (o *Orchestrator) getSlide(ctx context.Context, planID, pathKey string) (*domain.Slide, error) {
	slide, err := repo.GetSlideByPath(ctx, o.DB, planID, pathKey)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSlideNotFound
	}
	return slide, err
}

// resolveSession loads the session, its profile and its source document,
// then turns the document into a prompt attachment. A cache hit yields a
// provider-side handle; anything else falls back to re-submitting the
// document bytes inline, logged so cache trouble is visible.
func (o *Orchestrator) resolveSession(ctx context.Context, sessionID string) (*sessionContext, error) {
	session, err := repo.GetSession(ctx, o.DB, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	profile, err := repo.GetProfile(ctx, o.DB, sessionID)
	if err != nil {
		return nil, err
	}
	doc, err := repo.LatestDocument(ctx, o.DB, session.TrainingID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDocumentMissing
	}
	if err != nil {
		return nil, err
	}
	data, err := o.Docs.ReadBytes(doc.StoragePath)
	if err != nil {
		return nil, err
	}

	res := o.Cache.GetOrCreate(ctx, doc, data)
	ref := &genai.DocumentRef{MimeType: doc.MimeType}
	if res.State == contentcache.Hit {
		ref.CacheName = res.Entry.CacheName
	} else {
		o.log.Warn().
			Str("training_id", session.TrainingID).
			Str("content_hash", doc.ContentHash).
			Msg("document cache unavailable, sending content inline")
		ref.InlineData = data
	}
	return &sessionContext{Session: session, Profile: profile, Doc: doc, Ref: ref}, nil
}
