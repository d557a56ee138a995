package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// enrichEvery triggers an enrichment pass after this many session turns.
const enrichEvery = 6

// ProfileService maintains learner profiles. Beyond the survey captured at
// session creation it periodically distills the conversation history into
// short observations appended to the profile, so later prompts adapt to
// what the learner actually struggles with.
type ProfileService struct {
	DB       *gorm.DB
	Provider genai.Client
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB, provider genai.Client) *ProfileService {
	return &ProfileService{DB: db, Provider: provider}
}

// MaybeEnrich runs an enrichment pass when the session has accumulated a
// multiple of enrichEvery turns. Best effort: callers invoke it after a
// conversation exchange and ignore the outcome; failures are logged and
// never surface to the learner.
func (s *ProfileService) MaybeEnrich(ctx context.Context, sessionID string) {
	count, err := repo.CountSessionTurns(s.DB.WithContext(ctx), sessionID)
	if err != nil || count == 0 || count%enrichEvery != 0 {
		return
	}
	if err := s.Enrich(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("profile enrichment skipped")
	}
}

// Enrich asks the provider for up to three observations about the learner
// based on recent conversation turns and appends them to the profile notes.
func (s *ProfileService) Enrich(ctx context.Context, sessionID string) error {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Enrich",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	profile, err := repo.GetProfile(ctx, s.DB, sessionID)
	if err != nil {
		return err
	}
	turns, err := repo.RecentSessionTurns(s.DB.WithContext(ctx), sessionID, 2*enrichEvery)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	raw, err := s.Provider.GenerateJSON(ctx, enrichmentSystemPrompt, enrichmentUserPrompt(profile, turns), nil, enrichmentSchema())
	if err != nil {
		return err
	}
	var out struct {
		Observations []string `json:"observations"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}

	var lines []string
	for _, obs := range out.Observations {
		obs = strings.TrimSpace(obs)
		if obs != "" {
			lines = append(lines, obs)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return repo.AppendProfileNotes(ctx, s.DB, sessionID, strings.Join(lines, "\n"))
}
