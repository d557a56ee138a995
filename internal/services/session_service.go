package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// SurveyInput captures the onboarding survey answered when a learner
// starts a session.
type SurveyInput struct {
	ExperienceLevel string
	LearningStyle   string
	JobRole         string
	Sector          string
	Country         string
	Language        string
	Objectives      string
	DurationMinutes int
}

var experienceLevels = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

// SessionService manages learner sessions and their profiles.
type SessionService struct {
	DB *gorm.DB
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

// Create starts a session for a learner on a training, storing the survey
// answers as the session's profile. Session and profile are written in one
// transaction.
func (s *SessionService) Create(ctx context.Context, trainingID, learnerID string, survey SurveyInput) (*domain.LearnerSession, *domain.LearnerProfile, error) {
	if _, err := repo.GetTraining(ctx, s.DB, trainingID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrTrainingNotFound
		}
		return nil, nil, err
	}

	level := strings.ToLower(strings.TrimSpace(survey.ExperienceLevel))
	if !experienceLevels[level] {
		return nil, nil, errors.New("experience_level must be beginner, intermediate or advanced")
	}
	lang := strings.TrimSpace(survey.Language)
	if lang == "" {
		lang = "en"
	}

	profile := domain.LearnerProfile{
		ExperienceLevel: level,
		LearningStyle:   strings.TrimSpace(survey.LearningStyle),
		JobRole:         strings.TrimSpace(survey.JobRole),
		Sector:          strings.TrimSpace(survey.Sector),
		Country:         strings.TrimSpace(survey.Country),
		Language:        lang,
		Objectives:      strings.TrimSpace(survey.Objectives),
		DurationMinutes: survey.DurationMinutes,
	}
	session, err := repo.CreateSession(ctx, s.DB, trainingID, learnerID, profile)
	if err != nil {
		return nil, nil, err
	}
	stored, err := repo.GetProfile(ctx, s.DB, session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, stored, nil
}

// Get fetches a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.LearnerSession, error) {
	session, err := repo.GetSession(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// Profile fetches the profile attached to a session.
func (s *SessionService) Profile(ctx context.Context, sessionID string) (*domain.LearnerProfile, error) {
	p, err := repo.GetProfile(ctx, s.DB, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return p, err
}
