package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/services"
)

func validSurveyBody(trainingID string) map[string]any {
	return map[string]any{
		"training_id":      trainingID,
		"experience_level": "beginner",
		"learning_style":   "visual",
		"job_role":         "operator",
		"language":         "en",
		"duration_minutes": 60,
	}
}

func TestCreateSession(t *testing.T) {
	var gotLearner string
	var gotSurvey services.SurveyInput
	sessions := &fakeSessions{
		createFn: func(_ context.Context, trainingID, learnerID string, survey services.SurveyInput) (*domain.LearnerSession, *domain.LearnerProfile, error) {
			gotLearner, gotSurvey = learnerID, survey
			return &domain.LearnerSession{ID: testUUID2, TrainingID: trainingID, LearnerID: learnerID},
				&domain.LearnerProfile{SessionID: testUUID2, ExperienceLevel: survey.ExperienceLevel}, nil
		},
	}
	r := newTestRouter(New(nil, sessions, nil, nil, nil, nil))

	w := doJSON(t, r, http.MethodPost, "/sessions", validSurveyBody(testUUID))
	mustStatus(t, w, http.StatusCreated)

	if gotLearner != "demo-learner" {
		t.Fatalf("learner = %q", gotLearner)
	}
	if gotSurvey.ExperienceLevel != "beginner" || gotSurvey.LearningStyle != "visual" {
		t.Fatalf("survey = %+v", gotSurvey)
	}
	var out CreateSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Session == nil || out.Profile == nil {
		t.Fatalf("response missing session or profile: %s", w.Body.String())
	}
}

func TestCreateSession_Validation(t *testing.T) {
	r := newTestRouter(New(nil, &fakeSessions{}, nil, nil, nil, nil))

	bad := []map[string]any{
		{},
		{"training_id": "not-a-uuid", "experience_level": "beginner", "learning_style": "visual"},
		{"training_id": testUUID, "experience_level": "expert", "learning_style": "visual"},
		{"training_id": testUUID, "experience_level": "beginner"},
		{"training_id": testUUID, "experience_level": "beginner", "learning_style": "visual", "duration_minutes": 5000},
	}
	for i, body := range bad {
		w := doJSON(t, r, http.MethodPost, "/sessions", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400 (body %s)", i, w.Code, w.Body.String())
		}
	}
}

func TestCreateSession_TrainingMissing(t *testing.T) {
	sessions := &fakeSessions{
		createFn: func(context.Context, string, string, services.SurveyInput) (*domain.LearnerSession, *domain.LearnerProfile, error) {
			return nil, nil, services.ErrTrainingNotFound
		},
	}
	r := newTestRouter(New(nil, sessions, nil, nil, nil, nil))

	w := doJSON(t, r, http.MethodPost, "/sessions", validSurveyBody(testUUID))
	mustStatus(t, w, http.StatusNotFound)
	if e := decodeError(t, w); e.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestGetSession(t *testing.T) {
	sessions := &fakeSessions{
		getFn: func(_ context.Context, id string) (*domain.LearnerSession, error) {
			if id != testUUID2 {
				return nil, services.ErrSessionNotFound
			}
			return &domain.LearnerSession{ID: id}, nil
		},
	}
	r := newTestRouter(New(nil, sessions, nil, nil, nil, nil))

	mustStatus(t, doJSON(t, r, http.MethodGet, "/sessions/"+testUUID2, nil), http.StatusOK)
	mustStatus(t, doJSON(t, r, http.MethodGet, "/sessions/"+testUUID, nil), http.StatusNotFound)
	mustStatus(t, doJSON(t, r, http.MethodGet, "/sessions/xyz", nil), http.StatusBadRequest)
}

func TestGetProfile(t *testing.T) {
	sessions := &fakeSessions{
		profileFn: func(_ context.Context, sessionID string) (*domain.LearnerProfile, error) {
			return &domain.LearnerProfile{SessionID: sessionID, EnrichedNotes: "likes diagrams"}, nil
		},
	}
	r := newTestRouter(New(nil, sessions, nil, nil, nil, nil))

	w := doJSON(t, r, http.MethodGet, "/sessions/"+testUUID2+"/profile", nil)
	mustStatus(t, w, http.StatusOK)
	var profile domain.LearnerProfile
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.EnrichedNotes != "likes diagrams" {
		t.Fatalf("profile = %+v", profile)
	}
}
