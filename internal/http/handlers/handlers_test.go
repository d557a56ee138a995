package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
	"github.com/adaptive-elearn/go-training-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

//
// Hand-rolled fakes with per-call function hooks. Unstubbed calls panic so
// a test that hits an unexpected dependency fails loudly.
//

type fakeTrainings struct {
	createFn    func(ctx context.Context, ownerID, name string) (*domain.Training, error)
	getFn       func(ctx context.Context, id string) (*domain.Training, error)
	uploadFn    func(ctx context.Context, trainingID, fileName, mimeType string, data []byte) (*domain.SourceDocument, error)
	documentsFn func(ctx context.Context, trainingID string) ([]domain.SourceDocument, error)
}

func (f *fakeTrainings) Create(ctx context.Context, ownerID, name string) (*domain.Training, error) {
	return f.createFn(ctx, ownerID, name)
}

func (f *fakeTrainings) Get(ctx context.Context, id string) (*domain.Training, error) {
	return f.getFn(ctx, id)
}

func (f *fakeTrainings) UploadDocument(ctx context.Context, trainingID, fileName, mimeType string, data []byte) (*domain.SourceDocument, error) {
	return f.uploadFn(ctx, trainingID, fileName, mimeType, data)
}

func (f *fakeTrainings) Documents(ctx context.Context, trainingID string) ([]domain.SourceDocument, error) {
	return f.documentsFn(ctx, trainingID)
}

type fakeSessions struct {
	createFn  func(ctx context.Context, trainingID, learnerID string, survey services.SurveyInput) (*domain.LearnerSession, *domain.LearnerProfile, error)
	getFn     func(ctx context.Context, id string) (*domain.LearnerSession, error)
	profileFn func(ctx context.Context, sessionID string) (*domain.LearnerProfile, error)
}

func (f *fakeSessions) Create(ctx context.Context, trainingID, learnerID string, survey services.SurveyInput) (*domain.LearnerSession, *domain.LearnerProfile, error) {
	return f.createFn(ctx, trainingID, learnerID, survey)
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*domain.LearnerSession, error) {
	return f.getFn(ctx, id)
}

func (f *fakeSessions) Profile(ctx context.Context, sessionID string) (*domain.LearnerProfile, error) {
	return f.profileFn(ctx, sessionID)
}

type fakePlans struct {
	treeFn     func(ctx context.Context, sessionID string) (*repo.PlanTree, error)
	progressFn func(ctx context.Context, sessionID string) (*domain.TrainingPlan, repo.PlanProgress, error)
}

func (f *fakePlans) Tree(ctx context.Context, sessionID string) (*repo.PlanTree, error) {
	return f.treeFn(ctx, sessionID)
}

func (f *fakePlans) Progress(ctx context.Context, sessionID string) (*domain.TrainingPlan, repo.PlanProgress, error) {
	return f.progressFn(ctx, sessionID)
}

type fakeSlides struct {
	versionsFn func(ctx context.Context, slideID string) ([]domain.SlideVersion, error)
	turnsFn    func(ctx context.Context, sessionID, slideID string, page, pageSize int) ([]domain.ConversationTurn, int64, error)
}

func (f *fakeSlides) Versions(ctx context.Context, slideID string) ([]domain.SlideVersion, error) {
	return f.versionsFn(ctx, slideID)
}

func (f *fakeSlides) ListTurnsPage(ctx context.Context, sessionID, slideID string, page, pageSize int) ([]domain.ConversationTurn, int64, error) {
	return f.turnsFn(ctx, sessionID, slideID, page, pageSize)
}

type fakeOrch struct {
	ensurePlanFn  func(ctx context.Context, sessionID string) (*domain.TrainingPlan, error)
	ensureSlideFn func(ctx context.Context, sessionID, pathKey string) (*domain.Slide, *domain.SlideVersion, error)
	slideFn       func(ctx context.Context, sessionID, pathKey string) (*domain.Slide, error)
	mutateFn      func(ctx context.Context, sessionID, pathKey, kind string) (*domain.Slide, *domain.SlideVersion, error)
	askFn         func(ctx context.Context, sessionID, pathKey, question string) (*domain.ConversationTurn, error)
}

func (f *fakeOrch) EnsurePlan(ctx context.Context, sessionID string) (*domain.TrainingPlan, error) {
	return f.ensurePlanFn(ctx, sessionID)
}

func (f *fakeOrch) EnsureSlide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, *domain.SlideVersion, error) {
	return f.ensureSlideFn(ctx, sessionID, pathKey)
}

func (f *fakeOrch) Slide(ctx context.Context, sessionID, pathKey string) (*domain.Slide, error) {
	return f.slideFn(ctx, sessionID, pathKey)
}

func (f *fakeOrch) ApplyMutation(ctx context.Context, sessionID, pathKey, kind string) (*domain.Slide, *domain.SlideVersion, error) {
	return f.mutateFn(ctx, sessionID, pathKey, kind)
}

func (f *fakeOrch) AskQuestion(ctx context.Context, sessionID, pathKey, question string) (*domain.ConversationTurn, error) {
	return f.askFn(ctx, sessionID, pathKey, question)
}

// newTestRouter mounts the handlers on the same routes the real router
// uses, without the middleware chain.
func newTestRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/trainings", h.CreateTraining)
	r.GET("/trainings/:id", h.GetTraining)
	r.POST("/trainings/:id/documents", h.UploadDocument)
	r.GET("/trainings/:id/documents", h.ListDocuments)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/sessions/:id/profile", h.GetProfile)
	r.POST("/sessions/:id/plan", h.EnsurePlan)
	r.GET("/sessions/:id/plan", h.GetPlan)
	r.GET("/sessions/:id/plan/summary", h.GetPlanSummary)
	r.GET("/sessions/:id/slides/:path", h.GetSlide)
	r.POST("/sessions/:id/slides/:path/mutations", h.MutateSlide)
	r.POST("/sessions/:id/slides/:path/questions", h.AskQuestion)
	r.GET("/sessions/:id/slides/:path/turns", h.ListTurns)
	r.GET("/sessions/:id/slides/:path/versions", h.ListVersions)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, w.Body.String())
	}
	return e
}

const (
	testUUID  = "123e4567-e89b-12d3-a456-426614174000"
	testUUID2 = "223e4567-e89b-12d3-a456-426614174000"
)

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}
