package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
	"github.com/adaptive-elearn/go-training-backend/internal/services"
)

func TestEnsurePlan(t *testing.T) {
	orch := &fakeOrch{
		ensurePlanFn: func(_ context.Context, sessionID string) (*domain.TrainingPlan, error) {
			return &domain.TrainingPlan{ID: testUUID, SessionID: sessionID, Title: "Course"}, nil
		},
	}
	r := newTestRouter(New(nil, nil, nil, nil, orch, nil))

	w := doJSON(t, r, http.MethodPost, "/sessions/"+testUUID2+"/plan", nil)
	mustStatus(t, w, http.StatusOK)
	var plan domain.TrainingPlan
	if err := json.Unmarshal(w.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plan.SessionID != testUUID2 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestEnsurePlan_GenerationErrors(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		wantCode string
	}{
		{services.ErrPlanInvalid, http.StatusBadGateway, ErrCodePlanInvalid},
		{services.ErrGenerationFailed, http.StatusBadGateway, ErrCodeGenerationFailed},
		{services.ErrDocumentMissing, http.StatusConflict, ErrCodeDocumentMissing},
		{services.ErrSessionNotFound, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range cases {
		orch := &fakeOrch{
			ensurePlanFn: func(context.Context, string) (*domain.TrainingPlan, error) {
				return nil, tc.err
			},
		}
		r := newTestRouter(New(nil, nil, nil, nil, orch, nil))
		w := doJSON(t, r, http.MethodPost, "/sessions/"+testUUID2+"/plan", nil)
		mustStatus(t, w, tc.status)
		if e := decodeError(t, w); e.Code != tc.wantCode {
			t.Errorf("err %v: code = %q, want %q", tc.err, e.Code, tc.wantCode)
		}
	}
}

func planDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Slide{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestGetPlan_ETag(t *testing.T) {
	plans := &fakePlans{
		treeFn: func(_ context.Context, sessionID string) (*repo.PlanTree, error) {
			return &repo.PlanTree{Plan: domain.TrainingPlan{ID: testUUID, SessionID: sessionID}}, nil
		},
	}
	r := newTestRouter(New(nil, nil, plans, nil, nil, planDB(t, "planhandler_etag")))

	w := doJSON(t, r, http.MethodGet, "/sessions/"+testUUID2+"/plan", nil)
	mustStatus(t, w, http.StatusOK)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+testUUID2+"/plan", nil)
	req.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	mustStatus(t, w2, http.StatusNotModified)
	if w2.Body.Len() != 0 {
		t.Fatalf("304 carried a body: %s", w2.Body.String())
	}
}

func TestGetPlan_NoPlan(t *testing.T) {
	plans := &fakePlans{
		treeFn: func(context.Context, string) (*repo.PlanTree, error) {
			return nil, services.ErrPlanNotFound
		},
	}
	r := newTestRouter(New(nil, nil, plans, nil, nil, nil))

	w := doJSON(t, r, http.MethodGet, "/sessions/"+testUUID2+"/plan", nil)
	mustStatus(t, w, http.StatusNotFound)
}

func TestGetPlan_WorksWithoutDB(t *testing.T) {
	plans := &fakePlans{
		treeFn: func(_ context.Context, sessionID string) (*repo.PlanTree, error) {
			return &repo.PlanTree{Plan: domain.TrainingPlan{ID: testUUID}}, nil
		},
	}
	r := newTestRouter(New(nil, nil, plans, nil, nil, nil))

	w := doJSON(t, r, http.MethodGet, "/sessions/"+testUUID2+"/plan", nil)
	mustStatus(t, w, http.StatusOK)
	if w.Header().Get("ETag") != "" {
		t.Fatal("ETag set without a DB for slide stats")
	}
}

func TestGetPlanSummary(t *testing.T) {
	plans := &fakePlans{
		progressFn: func(_ context.Context, sessionID string) (*domain.TrainingPlan, repo.PlanProgress, error) {
			return &domain.TrainingPlan{ID: testUUID, SessionID: sessionID},
				repo.PlanProgress{SlideCount: 10, FilledSlides: 4, PercentFilled: 40}, nil
		},
	}
	r := newTestRouter(New(nil, nil, plans, nil, nil, nil))

	w := doJSON(t, r, http.MethodGet, "/sessions/"+testUUID2+"/plan/summary", nil)
	mustStatus(t, w, http.StatusOK)
	var out PlanSummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Progress.PercentFilled != 40 {
		t.Fatalf("progress = %+v", out.Progress)
	}
}

func TestPlanEndpoints_InvalidSessionID(t *testing.T) {
	r := newTestRouter(New(nil, nil, &fakePlans{}, nil, &fakeOrch{}, nil))

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/sessions/bad/plan"},
		{http.MethodGet, "/sessions/bad/plan"},
		{http.MethodGet, "/sessions/bad/plan/summary"},
	} {
		w := doJSON(t, r, req.method, req.path, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", req.method, req.path, w.Code)
		}
	}
}
