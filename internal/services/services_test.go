package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adaptive-elearn/go-training-backend/internal/contentcache"
	"github.com/adaptive-elearn/go-training-backend/internal/docstore"
	"github.com/adaptive-elearn/go-training-backend/internal/domain"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	"github.com/adaptive-elearn/go-training-backend/internal/ratelimit"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
)

// fakeProvider is a scripted genai.Client. Responses are popped per call;
// when the queue is empty a sensible default is returned. Safe for
// concurrent use so orchestrator races can be tested.
type fakeProvider struct {
	mu sync.Mutex

	textQueue []string
	textErr   error
	textCalls int

	jsonQueue []string
	jsonErr   error
	jsonCalls int

	cacheErr error

	lastSystem string
	lastUser   string
	lastDoc    *genai.DocumentRef
}

func (f *fakeProvider) GenerateText(_ context.Context, system, user string, doc *genai.DocumentRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	f.lastSystem, f.lastUser, f.lastDoc = system, user, doc
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.textQueue) > 0 {
		out := f.textQueue[0]
		f.textQueue = f.textQueue[1:]
		return out, nil
	}
	return "# Generated\n\ncontent", nil
}

func (f *fakeProvider) GenerateJSON(_ context.Context, system, user string, doc *genai.DocumentRef, _ *genai.Schema) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonCalls++
	f.lastSystem, f.lastUser, f.lastDoc = system, user, doc
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	if len(f.jsonQueue) > 0 {
		out := f.jsonQueue[0]
		f.jsonQueue = f.jsonQueue[1:]
		return json.RawMessage(out), nil
	}
	return json.RawMessage(validSkeletonJSON()), nil
}

func (f *fakeProvider) CreateCachedContent(_ context.Context, _ []byte, _ string, ttl time.Duration) (*genai.CachedContent, error) {
	f.mu.Lock()
	cacheErr := f.cacheErr
	f.mu.Unlock()
	if cacheErr != nil {
		return nil, cacheErr
	}
	return &genai.CachedContent{
		Name:       "cachedContents/test",
		Model:      "test-model",
		ExpireTime: time.Now().Add(ttl),
		TokenCount: 10,
	}, nil
}

func (f *fakeProvider) GetCachedContent(_ context.Context, name string) (*genai.CachedContent, error) {
	return &genai.CachedContent{Name: name, ExpireTime: time.Now().Add(time.Hour)}, nil
}

func (f *fakeProvider) UpdateCachedContentTTL(_ context.Context, name string, ttl time.Duration) (*genai.CachedContent, error) {
	return &genai.CachedContent{Name: name, ExpireTime: time.Now().Add(ttl)}, nil
}

func (f *fakeProvider) DeleteCachedContent(context.Context, string) error { return nil }

func (f *fakeProvider) calls() (text, jsonCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls, f.jsonCalls
}

// validSkeletonJSON returns a provider response obeying the curriculum
// shape: five stages, each with one module, one submodule, two slides.
func validSkeletonJSON() string {
	stages := make([]domain.StageSkeleton, planStageCount)
	for i := range stages {
		stages[i] = domain.StageSkeleton{
			Title: "Stage",
			Modules: []domain.ModuleSkeleton{{
				Title: "Module",
				Submodules: []domain.SubmoduleSkeleton{{
					Title:       "Submodule",
					SlideTitles: []string{"Slide A", "Slide B"},
				}},
			}},
		}
	}
	b, _ := json.Marshal(domain.PlanSkeleton{Title: "Course", Stages: stages})
	return string(b)
}

// invalidSkeletonJSON is parseable but violates the stage-count invariant.
func invalidSkeletonJSON() string {
	b, _ := json.Marshal(domain.PlanSkeleton{
		Title: "Broken",
		Stages: []domain.StageSkeleton{{
			Title: "Only one",
			Modules: []domain.ModuleSkeleton{{
				Title:      "M",
				Submodules: []domain.SubmoduleSkeleton{{Title: "S", SlideTitles: []string{"X"}}},
			}},
		}},
	})
	return string(b)
}

func mustSkeleton(t *testing.T, raw string) *domain.PlanSkeleton {
	t.Helper()
	var s domain.PlanSkeleton
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal skeleton: %v", err)
	}
	return &s
}

func newServiceDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testProfile(sessionID string) *domain.LearnerProfile {
	return &domain.LearnerProfile{
		SessionID:       sessionID,
		ExperienceLevel: "beginner",
		LearningStyle:   "visual",
		JobRole:         "operator",
		Language:        "en",
		DurationMinutes: 60,
	}
}

// seedSession creates training + stored document + session with profile,
// returning the session and training IDs.
func seedSession(t *testing.T, db *gorm.DB, store *docstore.Store) (sessionID, trainingID string) {
	t.Helper()
	ctx := context.Background()

	tr, err := repo.CreateTraining(ctx, db, "owner", "Course")
	if err != nil {
		t.Fatalf("CreateTraining: %v", err)
	}
	data := []byte("%PDF-1.7 source material")
	hash, path, err := store.Save(data, docstore.MimePDF)
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	if _, err := repo.CreateDocument(ctx, db, tr.ID, "doc.pdf", docstore.MimePDF, hash, path, int64(len(data))); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	s, err := repo.CreateSession(ctx, db, tr.ID, "learner-1", *testProfile(""))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s.ID, tr.ID
}

// newTestOrchestrator wires an orchestrator over the fake provider with a
// generous limiter so tests exercise logic, not pacing.
func newTestOrchestrator(t *testing.T, db *gorm.DB, fp *fakeProvider, store *docstore.Store) *Orchestrator {
	t.Helper()
	cache := contentcache.New(db, fp, 12*time.Hour, 10*time.Minute, zerolog.Nop())
	limiter := ratelimit.New(6000, 100, time.Second)
	return NewOrchestrator(
		db,
		NewPlanService(db, fp),
		NewSlideService(db, fp),
		NewProfileService(db, fp),
		cache,
		limiter,
		store,
		zerolog.Nop(),
	)
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	s, err := docstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("docstore.New: %v", err)
	}
	return s
}
