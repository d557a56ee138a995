package repo

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// newDB opens an isolated in-memory database with the full schema.
func newDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// testSkeleton builds a small but fully shaped curriculum: two stages, each
// with one module, one submodule, and two slides.
func testSkeleton() *domain.PlanSkeleton {
	return &domain.PlanSkeleton{
		Title: "Warehouse Safety",
		Stages: []domain.StageSkeleton{
			{
				Title: "Foundations",
				Modules: []domain.ModuleSkeleton{
					{
						Title: "Hazards",
						Submodules: []domain.SubmoduleSkeleton{
							{Title: "Recognition", SlideTitles: []string{"Common Hazards", "Warning Signs"}},
						},
					},
				},
			},
			{
				Title: "Practice",
				Modules: []domain.ModuleSkeleton{
					{
						Title: "Equipment",
						Submodules: []domain.SubmoduleSkeleton{
							{Title: "Forklifts", SlideTitles: []string{"Pre-checks", "Operation"}},
						},
					},
				},
			},
		},
	}
}

// seedSessionWithPlan creates a training, a session with profile, and a
// persisted plan tree, returning the session ID and plan.
func seedSessionWithPlan(t *testing.T, db *gorm.DB) (string, *domain.TrainingPlan) {
	t.Helper()
	ctx := context.Background()

	tr, err := CreateTraining(ctx, db, "owner-1", "Warehouse Safety")
	if err != nil {
		t.Fatalf("CreateTraining: %v", err)
	}
	s, err := CreateSession(ctx, db, tr.ID, "learner-1", domain.LearnerProfile{
		ExperienceLevel: "beginner",
		LearningStyle:   "visual",
		Language:        "en",
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	plan, err := CreatePlanTree(ctx, db, s.ID, testSkeleton())
	if err != nil {
		t.Fatalf("CreatePlanTree: %v", err)
	}
	return s.ID, plan
}

// mustSlide fetches a plan's slide by coordinate or fails the test.
func mustSlide(t *testing.T, db *gorm.DB, planID, pathKey string) *domain.Slide {
	t.Helper()
	s, err := GetSlideByPath(context.Background(), db, planID, pathKey)
	if err != nil {
		t.Fatalf("GetSlideByPath(%s): %v", pathKey, err)
	}
	return s
}
