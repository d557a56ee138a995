package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

func TestFillSlide_OnceThenDuplicate(t *testing.T) {
	db := newDB(t, "slide_fill")
	_, plan := seedSessionWithPlan(t, db)
	ctx := context.Background()

	slide, err := GetSlideByPath(ctx, db, plan.ID, "1.1.1.1")
	if err != nil {
		t.Fatalf("GetSlideByPath: %v", err)
	}

	v, err := FillSlide(ctx, db, slide.ID, "# Common Hazards\n...")
	if err != nil {
		t.Fatalf("FillSlide: %v", err)
	}
	if v.Kind != domain.VersionInitial {
		t.Fatalf("kind = %q", v.Kind)
	}

	got, err := GetSlide(ctx, db, slide.ID)
	if err != nil {
		t.Fatalf("GetSlide: %v", err)
	}
	if !got.Filled || got.CurrentVersionID == nil || *got.CurrentVersionID != v.ID {
		t.Fatalf("fill not applied: %+v", got)
	}

	// Second fill loses the guarded update and must roll back its version.
	if _, err := FillSlide(ctx, db, slide.ID, "other content"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	versions, err := ListSlideVersions(ctx, db, slide.ID)
	if err != nil {
		t.Fatalf("ListSlideVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("losing fill leaked a version: %d", len(versions))
	}
}

func TestAppendSlideVersion_MovesCurrentPointer(t *testing.T) {
	db := newDB(t, "slide_append")
	_, plan := seedSessionWithPlan(t, db)
	ctx := context.Background()

	slide, err := GetSlideByPath(ctx, db, plan.ID, "1.1.1.2")
	if err != nil {
		t.Fatalf("GetSlideByPath: %v", err)
	}
	if _, err := FillSlide(ctx, db, slide.ID, "original"); err != nil {
		t.Fatalf("FillSlide: %v", err)
	}

	v2, err := AppendSlideVersion(ctx, db, slide.ID, domain.MutationSimplify, "simpler")
	if err != nil {
		t.Fatalf("AppendSlideVersion: %v", err)
	}

	got, err := GetSlide(ctx, db, slide.ID)
	if err != nil {
		t.Fatalf("GetSlide: %v", err)
	}
	if got.CurrentVersionID == nil || *got.CurrentVersionID != v2.ID {
		t.Fatalf("current pointer not moved: %+v", got)
	}

	cur, err := CurrentContent(ctx, db, got)
	if err != nil || cur.Content != "simpler" {
		t.Fatalf("CurrentContent = %+v err=%v", cur, err)
	}

	versions, err := ListSlideVersions(ctx, db, slide.ID)
	if err != nil {
		t.Fatalf("ListSlideVersions: %v", err)
	}
	if len(versions) != 2 || versions[0].Kind != domain.VersionInitial || versions[1].Kind != domain.MutationSimplify {
		t.Fatalf("versions = %+v", versions)
	}
}

func TestAppendSlideVersion_UnfilledSlide(t *testing.T) {
	db := newDB(t, "slide_append_unfilled")
	_, plan := seedSessionWithPlan(t, db)
	ctx := context.Background()

	slide, err := GetSlideByPath(ctx, db, plan.ID, "2.1.1.1")
	if err != nil {
		t.Fatalf("GetSlideByPath: %v", err)
	}
	if _, err := AppendSlideVersion(ctx, db, slide.ID, domain.MutationExpand, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unfilled slide, got %v", err)
	}
	// The rejected version must not survive the rollback.
	versions, err := ListSlideVersions(ctx, db, slide.ID)
	if err != nil || len(versions) != 0 {
		t.Fatalf("versions = %+v err=%v", versions, err)
	}
}

func TestCurrentContent_UnfilledIsNotFound(t *testing.T) {
	db := newDB(t, "slide_current_unfilled")
	_, plan := seedSessionWithPlan(t, db)
	ctx := context.Background()

	slide, err := GetSlideByPath(ctx, db, plan.ID, "2.1.1.2")
	if err != nil {
		t.Fatalf("GetSlideByPath: %v", err)
	}
	if _, err := CurrentContent(ctx, db, slide); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountFilledSlides(t *testing.T) {
	db := newDB(t, "slide_count")
	_, plan := seedSessionWithPlan(t, db)
	ctx := context.Background()

	n, err := CountFilledSlides(ctx, db, plan.ID)
	if err != nil || n != 0 {
		t.Fatalf("initial count = %d err=%v", n, err)
	}

	for _, path := range []string{"1.1.1.1", "1.1.1.2"} {
		slide, err := GetSlideByPath(ctx, db, plan.ID, path)
		if err != nil {
			t.Fatalf("GetSlideByPath(%s): %v", path, err)
		}
		if _, err := FillSlide(ctx, db, slide.ID, "content"); err != nil {
			t.Fatalf("FillSlide(%s): %v", path, err)
		}
	}

	n, err = CountFilledSlides(ctx, db, plan.ID)
	if err != nil || n != 2 {
		t.Fatalf("count after fills = %d err=%v", n, err)
	}
}

func TestGetSlideByPath_Missing(t *testing.T) {
	db := newDB(t, "slide_get_missing")
	_, plan := seedSessionWithPlan(t, db)

	if _, err := GetSlideByPath(context.Background(), db, plan.ID, "9.9.9.9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
