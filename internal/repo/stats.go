// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for progress reporting and conditional responses (ETag generation) in the
// HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// PlanProgress summarizes how far a plan has been materialized.
type PlanProgress struct {
	StageCount     int   `json:"stage_count"`
	ModuleCount    int   `json:"module_count"`
	SubmoduleCount int   `json:"submodule_count"`
	SlideCount     int   `json:"slide_count"`
	FilledSlides   int64 `json:"filled_slides"`
	PercentFilled  int   `json:"percent_filled"`
}

// PlanStats returns the stored aggregate counts of a plan together with the
// number of slides that already have content.
func PlanStats(ctx context.Context, db *gorm.DB, plan *domain.TrainingPlan) (PlanProgress, error) {
	filled, err := CountFilledSlides(ctx, db, plan.ID)
	if err != nil {
		return PlanProgress{}, err
	}
	p := PlanProgress{
		StageCount:     plan.StageCount,
		ModuleCount:    plan.ModuleCount,
		SubmoduleCount: plan.SubmoduleCount,
		SlideCount:     plan.SlideCount,
		FilledSlides:   filled,
	}
	if plan.SlideCount > 0 {
		p.PercentFilled = int(filled * 100 / int64(plan.SlideCount))
	}
	return p, nil
}

// SlideStats returns aggregate metadata for one plan's slides: the total
// number of filled rows and the maximum UpdatedAt among them. Used for weak
// ETags on plan-tree responses.
func SlideStats(ctx context.Context, db *gorm.DB, planID string) (filled int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Slide{}).Where("plan_id = ? AND filled = ?", planID, true)

	if err = q.Count(&filled).Error; err != nil {
		return 0, nil, err
	}
	if filled == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite by ordering instead.
	var row struct {
		UpdatedAt time.Time
	}
	err = db.WithContext(ctx).Model(&domain.Slide{}).
		Select("updated_at").
		Where("plan_id = ? AND filled = ?", planID, true).
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	ts := row.UpdatedAt
	return filled, &ts, nil
}
