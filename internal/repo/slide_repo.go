// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for slides and
// their content versions, including the transactional fill that backs the
// at-most-once generation guarantee.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// GetSlideByPath fetches the slide at a curriculum coordinate within a plan.
func GetSlideByPath(ctx context.Context, db *gorm.DB, planID, pathKey string) (*domain.Slide, error) {
	var s domain.Slide
	err := db.WithContext(ctx).Where("plan_id = ? AND path_key = ?", planID, pathKey).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSlide fetches a slide by ID.
func GetSlide(ctx context.Context, db *gorm.DB, id string) (*domain.Slide, error) {
	var s domain.Slide
	err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FillSlide writes the initial content of a slide exactly once. The version
// insert and the filled flip happen in one transaction, and the flip is a
// guarded UPDATE (WHERE filled = false): when a concurrent writer got there
// first, RowsAffected is 0, the transaction rolls back, and ErrDuplicate is
// returned so the caller re-reads the winner's content instead.
func FillSlide(ctx context.Context, db *gorm.DB, slideID, content string) (*domain.SlideVersion, error) {
	now := time.Now().UTC()
	v := &domain.SlideVersion{
		ID:        uuid.NewString(),
		SlideID:   slideID,
		Kind:      domain.VersionInitial,
		Content:   content,
		CreatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Slide{}).
			Where("id = ? AND filled = ?", slideID, false).
			Updates(map[string]any{
				"filled":             true,
				"current_version_id": v.ID,
				"updated_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicate
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return v, nil
}

// AppendSlideVersion records a mutation result as a new version and moves
// the slide's current pointer to it. Unlike FillSlide this may run any
// number of times, but only against an already-filled slide.
func AppendSlideVersion(ctx context.Context, db *gorm.DB, slideID, kind, content string) (*domain.SlideVersion, error) {
	now := time.Now().UTC()
	v := &domain.SlideVersion{
		ID:        uuid.NewString(),
		SlideID:   slideID,
		Kind:      kind,
		Content:   content,
		CreatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Slide{}).
			Where("id = ? AND filled = ?", slideID, true).
			Updates(map[string]any{
				"current_version_id": v.ID,
				"updated_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetSlideVersion fetches one content version by ID.
func GetSlideVersion(ctx context.Context, db *gorm.DB, id string) (*domain.SlideVersion, error) {
	var v domain.SlideVersion
	err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CurrentContent returns the content learners currently see for a slide, or
// ErrNotFound when the slide has never been filled.
func CurrentContent(ctx context.Context, db *gorm.DB, slide *domain.Slide) (*domain.SlideVersion, error) {
	if slide.CurrentVersionID == nil {
		return nil, ErrNotFound
	}
	return GetSlideVersion(ctx, db, *slide.CurrentVersionID)
}

// ListSlideVersions returns all versions of a slide, oldest first.
func ListSlideVersions(ctx context.Context, db *gorm.DB, slideID string) ([]domain.SlideVersion, error) {
	var out []domain.SlideVersion
	err := db.WithContext(ctx).
		Where("slide_id = ?", slideID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountFilledSlides returns how many slides of a plan have content, for
// progress reporting.
func CountFilledSlides(ctx context.Context, db *gorm.DB, planID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Slide{}).
		Where("plan_id = ? AND filled = ?", planID, true).
		Count(&n).Error
	return n, err
}
