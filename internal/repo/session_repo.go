// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for learner
// sessions and their profiles.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// CreateSession inserts a learner session together with its survey profile
// in one transaction. A session without a profile must never be visible:
// both the plan and the slide generators require the profile.
func CreateSession(ctx context.Context, db *gorm.DB, trainingID, learnerID string, profile domain.LearnerProfile) (*domain.LearnerSession, error) {
	now := time.Now().UTC()
	s := &domain.LearnerSession{
		ID:         uuid.NewString(),
		TrainingID: trainingID,
		LearnerID:  learnerID,
		CreatedAt:  now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		profile.ID = uuid.NewString()
		profile.SessionID = s.ID
		profile.CreatedAt = now
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a session by ID.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.LearnerSession, error) {
	var s domain.LearnerSession
	err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetProfile fetches the profile belonging to a session.
func GetProfile(ctx context.Context, db *gorm.DB, sessionID string) (*domain.LearnerProfile, error) {
	var p domain.LearnerProfile
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AppendProfileNotes appends enrichment lines to the profile's notes without
// touching the survey answers. Existing notes are preserved; the update is a
// single SQL-side concatenation so concurrent enrichments do not clobber
// each other.
func AppendProfileNotes(ctx context.Context, db *gorm.DB, sessionID, notes string) error {
	if notes == "" {
		return nil
	}
	res := db.WithContext(ctx).Model(&domain.LearnerProfile{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"enriched_notes": gorm.Expr(
				"CASE WHEN enriched_notes = '' OR enriched_notes IS NULL THEN ? ELSE enriched_notes || char(10) || ? END",
				notes, notes),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
