// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversation
// turns.
package repo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// CreateTurn appends a conversation turn. Turns are append-only; there is no
// update or delete path.
func CreateTurn(db *gorm.DB, sessionID, slideID, role, content string) (*domain.ConversationTurn, error) {
	t := &domain.ConversationTurn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		SlideID:   slideID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return t, db.Create(t).Error
}

// GetTurn fetches a single turn by id.
func GetTurn(db *gorm.DB, id string) (*domain.ConversationTurn, error) {
	var t domain.ConversationTurn
	err := db.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTurns returns a slide's turns ordered deterministically (CreatedAt
// ASC, ID ASC).
func ListTurns(db *gorm.DB, sessionID, slideID string, limit int) ([]domain.ConversationTurn, error) {
	var out []domain.ConversationTurn
	q := db.Where("session_id = ? AND slide_id = ?", sessionID, slideID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// RecentSessionTurns returns the newest turns across the whole session in
// chronological order. Used for slide-generation continuity and profile
// enrichment.
func RecentSessionTurns(db *gorm.DB, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []domain.ConversationTurn
	err := db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// Reverse newest-first into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountSessionTurns uses a raw COUNT so a missing table surfaces as an error.
func CountSessionTurns(db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM conversation_turns WHERE session_id = ?", sessionID).Scan(&total).Error
	return total, err
}

// ListTurnsPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListTurnsPage(db *gorm.DB, sessionID, slideID string, offset, limit int) ([]domain.ConversationTurn, error) {
	var out []domain.ConversationTurn
	err := db.
		Where("session_id = ? AND slide_id = ?", sessionID, slideID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountTurns returns the number of turns for a slide within a session.
func CountTurns(db *gorm.DB, sessionID, slideID string) (int64, error) {
	var total int64
	err := db.Model(&domain.ConversationTurn{}).
		Where("session_id = ? AND slide_id = ?", sessionID, slideID).
		Count(&total).Error
	return total, err
}
