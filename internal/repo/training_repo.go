// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for trainings and
// their uploaded source documents.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// CreateTraining inserts a new training row owned by ownerID.
func CreateTraining(ctx context.Context, db *gorm.DB, ownerID, name string) (*domain.Training, error) {
	t := &domain.Training{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	return t, db.WithContext(ctx).Create(t).Error
}

// GetTraining fetches a training by ID.
func GetTraining(ctx context.Context, db *gorm.DB, id string) (*domain.Training, error) {
	var t domain.Training
	err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateDocument records an uploaded source document. The content hash is
// unique within a training; re-uploading identical bytes to the same
// training returns ErrDuplicate and callers should reuse the existing row
// via GetDocumentByHash. The same content may be uploaded to a different
// training and gets its own row there.
func CreateDocument(ctx context.Context, db *gorm.DB, trainingID, fileName, mimeType, contentHash, storagePath string, size int64) (*domain.SourceDocument, error) {
	d := &domain.SourceDocument{
		ID:          uuid.NewString(),
		TrainingID:  trainingID,
		FileName:    fileName,
		MimeType:    mimeType,
		SizeBytes:   size,
		ContentHash: contentHash,
		StoragePath: storagePath,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return d, nil
}

// GetDocumentByHash fetches a training's document by its content hash.
func GetDocumentByHash(ctx context.Context, db *gorm.DB, trainingID, contentHash string) (*domain.SourceDocument, error) {
	var d domain.SourceDocument
	err := db.WithContext(ctx).
		Where("training_id = ? AND content_hash = ?", trainingID, contentHash).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// LatestDocument returns the most recently uploaded document of a training,
// which is the one the generation pipeline grounds on.
func LatestDocument(ctx context.Context, db *gorm.DB, trainingID string) (*domain.SourceDocument, error) {
	var d domain.SourceDocument
	err := db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Order("created_at DESC, id DESC").
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns a training's documents ordered deterministically.
func ListDocuments(ctx context.Context, db *gorm.DB, trainingID string) ([]domain.SourceDocument, error) {
	var out []domain.SourceDocument
	err := db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
