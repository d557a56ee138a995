// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for provider
// cache-handle records (DocumentCache).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// GetCacheByHash fetches the cache record for a content hash, expired or not.
// TTL filtering is the caller's concern (see domain.DocumentCache.Live).
func GetCacheByHash(ctx context.Context, db *gorm.DB, contentHash string) (*domain.DocumentCache, error) {
	var c domain.DocumentCache
	err := db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCache inserts a cache record for a content hash. The unique index on
// content_hash enforces at most one row per document; ErrDuplicate signals
// that a concurrent creator won and the caller should re-read.
func CreateCache(ctx context.Context, db *gorm.DB, contentHash, cacheName, model string, tokens int64, expiresAt time.Time) (*domain.DocumentCache, error) {
	c := &domain.DocumentCache{
		ID:          uuid.NewString(),
		ContentHash: contentHash,
		CacheName:   cacheName,
		Model:       model,
		TokenCount:  tokens,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// UpdateCacheExpiry extends a record's TTL window after a provider-side
// refresh, optionally replacing the handle when the provider recreated it.
func UpdateCacheExpiry(ctx context.Context, db *gorm.DB, id, cacheName string, expiresAt time.Time) error {
	res := db.WithContext(ctx).Model(&domain.DocumentCache{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"cache_name": cacheName,
			"expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCache removes a cache record. Deleting an absent row is a no-op so
// invalidation stays idempotent.
func DeleteCache(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Delete(&domain.DocumentCache{}, "id = ?", id).Error
}
