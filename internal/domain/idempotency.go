// Package domain – Idempotency model.
//
// Idempotency records let mutating POST endpoints (slide mutations, plan
// creation) deduplicate client retries carrying an Idempotency-Key header.
package domain

import "time"

// Idempotency stores the outcome of a completed request for a given
// (learner, session, key) tuple so that a retry with the same key can be
// answered from the recorded result instead of repeating the work.
//
// ResultID references the entity produced by the original request (a slide
// version or a plan). Rows expire after a configured TTL and are matched
// only while ExpiresAt is in the future.
type Idempotency struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	LearnerID string    `json:"learner_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_scope,priority:1"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex:ux_idem_scope,priority:2"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_scope,priority:3"`
	ResultID  string    `json:"result_id"  gorm:"type:char(36);not null"`
	Status    int       `json:"status"     gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// TableName returns the database table name for Idempotency.
func (Idempotency) TableName() string { return "idempotency_keys" }
