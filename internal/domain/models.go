// Package domain defines the persistence models for trainings, learner
// sessions, adaptive curriculum plans, and generated slide content. These
// types are mapped with GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Slide mutation kinds accepted by the content pipeline.
const (
	MutationSimplify = "simplify"
	MutationExpand   = "expand"
	MutationChart    = "chart"
	MutationImage    = "image"
)

// VersionInitial marks the lazily generated first fill of a slide; every
// other version kind corresponds to an explicit learner-requested mutation.
const VersionInitial = "initial"

// Training represents one course built from uploaded source material.
// Learner sessions and documents hang off a training.
type Training struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	OwnerID   string         `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_trainings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Training.
func (Training) TableName() string { return "trainings" }

// SourceDocument is an uploaded file (PDF or PowerPoint) belonging to a
// training. A document is immutable once stored and is identified by the
// SHA-256 hash of its content; the hash doubles as the provider cache key.
//
// Fields:
//   - ContentHash: hex SHA-256 of the stored bytes; unique within a
//     training, the cache key. Two trainings may hold the same content,
//     each under its own row, while the blob itself is shared in the
//     document store.
//   - StoragePath: content-addressed location inside the document store.
type SourceDocument struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	TrainingID  string         `json:"training_id"  gorm:"type:char(36);not null;uniqueIndex:ux_doc_training_hash,priority:1"`
	FileName    string         `json:"file_name"    gorm:"type:varchar(255);not null"`
	MimeType    string         `json:"mime_type"    gorm:"type:varchar(128);not null"`
	SizeBytes   int64          `json:"size_bytes"   gorm:"not null"`
	ContentHash string         `json:"content_hash" gorm:"type:char(64);not null;uniqueIndex:ux_doc_training_hash,priority:2"`
	StoragePath string         `json:"-"            gorm:"type:varchar(512);not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	Training Training `json:"-" gorm:"foreignKey:TrainingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SourceDocument.
func (SourceDocument) TableName() string { return "source_documents" }

// DocumentCache records the provider-side cached representation of one
// source document. At most one live row exists per content hash; the row is
// created lazily on the first generation request, refreshed near expiry, and
// deleted on explicit invalidation.
type DocumentCache struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ContentHash string    `json:"content_hash" gorm:"type:char(64);not null;uniqueIndex:ux_cache_hash"`
	CacheName   string    `json:"cache_name"   gorm:"type:varchar(255);not null"` // provider handle, e.g. cachedContents/abc
	Model       string    `json:"model"        gorm:"type:varchar(128);not null"`
	TokenCount  int64     `json:"token_count"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"   gorm:"not null;index"`
}

// TableName returns the database table name for DocumentCache.
func (DocumentCache) TableName() string { return "document_caches" }

// Live reports whether the cache entry is still usable at time now, keeping
// at least margin of validity in hand for the upcoming provider call.
func (c *DocumentCache) Live(now time.Time, margin time.Duration) bool {
	return c.ExpiresAt.After(now.Add(margin))
}

// LearnerSession is one learner's run through a training. The session owns
// the profile, the plan, and the conversation; deleting the session cascades
// to all of them.
type LearnerSession struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	TrainingID string         `json:"training_id" gorm:"type:char(36);not null;index"`
	LearnerID  string         `json:"learner_id"  gorm:"type:varchar(64);not null;index:idx_learner_sessions"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`

	Training Training `json:"-" gorm:"foreignKey:TrainingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for LearnerSession.
func (LearnerSession) TableName() string { return "learner_sessions" }

// LearnerProfile stores the survey answers collected when a session is
// created. The row is immutable afterwards except for EnrichedNotes, which
// the enrichment process appends to based on conversation analysis.
type LearnerProfile struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	SessionID       string    `json:"session_id"       gorm:"type:char(36);not null;uniqueIndex:ux_profile_session"`
	ExperienceLevel string    `json:"experience_level" gorm:"type:varchar(32);not null;check:experience_level IN ('beginner','intermediate','advanced')"`
	LearningStyle   string    `json:"learning_style"   gorm:"type:varchar(32);not null"`
	JobRole         string    `json:"job_role"         gorm:"type:varchar(128)"`
	Sector          string    `json:"sector"           gorm:"type:varchar(128)"`
	Country         string    `json:"country"          gorm:"type:varchar(64)"`
	Language        string    `json:"language"         gorm:"type:varchar(16);not null;default:'en'"` // BCP 47 tag
	Objectives      string    `json:"objectives"       gorm:"type:text"`
	DurationMinutes int       `json:"duration_minutes"`
	EnrichedNotes   string    `json:"enriched_notes"   gorm:"type:text"` // append-only, one inference per line
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Session LearnerSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for LearnerProfile.
func (LearnerProfile) TableName() string { return "learner_profiles" }

// TrainingPlan is the curriculum skeleton for one session: exactly five
// stages, each holding modules, submodules and slide placeholders. The
// structure is created once, inside a single transaction, and is never
// restructured afterwards; only slide content is filled in lazily.
//
// The unique index on SessionID is what makes plan creation idempotent
// across processes: a concurrent writer that loses the race gets a unique
// violation and re-reads the winner's row.
type TrainingPlan struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	SessionID      string         `json:"session_id"      gorm:"type:char(36);not null;uniqueIndex:ux_plan_session"`
	Title          string         `json:"title"           gorm:"type:varchar(255);not null"`
	StageCount     int            `json:"stage_count"     gorm:"not null"`
	ModuleCount    int            `json:"module_count"    gorm:"not null"`
	SubmoduleCount int            `json:"submodule_count" gorm:"not null"`
	SlideCount     int            `json:"slide_count"     gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	Session LearnerSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TrainingPlan.
func (TrainingPlan) TableName() string { return "training_plans" }

// Stage is one of the five fixed top-level units of a plan. Position is
// 1-based display order.
type Stage struct {
	ID       string `json:"id"       gorm:"type:char(36);primaryKey"`
	PlanID   string `json:"plan_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_stage_pos,priority:1"`
	Position int    `json:"position" gorm:"not null;uniqueIndex:ux_stage_pos,priority:2"`
	Title    string `json:"title"    gorm:"type:varchar(255);not null"`

	Plan TrainingPlan `json:"-" gorm:"foreignKey:PlanID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Stage.
func (Stage) TableName() string { return "plan_stages" }

// Module groups submodules within a stage.
type Module struct {
	ID       string `json:"id"       gorm:"type:char(36);primaryKey"`
	StageID  string `json:"stage_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_module_pos,priority:1"`
	Position int    `json:"position" gorm:"not null;uniqueIndex:ux_module_pos,priority:2"`
	Title    string `json:"title"    gorm:"type:varchar(255);not null"`

	Stage Stage `json:"-" gorm:"foreignKey:StageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Module.
func (Module) TableName() string { return "plan_modules" }

// Submodule groups slides within a module.
type Submodule struct {
	ID       string `json:"id"        gorm:"type:char(36);primaryKey"`
	ModuleID string `json:"module_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_submodule_pos,priority:1"`
	Position int    `json:"position"  gorm:"not null;uniqueIndex:ux_submodule_pos,priority:2"`
	Title    string `json:"title"     gorm:"type:varchar(255);not null"`

	Module Module `json:"-" gorm:"foreignKey:ModuleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Submodule.
func (Submodule) TableName() string { return "plan_submodules" }

// Slide is a leaf placeholder created at plan time with a title only.
// Content lives in SlideVersion rows; CurrentVersionID points at the version
// learners currently see. Filled flips to true exactly once, together with
// the initial version, in one transaction.
//
// PathKey is the denormalized curriculum coordinate
// "stage.module.submodule.slide" (1-based); together with PlanID it is the
// unit of the at-most-once generation guarantee, backed by ux_slide_path.
type Slide struct {
	ID               string         `json:"id"            gorm:"type:char(36);primaryKey"`
	SubmoduleID      string         `json:"submodule_id"  gorm:"type:char(36);not null;index"`
	PlanID           string         `json:"plan_id"       gorm:"type:char(36);not null;index;uniqueIndex:ux_slide_path,priority:1"`
	PathKey          string         `json:"path_key"      gorm:"type:varchar(32);not null;uniqueIndex:ux_slide_path,priority:2"`
	Position         int            `json:"position"      gorm:"not null"`
	Title            string         `json:"title"         gorm:"type:varchar(255);not null"`
	Filled           bool           `json:"filled"        gorm:"not null;default:false"`
	CurrentVersionID *string        `json:"current_version_id,omitempty" gorm:"type:char(36)"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"             gorm:"index"`

	Submodule Submodule `json:"-" gorm:"foreignKey:SubmoduleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Slide.
func (Slide) TableName() string { return "plan_slides" }

// SlideVersion is one immutable rendering of a slide's markdown content.
// Versions are append-only: the initial lazy fill creates the first one and
// every mutation (simplify, expand, chart, image) appends another. Nothing
// ever rewrites an existing version.
type SlideVersion struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	SlideID   string    `json:"slide_id" gorm:"type:char(36);not null;index:idx_slide_versions,priority:1"`
	Kind      string    `json:"kind"     gorm:"type:varchar(16);not null;check:kind IN ('initial','simplify','expand','chart','image')"`
	Content   string    `json:"content"  gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_slide_versions,priority:2"`

	Slide Slide `json:"-" gorm:"foreignKey:SlideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SlideVersion.
func (SlideVersion) TableName() string { return "slide_versions" }

// ConversationTurn is a learner or assistant message tied to a slide inside
// a session. Turns are append-only and feed both slide Q&A answers and the
// profile enrichment process.
type ConversationTurn struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index:idx_session_turns,priority:1"`
	SlideID   string    `json:"slide_id"   gorm:"type:char(36);not null;index"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('learner','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_session_turns,priority:2"`

	Session LearnerSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Slide   Slide          `json:"-" gorm:"foreignKey:SlideID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ConversationTurn.
func (ConversationTurn) TableName() string { return "conversation_turns" }
