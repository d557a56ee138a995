// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for training plans
// and their stage/module/submodule/slide tree.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adaptive-elearn/go-training-backend/internal/domain"
)

// PathKey formats the 1-based curriculum coordinate used to address slides.
func PathKey(stage, module, submodule, slide int) string {
	return fmt.Sprintf("%d.%d.%d.%d", stage, module, submodule, slide)
}

// CreatePlanTree persists a validated skeleton as a full entity tree in one
// transaction: plan, then stages, modules, submodules and slide placeholders
// in source order. On any failure the whole tree rolls back; a partial
// curriculum is never visible.
//
// Returns ErrDuplicate when a plan already exists for the session (unique
// index ux_plan_session); the caller resolves that by re-reading.
func CreatePlanTree(ctx context.Context, db *gorm.DB, sessionID string, skeleton *domain.PlanSkeleton) (*domain.TrainingPlan, error) {
	now := time.Now().UTC()
	modules, submodules, slides := skeleton.Counts()

	plan := &domain.TrainingPlan{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Title:          skeleton.Title,
		StageCount:     len(skeleton.Stages),
		ModuleCount:    modules,
		SubmoduleCount: submodules,
		SlideCount:     slides,
		CreatedAt:      now,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(plan).Error; err != nil {
			return err
		}
		for si, st := range skeleton.Stages {
			stage := &domain.Stage{
				ID:       uuid.NewString(),
				PlanID:   plan.ID,
				Position: si + 1,
				Title:    st.Title,
			}
			if err := tx.Create(stage).Error; err != nil {
				return err
			}
			for mi, m := range st.Modules {
				module := &domain.Module{
					ID:       uuid.NewString(),
					StageID:  stage.ID,
					Position: mi + 1,
					Title:    m.Title,
				}
				if err := tx.Create(module).Error; err != nil {
					return err
				}
				for smi, sm := range m.Submodules {
					sub := &domain.Submodule{
						ID:       uuid.NewString(),
						ModuleID: module.ID,
						Position: smi + 1,
						Title:    sm.Title,
					}
					if err := tx.Create(sub).Error; err != nil {
						return err
					}
					for sli, title := range sm.SlideTitles {
						slide := &domain.Slide{
							ID:          uuid.NewString(),
							SubmoduleID: sub.ID,
							PlanID:      plan.ID,
							PathKey:     PathKey(si+1, mi+1, smi+1, sli+1),
							Position:    sli + 1,
							Title:       title,
							CreatedAt:   now,
						}
						if err := tx.Create(slide).Error; err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return plan, nil
}

// GetPlanBySession fetches the plan belonging to a session, if any.
func GetPlanBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.TrainingPlan, error) {
	var p domain.TrainingPlan
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PlanTree is the read model of a persisted curriculum: the full hierarchy
// with slide titles and filled flags, ordered by position at every level.
type PlanTree struct {
	Plan   domain.TrainingPlan `json:"plan"`
	Stages []PlanTreeStage     `json:"stages"`
}

// PlanTreeStage is one stage with its nested modules.
type PlanTreeStage struct {
	domain.Stage
	Modules []PlanTreeModule `json:"modules"`
}

// PlanTreeModule is one module with its nested submodules.
type PlanTreeModule struct {
	domain.Module
	Submodules []PlanTreeSubmodule `json:"submodules"`
}

// PlanTreeSubmodule is one submodule with its slides.
type PlanTreeSubmodule struct {
	domain.Submodule
	Slides []domain.Slide `json:"slides"`
}

// LoadPlanTree reads the whole curriculum for a plan. Four ordered queries,
// assembled in memory; cheap at curriculum scale (tens to low hundreds of
// rows).
func LoadPlanTree(ctx context.Context, db *gorm.DB, planID string) (*PlanTree, error) {
	var plan domain.TrainingPlan
	if err := db.WithContext(ctx).Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var stages []domain.Stage
	if err := db.WithContext(ctx).Where("plan_id = ?", planID).Order("position ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	stageIDs := make([]string, 0, len(stages))
	for _, s := range stages {
		stageIDs = append(stageIDs, s.ID)
	}

	var modules []domain.Module
	if len(stageIDs) > 0 {
		if err := db.WithContext(ctx).Where("stage_id IN ?", stageIDs).Order("position ASC").Find(&modules).Error; err != nil {
			return nil, err
		}
	}
	moduleIDs := make([]string, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	var submodules []domain.Submodule
	if len(moduleIDs) > 0 {
		if err := db.WithContext(ctx).Where("module_id IN ?", moduleIDs).Order("position ASC").Find(&submodules).Error; err != nil {
			return nil, err
		}
	}

	var slides []domain.Slide
	if err := db.WithContext(ctx).Where("plan_id = ?", planID).Order("position ASC").Find(&slides).Error; err != nil {
		return nil, err
	}

	// Assemble bottom-up.
	slidesBySub := make(map[string][]domain.Slide, len(submodules))
	for _, sl := range slides {
		slidesBySub[sl.SubmoduleID] = append(slidesBySub[sl.SubmoduleID], sl)
	}
	subsByModule := make(map[string][]PlanTreeSubmodule, len(modules))
	for _, sm := range submodules {
		subsByModule[sm.ModuleID] = append(subsByModule[sm.ModuleID], PlanTreeSubmodule{
			Submodule: sm,
			Slides:    slidesBySub[sm.ID],
		})
	}
	modulesByStage := make(map[string][]PlanTreeModule, len(stages))
	for _, m := range modules {
		modulesByStage[m.StageID] = append(modulesByStage[m.StageID], PlanTreeModule{
			Module:     m,
			Submodules: subsByModule[m.ID],
		})
	}

	tree := &PlanTree{Plan: plan, Stages: make([]PlanTreeStage, 0, len(stages))}
	for _, s := range stages {
		tree.Stages = append(tree.Stages, PlanTreeStage{
			Stage:   s,
			Modules: modulesByStage[s.ID],
		})
	}
	return tree, nil
}
