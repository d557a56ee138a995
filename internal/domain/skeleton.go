// Package domain – plan skeleton value types.
//
// PlanSkeleton is the structured output of the curriculum generator before
// it is persisted: titles only, no content. It is a plain value type (no
// GORM mapping); the persister converts it into TrainingPlan/Stage/Module/
// Submodule/Slide rows.
package domain

// PlanSkeleton is the unfilled hierarchical curriculum structure.
type PlanSkeleton struct {
	Title  string          `json:"title"`
	Stages []StageSkeleton `json:"stages"`
}

// StageSkeleton is one top-level unit of the skeleton.
type StageSkeleton struct {
	Title   string           `json:"title"`
	Modules []ModuleSkeleton `json:"modules"`
}

// ModuleSkeleton groups submodules inside a stage.
type ModuleSkeleton struct {
	Title      string              `json:"title"`
	Submodules []SubmoduleSkeleton `json:"submodules"`
}

// SubmoduleSkeleton groups slide titles inside a module.
type SubmoduleSkeleton struct {
	Title       string   `json:"title"`
	SlideTitles []string `json:"slide_titles"`
}

// Counts returns the aggregate (modules, submodules, slides) of the skeleton.
func (p *PlanSkeleton) Counts() (modules, submodules, slides int) {
	for _, st := range p.Stages {
		modules += len(st.Modules)
		for _, m := range st.Modules {
			submodules += len(m.Submodules)
			for _, sm := range m.Submodules {
				slides += len(sm.SlideTitles)
			}
		}
	}
	return
}
