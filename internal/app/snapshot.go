package app

import "foundry-course-service/internal/domain"

// Snapshot is an immutable copy of a tracker's state, safe to hand to transports.
type Snapshot struct {
	CourseID            string              `json:"courseId"`
	CourseName          string              `json:"courseName"`
	View                domain.View         `json:"view"`
	ModuleID            string              `json:"moduleId,omitempty"`
	SubModuleID         string              `json:"subModuleId,omitempty"`
	CompletedModules    []string            `json:"completedModules"`
	CompletedSubModules []string            `json:"completedSubModules"`
	Progress            int                 `json:"progress"`
	Breadcrumbs         []domain.Breadcrumb `json:"breadcrumbs"`
	CanGoPrevious       bool                `json:"canGoPrevious"`
	CanGoNext           bool                `json:"canGoNext"`
	Quiz                *QuizView           `json:"quiz,omitempty"`
	Published           bool                `json:"published"`
}

// Snapshot captures the current state.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		CourseID:            t.course.ID,
		CourseName:          t.course.Name,
		View:                t.view,
		ModuleID:            t.moduleID,
		SubModuleID:         t.subModuleID,
		CompletedModules:    t.completedModules.list(),
		CompletedSubModules: t.completedSubs.list(),
		Progress:            t.progress(),
		Breadcrumbs:         t.Breadcrumbs(),
		CanGoPrevious:       t.view != domain.ViewOverview,
		CanGoNext:           t.view != domain.ViewAssessment,
		Published:           t.published,
	}
	if t.pending != nil {
		snap.Quiz = t.pending.view()
	}
	return snap
}

// progress is the percentage of lessons and quizzes completed.
func (t *Tracker) progress() int {
	total := t.course.ItemCount()
	if total == 0 {
		return 0
	}
	return len(t.completedSubs.order) * 100 / total
}
