package domain

import "strings"

// View is the screen the learner is currently on.
type View string

const (
	ViewOverview   View = "overview"
	ViewModule     View = "module"
	ViewSubModule  View = "submodule"
	ViewQuiz       View = "quiz"
	ViewAssessment View = "assessment"
)

// AssessmentID is the completion id recorded for the final assessment.
const AssessmentID = "assessment"

const quizSuffix = "-quiz"

// TargetKind discriminates the navigation targets accepted by module selection.
type TargetKind int

const (
	TargetOverview TargetKind = iota
	TargetAssessment
	TargetModuleQuiz
	TargetModule
)

func (k TargetKind) String() string {
	switch k {
	case TargetOverview:
		return "overview"
	case TargetAssessment:
		return "assessment"
	case TargetModuleQuiz:
		return "moduleQuiz"
	case TargetModule:
		return "module"
	default:
		return "unknown"
	}
}

// Target is a navigation destination. ModuleID is set for module and quiz targets.
type Target struct {
	Kind     TargetKind
	ModuleID string
}

// Overview targets the course overview.
func Overview() Target { return Target{Kind: TargetOverview} }

// Assessment targets the final assessment.
func Assessment() Target { return Target{Kind: TargetAssessment} }

// ModuleQuiz targets the quiz screen of a module.
func ModuleQuiz(moduleID string) Target {
	return Target{Kind: TargetModuleQuiz, ModuleID: moduleID}
}

// ModuleTarget targets a module's landing screen.
func ModuleTarget(moduleID string) Target {
	return Target{Kind: TargetModule, ModuleID: moduleID}
}

// ParseTarget maps the sidebar's string ids ("overview", "assessment",
// "<module>-quiz", "<module>") onto a Target.
func ParseTarget(raw string) Target {
	switch {
	case raw == string(ViewOverview):
		return Overview()
	case raw == AssessmentID:
		return Assessment()
	case strings.HasSuffix(raw, quizSuffix):
		return ModuleQuiz(strings.TrimSuffix(raw, quizSuffix))
	default:
		return ModuleTarget(raw)
	}
}

// String renders the target in the sidebar's string form.
func (t Target) String() string {
	switch t.Kind {
	case TargetOverview:
		return string(ViewOverview)
	case TargetAssessment:
		return AssessmentID
	case TargetModuleQuiz:
		return t.ModuleID + quizSuffix
	default:
		return t.ModuleID
	}
}

// CrumbKind identifies a breadcrumb segment.
type CrumbKind string

const (
	CrumbHome      CrumbKind = "home"
	CrumbCourse    CrumbKind = "course"
	CrumbModule    CrumbKind = "module"
	CrumbSubModule CrumbKind = "submodule"
)

// Breadcrumb is one segment of the Home > Course > Module > Lesson trail.
type Breadcrumb struct {
	Kind  CrumbKind `json:"kind"`
	Label string    `json:"label"`
}
