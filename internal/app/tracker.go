package app

import (
	"time"

	"foundry-course-service/internal/domain"
)

// ProgressWriter receives completion records after the tracker has already applied
// them. Implementations must not block the caller.
type ProgressWriter interface {
	WriteProgress(rec domain.ProgressRecord)
	WriteAttempt(attempt domain.QuizAttempt)
}

// QuizOutcome describes a graded quiz submission.
type QuizOutcome struct {
	ModuleID        string `json:"moduleId"`
	QuizID          string `json:"quizId"`
	Score           Score  `json:"score"`
	Percent         int    `json:"percent"`
	Passed          bool   `json:"passed"`
	ModuleCompleted bool   `json:"moduleCompleted"`
}

// Tracker is the navigation and progress state of one learner in one course.
// It is not safe for concurrent use; Session serializes access.
type Tracker struct {
	course *domain.Course
	userID string
	writer ProgressWriter
	now    func() time.Time

	view        domain.View
	moduleID    string
	subModuleID string

	completedSubs    idSet
	completedModules idSet
	tries            map[string]int

	pending   *QuizAttempt
	published bool
}

// NewTracker starts a learner on the course overview. An empty userID or a nil
// writer keeps all progress in memory.
func NewTracker(course *domain.Course, userID string, writer ProgressWriter) *Tracker {
	return &Tracker{
		course:           course,
		userID:           userID,
		writer:           writer,
		now:              time.Now,
		view:             domain.ViewOverview,
		completedSubs:    newIDSet(),
		completedModules: newIDSet(),
		tries:            make(map[string]int),
		published:        course.Published,
	}
}

// Seed restores persisted completions. Ids unknown to the course are dropped and
// module completion is re-derived: every lesson plus the (passed) quiz, the same
// rule SelectSubModule and SubmitQuiz apply live.
func (t *Tracker) Seed(completedIDs []string) {
	for _, id := range completedIDs {
		if t.course.HasItem(id) {
			t.completedSubs.add(id)
		}
	}
	for i := range t.course.Modules {
		m := &t.course.Modules[i]
		if m.Quiz.ID == "" || !t.completedSubs.has(m.Quiz.ID) {
			continue
		}
		if t.lessonsDone(m) {
			t.completedModules.add(m.ID)
		}
	}
}

// SelectModule moves to the overview, the final assessment, a module or a module's
// quiz screen. Unknown modules leave the state untouched.
func (t *Tracker) SelectModule(target domain.Target) {
	switch target.Kind {
	case domain.TargetOverview:
		t.setView(domain.ViewOverview, "", "")
	case domain.TargetAssessment:
		t.setView(domain.ViewAssessment, "", "")
	case domain.TargetModuleQuiz:
		if m, _, ok := t.course.FindModule(target.ModuleID); ok {
			t.setView(domain.ViewQuiz, m.ID, "")
		}
	case domain.TargetModule:
		if m, _, ok := t.course.FindModule(target.ModuleID); ok {
			t.setView(domain.ViewModule, m.ID, "")
		}
	}
}

// SelectSubModule opens a lesson. Viewing a lesson completes it.
func (t *Tracker) SelectSubModule(moduleID, subModuleID string) {
	m, _, ok := t.course.FindModule(moduleID)
	if !ok {
		return
	}
	sub, _, ok := m.FindSubModule(subModuleID)
	if !ok {
		return
	}
	t.setView(domain.ViewSubModule, m.ID, sub.ID)
	if t.completedSubs.has(sub.ID) {
		return
	}
	t.completedSubs.add(sub.ID)
	t.persist(sub.ID, true)
	if t.completedSubs.has(m.Quiz.ID) && t.lessonsDone(m) {
		t.completedModules.add(m.ID)
	}
}

// TakeQuiz opens the quiz of a module. A module without questions yields
// domain.ErrNoQuizAvailable and nothing changes.
func (t *Tracker) TakeQuiz(moduleID string) error {
	m, _, ok := t.course.FindModule(moduleID)
	if !ok {
		return nil
	}
	if len(m.Quiz.Questions) == 0 {
		return domain.ErrNoQuizAvailable
	}
	t.pending = newQuizAttempt(m)
	return nil
}

// Quiz returns the open quiz attempt, if any.
func (t *Tracker) Quiz() (*QuizAttempt, bool) {
	return t.pending, t.pending != nil
}

// FinishQuiz submits the open attempt once its results are shown.
func (t *Tracker) FinishQuiz() (QuizOutcome, error) {
	if t.pending == nil {
		return QuizOutcome{}, domain.ErrNoActiveQuiz
	}
	answers, err := t.pending.finish()
	if err != nil {
		return QuizOutcome{}, err
	}
	outcome, _ := t.SubmitQuiz(answers)
	return outcome, nil
}

// SubmitQuiz grades answers for the pending quiz. Passing completes the quiz and,
// when every lesson of the module is already complete, the module too. A failed
// retake never clears an earlier pass. The pending quiz is closed either way. ok is
// false when no quiz was pending.
func (t *Tracker) SubmitQuiz(answers []string) (outcome QuizOutcome, ok bool) {
	attempt := t.pending
	if attempt == nil {
		return QuizOutcome{}, false
	}
	t.pending = nil

	m, _, found := t.course.FindModule(attempt.moduleID)
	if !found {
		return QuizOutcome{}, false
	}
	score := ScoreAnswers(m.Quiz.Questions, answers)
	outcome = QuizOutcome{
		ModuleID: m.ID,
		QuizID:   m.Quiz.ID,
		Score:    score,
		Percent:  score.Percent(),
		Passed:   score.Passed(),
	}

	t.persist(m.Quiz.ID, outcome.Passed || t.completedSubs.has(m.Quiz.ID))
	t.recordAttempt(m.Quiz.ID, answers, score)
	if !outcome.Passed {
		return outcome, true
	}

	t.completedSubs.add(m.Quiz.ID)
	if t.lessonsDone(m) {
		t.completedModules.add(m.ID)
		outcome.ModuleCompleted = true
	}
	return outcome, true
}

// CloseQuiz abandons the open attempt without grading it.
func (t *Tracker) CloseQuiz() {
	t.pending = nil
}

// GoNext advances along overview, each module, its lessons, its quiz, and finally
// the assessment. It never looks at completion state.
func (t *Tracker) GoNext() {
	mods := t.course.Modules
	switch t.view {
	case domain.ViewOverview:
		if len(mods) == 0 {
			t.SelectModule(domain.Assessment())
			return
		}
		t.SelectModule(domain.ModuleTarget(mods[0].ID))
	case domain.ViewModule:
		m, _, ok := t.course.FindModule(t.moduleID)
		if !ok {
			return
		}
		if len(m.SubModules) == 0 {
			t.SelectModule(domain.ModuleQuiz(m.ID))
			return
		}
		t.SelectSubModule(m.ID, m.SubModules[0].ID)
	case domain.ViewSubModule:
		m, _, ok := t.course.FindModule(t.moduleID)
		if !ok {
			return
		}
		_, idx, ok := m.FindSubModule(t.subModuleID)
		if !ok {
			return
		}
		if idx < len(m.SubModules)-1 {
			t.SelectSubModule(m.ID, m.SubModules[idx+1].ID)
			return
		}
		t.SelectModule(domain.ModuleQuiz(m.ID))
	case domain.ViewQuiz:
		_, idx, ok := t.course.FindModule(t.moduleID)
		if !ok {
			return
		}
		if idx < len(mods)-1 {
			t.SelectModule(domain.ModuleTarget(mods[idx+1].ID))
			return
		}
		t.SelectModule(domain.Assessment())
	case domain.ViewAssessment:
	}
}

// GoPrevious is the exact inverse of GoNext.
func (t *Tracker) GoPrevious() {
	mods := t.course.Modules
	switch t.view {
	case domain.ViewOverview:
	case domain.ViewModule:
		_, idx, ok := t.course.FindModule(t.moduleID)
		if !ok {
			return
		}
		if idx == 0 {
			t.SelectModule(domain.Overview())
			return
		}
		t.SelectModule(domain.ModuleQuiz(mods[idx-1].ID))
	case domain.ViewSubModule:
		m, _, ok := t.course.FindModule(t.moduleID)
		if !ok {
			return
		}
		_, idx, ok := m.FindSubModule(t.subModuleID)
		if !ok {
			return
		}
		if idx == 0 {
			t.SelectModule(domain.ModuleTarget(m.ID))
			return
		}
		t.SelectSubModule(m.ID, m.SubModules[idx-1].ID)
	case domain.ViewQuiz:
		m, _, ok := t.course.FindModule(t.moduleID)
		if !ok {
			return
		}
		if n := len(m.SubModules); n > 0 {
			t.SelectSubModule(m.ID, m.SubModules[n-1].ID)
			return
		}
		t.SelectModule(domain.ModuleTarget(m.ID))
	case domain.ViewAssessment:
		if len(mods) == 0 {
			t.SelectModule(domain.Overview())
			return
		}
		t.SelectModule(domain.ModuleQuiz(mods[len(mods)-1].ID))
	}
}

// CompleteFinalAssessment marks the assessment done. It returns true only the first
// time, which is when the course-complete notice should be shown.
func (t *Tracker) CompleteFinalAssessment() bool {
	if t.completedModules.has(domain.AssessmentID) {
		return false
	}
	t.completedModules.add(domain.AssessmentID)
	return true
}

// Breadcrumbs returns the trail for the current view.
func (t *Tracker) Breadcrumbs() []domain.Breadcrumb {
	crumbs := []domain.Breadcrumb{
		{Kind: domain.CrumbHome, Label: "Home"},
		{Kind: domain.CrumbCourse, Label: t.course.Name},
	}
	m, _, ok := t.course.FindModule(t.moduleID)
	if !ok {
		return crumbs
	}
	crumbs = append(crumbs, domain.Breadcrumb{Kind: domain.CrumbModule, Label: m.Title})
	if sub, _, ok := m.FindSubModule(t.subModuleID); ok {
		crumbs = append(crumbs, domain.Breadcrumb{Kind: domain.CrumbSubModule, Label: sub.Title})
	}
	return crumbs
}

// SelectBreadcrumb jumps along the trail. It returns true for Home, which leaves the
// course entirely and is up to the caller.
func (t *Tracker) SelectBreadcrumb(kind domain.CrumbKind) (leave bool) {
	switch kind {
	case domain.CrumbHome:
		return true
	case domain.CrumbCourse:
		t.SelectModule(domain.Overview())
	case domain.CrumbModule:
		if t.moduleID != "" {
			t.SelectModule(domain.ModuleTarget(t.moduleID))
		}
	}
	return false
}

// SetPublished records the outcome of the publish action.
func (t *Tracker) SetPublished(published bool) {
	t.published = published
}

// View returns the active view and references.
func (t *Tracker) View() (view domain.View, moduleID, subModuleID string) {
	return t.view, t.moduleID, t.subModuleID
}

// SubModuleCompleted reports whether a lesson or quiz id is complete.
func (t *Tracker) SubModuleCompleted(id string) bool {
	return t.completedSubs.has(id)
}

// ModuleCompleted reports whether a module id (or "assessment") is complete.
func (t *Tracker) ModuleCompleted(id string) bool {
	return t.completedModules.has(id)
}

func (t *Tracker) setView(view domain.View, moduleID, subModuleID string) {
	t.view = view
	t.moduleID = moduleID
	t.subModuleID = subModuleID
}

func (t *Tracker) lessonsDone(m *domain.Module) bool {
	for _, sub := range m.SubModules {
		if !t.completedSubs.has(sub.ID) {
			return false
		}
	}
	return true
}

func (t *Tracker) persist(itemID string, completed bool) {
	if t.userID == "" || t.writer == nil {
		return
	}
	t.tries[itemID]++
	t.writer.WriteProgress(domain.ProgressRecord{
		UserID:      t.userID,
		SubModuleID: itemID,
		Completed:   completed,
		Tries:       t.tries[itemID],
		LastSeenAt:  t.now(),
	})
}

func (t *Tracker) recordAttempt(quizID string, answers []string, score Score) {
	if t.userID == "" || t.writer == nil {
		return
	}
	t.writer.WriteAttempt(domain.QuizAttempt{
		UserID:      t.userID,
		QuizID:      quizID,
		Answers:     append([]string(nil), answers...),
		Correct:     score.Correct,
		Total:       score.Total,
		Passed:      score.Passed(),
		SubmittedAt: t.now(),
	})
}

// idSet is an insertion-ordered set of ids.
type idSet struct {
	order []string
	index map[string]struct{}
}

func newIDSet() idSet {
	return idSet{index: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *idSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *idSet) list() []string {
	return append([]string{}, s.order...)
}
