package fixture

import (
	"fmt"
	"strings"

	"foundry-course-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	answerRangeTag = "answerrange"
	uniqueIDTag    = "uniqueid"
	reservedIDTag  = "reservedid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(questionStructValidation, domain.Question{})
	v.RegisterStructValidation(courseStructValidation, domain.Course{})
	return v
}

// questionStructValidation checks that the correct answer indexes an option.
func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(domain.Question)
	if q.CorrectAnswer >= len(q.Options) {
		sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", answerRangeTag, fmt.Sprint(len(q.Options)))
	}
}

// courseStructValidation checks that lesson and quiz ids are unique within the
// course, since progress is recorded per item id.
func courseStructValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(domain.Course)
	seen := make(map[string]bool)
	check := func(id, field string) {
		if id == "" {
			return
		}
		if id == domain.AssessmentID {
			sl.ReportError(id, field, field, reservedIDTag, "")
			return
		}
		if seen[id] {
			sl.ReportError(id, field, field, uniqueIDTag, "")
		}
		seen[id] = true
	}
	modules := make(map[string]bool)
	for _, m := range c.Modules {
		if modules[m.ID] {
			sl.ReportError(m.ID, "modules", "Modules", uniqueIDTag, m.ID)
		}
		modules[m.ID] = true
		for _, s := range m.SubModules {
			check(s.ID, "subModules")
		}
		check(m.Quiz.ID, "quiz")
	}
}

// validateCourse runs the struct rules and flattens the failures into one error.
func validateCourse(c domain.Course) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, strings.TrimSpace(fmt.Sprintf("%s: %s %s", fe.Namespace(), fe.Tag(), fe.Param())))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidCourse, strings.Join(msgs, "; "))
}
