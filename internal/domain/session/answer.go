package session

import (
	"time"

	"github.com/quizwise/backend/internal/domain/question"
)

// Assessment is a learner's self-grading of an open response, or the
// skipped sentinel for any question left unanswered on purpose.
type Assessment string

const (
	AssessmentCorrect   Assessment = "correct"
	AssessmentPartial   Assessment = "partial"
	AssessmentIncorrect Assessment = "incorrect"
	AssessmentSkipped   Assessment = "skipped"
)

// Valid reports whether a is one of the self-grading values a learner may pick.
func (a Assessment) Valid() bool {
	switch a {
	case AssessmentCorrect, AssessmentPartial, AssessmentIncorrect:
		return true
	}
	return false
}

// Answer is what was recorded for one question.
type Answer struct {
	ChoiceID   string     // single choice only
	Assessment Assessment // open response, or skipped
	AnsweredAt time.Time
}

func (a Answer) Skipped() bool {
	return a.Assessment == AssessmentSkipped
}

// Resolve reports whether answer a is a correct answer to q.
// Partial and incorrect self-assessments both resolve to false.
func Resolve(q question.Question, a Answer) bool {
	switch q.Format.(type) {
	case question.SingleChoice:
		correctID, ok := q.CorrectChoiceID()
		return ok && a.ChoiceID != "" && a.ChoiceID == correctID
	case question.OpenResponse:
		return a.Assessment == AssessmentCorrect
	}
	return false
}
