package question

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/id"
)

// Kind names a question format on the wire and in storage.
type Kind string

const (
	KindSingleChoice Kind = "single_choice"
	KindOpenResponse Kind = "open_response"
)

// Format is the closed set of question formats. The unexported method
// keeps implementations inside this package, so a type switch over
// SingleChoice and OpenResponse is exhaustive.
type Format interface {
	kind() Kind
}

// SingleChoice questions have an ordered set of choices, one of them correct.
type SingleChoice struct {
	Choices []Choice
}

// OpenResponse questions are graded by the learner against the explanation.
type OpenResponse struct{}

func (SingleChoice) kind() Kind { return KindSingleChoice }
func (OpenResponse) kind() Kind { return KindOpenResponse }

type Choice struct {
	ID        string
	Text      string
	IsCorrect bool
}

type Question struct {
	ID               string
	UnitID           string
	Body             string
	ImageURL         *string
	Explanation      string
	SolutionImageURL *string
	Format           Format
}

var (
	ErrEmptyBody     = errors.New("question needs a body or an image")
	ErrMissingFormat = errors.New("question has no format")
)

// New creates an open-response question.
func New(unitID, body, explanation string) (*Question, error) {
	q := &Question{
		ID:          id.GenerateID(),
		UnitID:      unitID,
		Body:        strings.TrimSpace(body),
		Explanation: explanation,
		Format:      OpenResponse{},
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// NewSingleChoice creates a single-choice question. correct is the index
// of the correct entry in choices.
func NewSingleChoice(unitID, body, explanation string, choices []string, correct int) (*Question, error) {
	if correct < 0 || correct >= len(choices) {
		return nil, errors.Errorf("correct choice index %d out of range", correct)
	}
	sc := SingleChoice{Choices: make([]Choice, len(choices))}
	for i, text := range choices {
		sc.Choices[i] = Choice{
			ID:        id.GenerateID(),
			Text:      text,
			IsCorrect: i == correct,
		}
	}
	q := &Question{
		ID:          id.GenerateID(),
		UnitID:      unitID,
		Body:        strings.TrimSpace(body),
		Explanation: explanation,
		Format:      sc,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Kind returns the wire name of the question's format.
func (q Question) Kind() Kind {
	if q.Format == nil {
		return ""
	}
	return q.Format.kind()
}

// Validate checks the invariants a question must hold to be drawn into a session.
func (q Question) Validate() error {
	if q.Body == "" && q.ImageURL == nil {
		return ErrEmptyBody
	}
	switch f := q.Format.(type) {
	case SingleChoice:
		if len(f.Choices) < 2 {
			return errors.New("single choice question needs at least two choices")
		}
		correct := 0
		for _, c := range f.Choices {
			if c.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return errors.Errorf("single choice question needs exactly one correct choice, has %d", correct)
		}
	case OpenResponse:
	case nil:
		return ErrMissingFormat
	}
	return nil
}

// Usable reports whether the question can take part in a session.
func (q Question) Usable() bool {
	return q.Validate() == nil
}

// Choices returns the question's choices, or nil for open-response questions.
func (q Question) Choices() []Choice {
	if sc, ok := q.Format.(SingleChoice); ok {
		return sc.Choices
	}
	return nil
}

// CorrectChoiceID returns the ID of the correct choice of a single-choice question.
func (q Question) CorrectChoiceID() (string, bool) {
	for _, c := range q.Choices() {
		if c.IsCorrect {
			return c.ID, true
		}
	}
	return "", false
}

// HasChoice reports whether choiceID belongs to the question.
func (q Question) HasChoice(choiceID string) bool {
	for _, c := range q.Choices() {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}

// WithShuffledChoices returns a copy of q whose choices are in random order.
// The receiver's choice slice is never reordered.
func (q Question) WithShuffledChoices(rng *rand.Rand) Question {
	sc, ok := q.Format.(SingleChoice)
	if !ok {
		return q
	}
	shuffled := make([]Choice, len(sc.Choices))
	copy(shuffled, sc.Choices)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	q.Format = SingleChoice{Choices: shuffled}
	return q
}
