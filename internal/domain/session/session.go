package session

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/scoring"
	"github.com/quizwise/backend/internal/id"
)

// State is the lifecycle position of a session.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateFinalized  State = "finalized"
	StateReviewing  State = "reviewing" // UI-only view of a finalized session
	StateEmpty      State = "empty"     // terminal: the pool had no usable questions
)

var (
	ErrPoolEmpty     = errors.New("no questions available for the requested units")
	ErrInvalidAnswer = errors.New("invalid answer submission")
	ErrInvalidState  = errors.New("operation not allowed in the current session state")
	ErrInvalidConfig = errors.New("invalid session config")
)

// Session is one learner's pass over a drawn set of questions.
// It is not safe for concurrent use; callers serialize access.
type Session struct {
	ID        string
	LearnerID string
	AreaID    string
	UnitIDs   []string
	Kind      Kind

	requested int
	timeLimit *time.Duration
	questions []question.Question
	position  int
	answers   map[string]Answer
	state     State

	startedAt   time.Time
	deadline    time.Time
	finalizedAt time.Time
	score       scoring.Score

	now func() time.Time
}

// Option customizes a Session at construction.
type Option func(*Session)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session in the Loading state. Questions are drawn by Load.
func New(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	units := make([]string, len(cfg.UnitIDs))
	copy(units, cfg.UnitIDs)

	s := &Session{
		ID:        id.GenerateID(),
		LearnerID: cfg.LearnerID,
		AreaID:    cfg.AreaID,
		UnitIDs:   units,
		Kind:      cfg.Kind,
		requested: cfg.QuestionCount,
		timeLimit: cfg.TimeLimit,
		answers:   make(map[string]Answer),
		state:     StateLoading,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load draws the session's questions from pool and starts the session.
// If pool holds no usable question the session becomes Empty and
// ErrPoolEmpty is returned.
func (s *Session) Load(pool []question.Question, rng *rand.Rand) error {
	if s.state != StateLoading {
		return errors.Wrapf(ErrInvalidState, "load in state %s", s.state)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	drawn := Draw(pool, s.requested, rng)
	if len(drawn) == 0 {
		s.state = StateEmpty
		return ErrPoolEmpty
	}

	s.questions = drawn
	s.position = 0
	s.state = StateInProgress
	s.startedAt = s.now()
	if s.timeLimit != nil {
		s.deadline = s.startedAt.Add(*s.timeLimit)
	}
	return nil
}

// Draw picks n distinct usable questions from pool uniformly at random,
// or every usable question when the pool is smaller. Single-choice
// questions get their choices shuffled with rng.
func Draw(pool []question.Question, n int, rng *rand.Rand) []question.Question {
	usable := make([]question.Question, 0, len(pool))
	seen := make(map[string]bool, len(pool))
	for _, q := range pool {
		if seen[q.ID] || !q.Usable() {
			continue
		}
		seen[q.ID] = true
		usable = append(usable, q)
	}

	if n <= 0 || n > len(usable) {
		n = len(usable)
	}

	drawn := make([]question.Question, n)
	for i, j := range rng.Perm(len(usable))[:n] {
		drawn[i] = usable[j].WithShuffledChoices(rng)
	}
	return drawn
}

func (s *Session) State() State { return s.state }

func (s *Session) Position() int { return s.position }

func (s *Session) Len() int { return len(s.questions) }

// Questions returns a copy of the drawn question list.
func (s *Session) Questions() []question.Question {
	out := make([]question.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Current returns the question at the current position.
func (s *Session) Current() (question.Question, error) {
	if len(s.questions) == 0 {
		return question.Question{}, errors.Wrapf(ErrInvalidState, "no questions in state %s", s.state)
	}
	return s.questions[s.position], nil
}

// Answer returns the answer recorded for questionID, if any.
func (s *Session) Answer(questionID string) (Answer, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// SubmitChoice records choiceID as the answer to the current single-choice
// question. A later submission for the same question replaces it; a skipped
// question stays skipped.
func (s *Session) SubmitChoice(choiceID string) error {
	q, err := s.answerable()
	if err != nil {
		return err
	}
	switch q.Format.(type) {
	case question.SingleChoice:
		if !q.HasChoice(choiceID) {
			return errors.Wrapf(ErrInvalidAnswer, "choice %q does not belong to question %s", choiceID, q.ID)
		}
		if prev, ok := s.answers[q.ID]; ok && prev.Skipped() {
			return errors.Wrapf(ErrInvalidAnswer, "question %s was skipped", q.ID)
		}
	case question.OpenResponse:
		return errors.Wrap(ErrInvalidAnswer, "open response questions take a self-assessment")
	}

	s.answers[q.ID] = Answer{ChoiceID: choiceID, AnsweredAt: s.now()}
	return nil
}

// SubmitAssessment records the learner's self-grading of the current
// open-response question. Once recorded it cannot change.
func (s *Session) SubmitAssessment(a Assessment) error {
	q, err := s.answerable()
	if err != nil {
		return err
	}
	switch q.Format.(type) {
	case question.SingleChoice:
		return errors.Wrap(ErrInvalidAnswer, "single choice questions take a choice")
	case question.OpenResponse:
		if !a.Valid() {
			return errors.Wrapf(ErrInvalidAnswer, "unknown assessment %q", a)
		}
		if _, done := s.answers[q.ID]; done {
			return errors.Wrapf(ErrInvalidAnswer, "question %s already assessed", q.ID)
		}
	}

	s.answers[q.ID] = Answer{Assessment: a, AnsweredAt: s.now()}
	return nil
}

// Skip marks the current question as deliberately skipped. Only a question
// without a recorded answer can be skipped.
func (s *Session) Skip() error {
	q, err := s.answerable()
	if err != nil {
		return err
	}
	if _, done := s.answers[q.ID]; done {
		return errors.Wrapf(ErrInvalidAnswer, "question %s already answered", q.ID)
	}
	s.answers[q.ID] = Answer{Assessment: AssessmentSkipped, AnsweredAt: s.now()}
	return nil
}

func (s *Session) answerable() (question.Question, error) {
	if s.state != StateInProgress {
		return question.Question{}, errors.Wrapf(ErrInvalidAnswer, "session is %s", s.state)
	}
	return s.questions[s.position], nil
}

// Advance moves to the next question. On the last question it finalizes
// the session and reports true.
func (s *Session) Advance() (bool, error) {
	if s.state != StateInProgress {
		return false, errors.Wrapf(ErrInvalidState, "advance in state %s", s.state)
	}
	if s.position < len(s.questions)-1 {
		s.position++
		return false, nil
	}
	s.finalize()
	return true, nil
}

// Finish finalizes the session and returns its score. Calling it again
// returns the same score with finalized=false.
func (s *Session) Finish() (score scoring.Score, finalized bool, err error) {
	switch s.state {
	case StateInProgress:
		s.finalize()
		return s.score, true, nil
	case StateFinalized, StateReviewing:
		return s.score, false, nil
	}
	return scoring.Score{}, false, errors.Wrapf(ErrInvalidState, "finish in state %s", s.state)
}

func (s *Session) finalize() {
	correct := 0
	for _, q := range s.questions {
		if a, ok := s.answers[q.ID]; ok && Resolve(q, a) {
			correct++
		}
	}
	s.score = scoring.Compute(correct, len(s.questions))
	s.finalizedAt = s.now()
	s.state = StateFinalized
}

// Finalized reports whether the score is fixed.
func (s *Session) Finalized() bool {
	return s.state == StateFinalized || s.state == StateReviewing
}

// Score returns the final score once the session is finalized.
func (s *Session) Score() (scoring.Score, bool) {
	if !s.Finalized() {
		return scoring.Score{}, false
	}
	return s.score, true
}

// Points returns the leaderboard points the finalized session earns.
func (s *Session) Points() float64 {
	if !s.Finalized() {
		return 0
	}
	return scoring.AwardedPoints(s.score.Correct, s.score.Total)
}

// ToggleReview flips between the results screen and the answer review.
func (s *Session) ToggleReview() error {
	switch s.state {
	case StateFinalized:
		s.state = StateReviewing
	case StateReviewing:
		s.state = StateFinalized
	default:
		return errors.Wrapf(ErrInvalidState, "review in state %s", s.state)
	}
	return nil
}

// Deadline returns when a time-limited session must finalize.
func (s *Session) Deadline() (time.Time, bool) {
	return s.deadline, !s.deadline.IsZero()
}

// Expired reports whether a running time-limited session is past its deadline.
func (s *Session) Expired(now time.Time) bool {
	return s.state == StateInProgress && !s.deadline.IsZero() && !now.Before(s.deadline)
}
