package session

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/scoring"
)

// Outcome is the per-question line of a finalized session.
type Outcome struct {
	QuestionID string
	UnitID     string
	Correct    bool
	Answered   bool // false when unanswered or skipped
}

// Result is everything results persistence needs from a finalized session.
type Result struct {
	SessionID string
	LearnerID string
	AreaID    string
	Kind      Kind
	Score     scoring.Score
	Points    float64
	Outcomes  []Outcome
}

// Result returns the persistence payload of a finalized session.
func (s *Session) Result() (Result, error) {
	if !s.Finalized() {
		return Result{}, errors.Wrapf(ErrInvalidState, "result in state %s", s.state)
	}

	outcomes := make([]Outcome, len(s.questions))
	for i, q := range s.questions {
		a, ok := s.answers[q.ID]
		outcomes[i] = Outcome{
			QuestionID: q.ID,
			UnitID:     q.UnitID,
			Correct:    ok && Resolve(q, a),
			Answered:   ok && !a.Skipped(),
		}
	}

	return Result{
		SessionID: s.ID,
		LearnerID: s.LearnerID,
		AreaID:    s.AreaID,
		Kind:      s.Kind,
		Score:     s.score,
		Points:    s.Points(),
		Outcomes:  outcomes,
	}, nil
}

// Snapshot is a read-only copy of a session for rendering.
type Snapshot struct {
	ID          string
	LearnerID   string
	AreaID      string
	Kind        Kind
	State       State
	Position    int
	Questions   []question.Question
	Answers     map[string]Answer
	Score       *scoring.Score
	Points      float64
	StartedAt   time.Time
	Deadline    *time.Time
	FinalizedAt *time.Time
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	answers := make(map[string]Answer, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	snap := Snapshot{
		ID:        s.ID,
		LearnerID: s.LearnerID,
		AreaID:    s.AreaID,
		Kind:      s.Kind,
		State:     s.state,
		Position:  s.position,
		Questions: s.Questions(),
		Answers:   answers,
		StartedAt: s.startedAt,
	}
	if d, ok := s.Deadline(); ok {
		snap.Deadline = &d
	}
	if score, ok := s.Score(); ok {
		snap.Score = &score
		snap.Points = s.Points()
		at := s.finalizedAt
		snap.FinalizedAt = &at
	}
	return snap
}
