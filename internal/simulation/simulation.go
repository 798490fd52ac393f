// simulation/simulation.go
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/service"
	"github.com/quizwise/backend/internal/worker"
)

// Options describes a simulated cohort.
type Options struct {
	Learners      int
	UnitIDs       []string
	AreaID        string
	QuestionCount int
	// Accuracy is the probability a simulated learner answers correctly.
	Accuracy float64
	// SkipRate is the probability a question is skipped.
	SkipRate float64
	Workers  int
	Seed     int64
}

// Summary is the outcome of one simulated learner's session.
type Summary struct {
	LearnerID string
	SessionID string
	Correct   int
	Total     int
	Points    float64
	Err       error
}

// Run plays one session per learner through svc and waits for their
// results to be persisted.
func Run(ctx context.Context, svc *service.SessionService, opts Options) ([]Summary, error) {
	if opts.Learners < 1 {
		return nil, errors.New("simulation needs at least one learner")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	pool := worker.NewPool[Summary](opts.Workers, opts.Learners)

	var (
		mu        sync.Mutex
		summaries []Summary
		collected = make(chan struct{})
	)
	go func() {
		defer close(collected)
		for res := range pool.Results() {
			mu.Lock()
			summaries = append(summaries, res.Output)
			mu.Unlock()
		}
	}()

	for i := 0; i < opts.Learners; i++ {
		learnerID := fmt.Sprintf("sim-learner-%03d", i+1)
		rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
		if err := pool.Submit(learnerID, func() Summary {
			return playSession(ctx, svc, opts, learnerID, rng)
		}); err != nil {
			return nil, err
		}
	}
	pool.Close()
	<-collected

	for _, s := range summaries {
		if s.SessionID != "" {
			svc.WaitForSession(s.SessionID)
		}
	}
	return summaries, nil
}

func playSession(ctx context.Context, svc *service.SessionService, opts Options, learnerID string, rng *rand.Rand) Summary {
	sum := Summary{LearnerID: learnerID}

	cfg := session.DefaultConfig()
	cfg.LearnerID = learnerID
	cfg.AreaID = opts.AreaID
	cfg.UnitIDs = opts.UnitIDs
	if opts.QuestionCount > 0 {
		cfg.QuestionCount = opts.QuestionCount
	}

	snap, err := svc.Start(ctx, cfg)
	sum.SessionID = snap.ID
	if err != nil {
		sum.Err = err
		return sum
	}

	for snap.State == session.StateInProgress {
		q := snap.Questions[snap.Position]
		if err := answer(svc, snap.ID, q, opts, rng); err != nil {
			sum.Err = err
			return sum
		}
		if snap, err = svc.Advance(snap.ID); err != nil {
			sum.Err = err
			return sum
		}
	}

	if snap.Score != nil {
		sum.Correct = snap.Score.Correct
		sum.Total = snap.Score.Total
		sum.Points = snap.Points
	}
	return sum
}

func answer(svc *service.SessionService, sessionID string, q question.Question, opts Options, rng *rand.Rand) error {
	if rng.Float64() < opts.SkipRate {
		_, err := svc.Skip(sessionID)
		return err
	}
	right := rng.Float64() < opts.Accuracy

	var err error
	switch q.Format.(type) {
	case question.SingleChoice:
		choices := q.Choices()
		correctID, _ := q.CorrectChoiceID()
		pick := correctID
		if !right {
			for _, c := range choices {
				if c.ID != correctID {
					pick = c.ID
					break
				}
			}
		}
		_, err = svc.SubmitChoice(sessionID, pick)
	case question.OpenResponse:
		a := session.AssessmentCorrect
		if !right {
			a = session.AssessmentIncorrect
			if rng.Intn(2) == 0 {
				a = session.AssessmentPartial
			}
		}
		_, err = svc.SubmitAssessment(sessionID, a)
	}
	return err
}
