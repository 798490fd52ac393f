// internal/service/recorder.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/store"
)

// Step names one unit of results persistence.
type Step string

const (
	StepSessionRecord    Step = "session_record"
	StepQuestionOutcomes Step = "question_outcomes"
	StepRank             Step = "rank"
	StepResolutions      Step = "resolutions"
)

// Steps lists every persistence step in reporting order.
var Steps = []Step{StepSessionRecord, StepQuestionOutcomes, StepRank, StepResolutions}

type StepStatus string

const (
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

// ErrDependencyFailed marks a step that could not run because a step it
// depends on failed.
var ErrDependencyFailed = errors.New("dependency step failed")

// StepReport is the outcome of one persistence step.
type StepReport struct {
	Step     Step       `json:"step"`
	Status   StepStatus `json:"status"`
	Attempts int        `json:"attempts"`
	Error    string     `json:"error,omitempty"`

	err error
}

// Report describes what results persistence achieved for one session.
type Report struct {
	SessionID       string               `json:"session_id"`
	SessionRecordID string               `json:"session_record_id,omitempty"`
	RankPoints      *float64             `json:"rank_points,omitempty"`
	Steps           map[Step]*StepReport `json:"steps"`
	FinishedAt      time.Time            `json:"finished_at"`
}

// Failed returns the failed steps in reporting order.
func (r Report) Failed() []Step {
	var failed []Step
	for _, s := range Steps {
		if sr, ok := r.Steps[s]; ok && sr.Status == StatusFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Complete reports whether every step succeeded.
func (r Report) Complete() bool {
	for _, s := range Steps {
		sr, ok := r.Steps[s]
		if !ok || sr.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Err returns a *PersistenceError when any step failed.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	pe := &PersistenceError{SessionID: r.SessionID, Causes: make(map[Step]error, len(failed))}
	for _, s := range failed {
		pe.Steps = append(pe.Steps, s)
		pe.Causes[s] = r.Steps[s].err
	}
	return pe
}

// PersistenceError reports a partially persisted session. The score stays
// valid; only the listed steps need retrying.
type PersistenceError struct {
	SessionID string
	Steps     []Step
	Causes    map[Step]error
}

func (e *PersistenceError) Error() string {
	parts := make([]string, len(e.Steps))
	for i, s := range e.Steps {
		if cause := e.Causes[s]; cause != nil {
			parts[i] = fmt.Sprintf("%s: %v", s, cause)
		} else {
			parts[i] = string(s)
		}
	}
	return fmt.Sprintf("session %s partially persisted (%s)", e.SessionID, strings.Join(parts, "; "))
}

func (e *PersistenceError) Unwrap() []error {
	errs := make([]error, 0, len(e.Causes))
	for _, s := range e.Steps {
		if cause := e.Causes[s]; cause != nil {
			errs = append(errs, cause)
		}
	}
	return errs
}

// Recorder writes finalized session results through the store.
type Recorder struct {
	store      store.Store
	logger     *slog.Logger
	retries    int
	retryDelay time.Duration
	now        func() time.Time
}

// NewRecorder creates a Recorder. retries is the number of attempts per
// step and is at least 1.
func NewRecorder(s store.Store, logger *slog.Logger, retries int, retryDelay time.Duration) *Recorder {
	if retries < 1 {
		retries = 1
	}
	return &Recorder{
		store:      s,
		logger:     logger,
		retries:    retries,
		retryDelay: retryDelay,
		now:        time.Now,
	}
}

// Persist runs every persistence step for res.
//
// The session record is written first and the question outcomes only
// once it has an ID. Rank and resolutions do not depend on it and run
// concurrently with that chain.
func (r *Recorder) Persist(ctx context.Context, res session.Result) Report {
	report := Report{SessionID: res.SessionID, Steps: make(map[Step]*StepReport, len(Steps))}
	r.run(ctx, res, &report, Steps)
	return report
}

// Retry re-runs the steps that failed in prev and returns the merged report.
func (r *Recorder) Retry(ctx context.Context, res session.Result, prev Report) Report {
	report := Report{
		SessionID:       prev.SessionID,
		SessionRecordID: prev.SessionRecordID,
		RankPoints:      prev.RankPoints,
		Steps:           make(map[Step]*StepReport, len(Steps)),
	}
	for s, sr := range prev.Steps {
		cp := *sr
		report.Steps[s] = &cp
	}
	failed := prev.Failed()
	if len(failed) == 0 {
		return report
	}
	r.run(ctx, res, &report, failed)
	return report
}

func (r *Recorder) run(ctx context.Context, res session.Result, report *Report, steps []Step) {
	want := make(map[Step]bool, len(steps))
	for _, s := range steps {
		want[s] = true
	}

	var mu sync.Mutex
	record := func(sr *StepReport) {
		mu.Lock()
		report.Steps[sr.Step] = sr
		mu.Unlock()
	}

	var g errgroup.Group

	if want[StepSessionRecord] || want[StepQuestionOutcomes] {
		g.Go(func() error {
			recordID := report.SessionRecordID
			if want[StepSessionRecord] {
				sr := r.attempt(ctx, res.SessionID, StepSessionRecord, func(ctx context.Context) error {
					id, err := r.store.InsertSessionRecord(ctx, store.SessionRecord{
						SessionID: res.SessionID,
						LearnerID: res.LearnerID,
						AreaID:    res.AreaID,
						Points:    res.Points,
						Correct:   res.Score.Correct,
						Total:     res.Score.Total,
					})
					if err != nil {
						return err
					}
					recordID = id
					return nil
				})
				record(sr)
				mu.Lock()
				report.SessionRecordID = recordID
				mu.Unlock()
			}
			if !want[StepQuestionOutcomes] {
				return nil
			}
			if recordID == "" {
				sr := &StepReport{Step: StepQuestionOutcomes, Status: StatusFailed, err: ErrDependencyFailed}
				sr.Error = sr.err.Error()
				record(sr)
				return ErrDependencyFailed
			}
			sr := r.attempt(ctx, res.SessionID, StepQuestionOutcomes, func(ctx context.Context) error {
				return r.store.InsertQuestionOutcomes(ctx, recordID, questionOutcomes(res))
			})
			record(sr)
			return sr.err
		})
	}

	if want[StepRank] {
		g.Go(func() error {
			var total float64
			sr := r.attempt(ctx, res.SessionID, StepRank, func(ctx context.Context) error {
				var err error
				total, err = r.addRankPoints(ctx, res.LearnerID, res.Points)
				return err
			})
			record(sr)
			if sr.err == nil {
				mu.Lock()
				report.RankPoints = &total
				mu.Unlock()
			}
			return sr.err
		})
	}

	if want[StepResolutions] {
		g.Go(func() error {
			sr := r.attempt(ctx, res.SessionID, StepResolutions, func(ctx context.Context) error {
				return r.updateResolutions(ctx, res)
			})
			record(sr)
			return sr.err
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Warn("session results partially persisted",
			"session_id", res.SessionID,
			"failed_steps", report.Failed(),
		)
	}
	report.FinishedAt = r.now()
}

// attempt runs fn up to r.retries times, sleeping retryDelay in between.
func (r *Recorder) attempt(ctx context.Context, sessionID string, step Step, fn func(context.Context) error) *StepReport {
	sr := &StepReport{Step: step}
	for sr.Attempts < r.retries {
		sr.Attempts++
		err := fn(ctx)
		if err == nil {
			sr.Status = StatusSucceeded
			sr.err = nil
			sr.Error = ""
			return sr
		}
		sr.err = err
		r.logger.Error("persistence step failed",
			"session_id", sessionID,
			"step", step,
			"attempt", sr.Attempts,
			"error", err,
		)
		if sr.Attempts >= r.retries {
			break
		}
		select {
		case <-ctx.Done():
			sr.err = errors.Wrap(ctx.Err(), err.Error())
			sr.Attempts = r.retries
		case <-time.After(r.retryDelay):
		}
	}
	sr.Status = StatusFailed
	sr.Error = sr.err.Error()
	return sr
}

// addRankPoints adds delta to the learner's cumulative points. Stores
// without an atomic increment fall back to read-then-write, where two
// sessions of the same learner finalizing together can lose one update.
func (r *Recorder) addRankPoints(ctx context.Context, learnerID string, delta float64) (float64, error) {
	if inc, ok := r.store.(store.RankIncrementer); ok {
		return inc.AddRankPoints(ctx, learnerID, delta)
	}

	current := 0.0
	entry, err := r.store.GetRankEntry(ctx, learnerID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return 0, errors.Wrap(err, "read rank entry")
	default:
		current = entry.Points
	}
	total := current + delta
	if err := r.store.UpsertRankEntry(ctx, learnerID, total); err != nil {
		return 0, errors.Wrap(err, "write rank entry")
	}
	return total, nil
}

// updateResolutions records first attempts and upgrades incorrect
// resolutions that are now correct. Correct resolutions are left alone.
func (r *Recorder) updateResolutions(ctx context.Context, res session.Result) error {
	var failed []string
	var firstErr error
	for _, o := range res.Outcomes {
		if !o.Answered {
			continue
		}
		if err := r.resolve(ctx, res.LearnerID, o); err != nil {
			failed = append(failed, o.QuestionID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		sort.Strings(failed)
		return errors.Wrapf(firstErr, "%d resolution(s) not saved (%s)", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func (r *Recorder) resolve(ctx context.Context, learnerID string, o session.Outcome) error {
	prev, err := r.store.GetResolution(ctx, learnerID, o.QuestionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	case prev.Correct || !o.Correct:
		return nil
	}
	return r.store.UpsertResolution(ctx, store.Resolution{
		LearnerID:  learnerID,
		QuestionID: o.QuestionID,
		UnitID:     o.UnitID,
		Correct:    o.Correct,
	})
}

func questionOutcomes(res session.Result) []store.QuestionOutcome {
	out := make([]store.QuestionOutcome, len(res.Outcomes))
	for i, o := range res.Outcomes {
		out[i] = store.QuestionOutcome{
			QuestionID: o.QuestionID,
			UnitID:     o.UnitID,
			Correct:    o.Correct,
		}
	}
	return out
}
