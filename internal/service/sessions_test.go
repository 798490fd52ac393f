package service_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/scoring"
	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/service"
)

func twoQuestionPool(t *testing.T) []question.Question {
	t.Helper()
	sc, err := question.NewSingleChoice("u1", "2 + 2 = ?", "", []string{"3", "4", "5"}, 1)
	require.NoError(t, err)
	open, err := question.New("u1", "Explain associativity", "")
	require.NoError(t, err)
	return []question.Question{*sc, *open}
}

func newService(t *testing.T, fs *fakeStore) *service.SessionService {
	t.Helper()
	rec := service.NewRecorder(fs, discardLogger(), 2, 0)
	svc := service.NewSessionService(fs, rec, discardLogger(), service.SessionOptions{
		PoolLimit:      50,
		PersistWorkers: 2,
		NewRand:        func() *rand.Rand { return rand.New(rand.NewSource(7)) },
	})
	t.Cleanup(svc.Close)
	return svc
}

func practiceConfig(count int) session.Config {
	cfg := session.DefaultConfig()
	cfg.LearnerID = "learner-1"
	cfg.AreaID = "area-1"
	cfg.UnitIDs = []string{"u1"}
	cfg.QuestionCount = count
	return cfg
}

// answerCurrent answers the current question: single choice correctly,
// open response with the given assessment.
func answerCurrent(t *testing.T, svc *service.SessionService, snap session.Snapshot, a session.Assessment) session.Snapshot {
	t.Helper()
	q := snap.Questions[snap.Position]
	var err error
	switch q.Format.(type) {
	case question.SingleChoice:
		correct, ok := q.CorrectChoiceID()
		require.True(t, ok)
		snap, err = svc.SubmitChoice(snap.ID, correct)
	case question.OpenResponse:
		snap, err = svc.SubmitAssessment(snap.ID, a)
	}
	require.NoError(t, err)
	return snap
}

func TestSessionScenario(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)
	require.Equal(t, session.StateInProgress, snap.State)
	require.Len(t, snap.Questions, 2)

	snap = answerCurrent(t, svc, snap, session.AssessmentPartial)
	snap, err = svc.Advance(snap.ID)
	require.NoError(t, err)
	snap = answerCurrent(t, svc, snap, session.AssessmentPartial)
	snap, err = svc.Advance(snap.ID)
	require.NoError(t, err)

	require.Equal(t, session.StateFinalized, snap.State)
	require.NotNil(t, snap.Score)
	assert.Equal(t, 50.0, snap.Score.Percentage)
	assert.Equal(t, scoring.TierNeedsImprovement, snap.Score.Tier)
	assert.InDelta(t, 1.5, snap.Points, 1e-9)

	svc.WaitForSession(snap.ID)
	report, err := svc.Report(snap.ID)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.InDelta(t, 1.5, fs.rank("learner-1"), 1e-9)

	r, ok := fs.resolution("learner-1", snap.Questions[0].ID)
	require.True(t, ok)
	assert.Equal(t, snap.Questions[0].Kind() == question.KindSingleChoice, r.Correct)
}

func TestFinishTwicePersistsOnce(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)
	snap = answerCurrent(t, svc, snap, session.AssessmentCorrect)

	first, err := svc.Finish(snap.ID)
	require.NoError(t, err)
	second, err := svc.Finish(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.Correct)
	assert.Equal(t, 2, first.Total)

	svc.WaitForSession(snap.ID)
	assert.Equal(t, 1, fs.count("InsertSessionRecord"))
	assert.Equal(t, 1, fs.count("UpsertRankEntry"))
}

func TestAbandonWritesNothing(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)
	answerCurrent(t, svc, snap, session.AssessmentCorrect)

	require.NoError(t, svc.Abandon(snap.ID))
	assert.Zero(t, fs.persistenceCalls())

	_, err = svc.Get(snap.ID)
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))
	assert.True(t, errors.Is(svc.Abandon(snap.ID), service.ErrSessionNotFound))
}

func TestSubmitAfterFinalizeIsRejected(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)
	_, err = svc.Finish(snap.ID)
	require.NoError(t, err)

	_, err = svc.Skip(snap.ID)
	assert.True(t, errors.Is(err, session.ErrInvalidAnswer))
	_, err = svc.SubmitAssessment(snap.ID, session.AssessmentCorrect)
	assert.True(t, errors.Is(err, session.ErrInvalidAnswer))

	snap, err = svc.ToggleReview(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateReviewing, snap.State)
}

func TestFetchFailureCanBeRetried(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	fs.failNext("FetchQuestions", 1)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.True(t, errors.Is(err, service.ErrFetchFailed), "got %v", err)
	assert.Equal(t, session.StateLoading, snap.State)
	require.NotEmpty(t, snap.ID)

	snap, err = svc.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateInProgress, snap.State)
	assert.Len(t, snap.Questions, 2)

	// loading again is a no-op
	again, err := svc.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Questions, again.Questions)
	assert.Equal(t, 2, fs.count("FetchQuestions"))
}

func TestEmptyPool(t *testing.T) {
	fs := newFakeStore()
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(5))
	assert.True(t, errors.Is(err, session.ErrPoolEmpty))
	assert.Equal(t, session.StateEmpty, snap.State)

	_, err = svc.Load(context.Background(), snap.ID)
	assert.True(t, errors.Is(err, session.ErrPoolEmpty))

	_, err = svc.Finish(snap.ID)
	assert.True(t, errors.Is(err, session.ErrInvalidState))
	assert.Zero(t, fs.persistenceCalls())
}

func TestInvalidConfig(t *testing.T) {
	svc := newService(t, newFakeStore())

	cfg := practiceConfig(5)
	cfg.UnitIDs = nil
	_, err := svc.Start(context.Background(), cfg)
	assert.True(t, errors.Is(err, session.ErrInvalidConfig))
}

func TestTimedExamFinalizesAtDeadline(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	limit := 30 * time.Millisecond
	cfg := practiceConfig(2)
	cfg.Kind = session.KindTimedExam
	cfg.TimeLimit = &limit

	snap, err := svc.Start(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, snap.Deadline)
	answerCurrent(t, svc, snap, session.AssessmentCorrect)

	assert.Eventually(t, func() bool {
		_, err := svc.Report(snap.ID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	final, err := svc.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateFinalized, final.State)
	require.NotNil(t, final.Score)
	assert.Equal(t, 1, final.Score.Correct)
	assert.Equal(t, 1, fs.count("InsertSessionRecord"))
}

func TestReportBeforeFinalize(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)

	_, err = svc.Report(snap.ID)
	assert.True(t, errors.Is(err, session.ErrInvalidState))
}

func TestRetryPersistence(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	fs.failNext("UpsertRankEntry", 2)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)
	_, err = svc.Finish(snap.ID)
	require.NoError(t, err)
	svc.WaitForSession(snap.ID)

	report, err := svc.Report(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, []service.Step{service.StepRank}, report.Failed())

	report, err = svc.RetryPersistence(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, 1, fs.count("InsertSessionRecord"))
}

// manualClock is a goroutine-safe clock moved forward by hand.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSweepEvictsFinishedAndStaleSessions(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	clock := &manualClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := service.NewRecorder(fs, discardLogger(), 2, 0)
	svc := service.NewSessionService(fs, rec, discardLogger(), service.SessionOptions{
		PersistWorkers: 2,
		Clock:          clock.Now,
		Retention:      10 * time.Minute,
		IdleTimeout:    time.Hour,
	})
	t.Cleanup(svc.Close)
	ctx := context.Background()

	const finished = 100
	var finishedIDs []string
	for i := 0; i < finished; i++ {
		snap, err := svc.Start(ctx, practiceConfig(2))
		require.NoError(t, err)
		_, err = svc.Finish(snap.ID)
		require.NoError(t, err)
		svc.WaitForSession(snap.ID)
		finishedIDs = append(finishedIDs, snap.ID)
	}

	fs.failNext("FetchQuestions", 1)
	stuck, err := svc.Start(ctx, practiceConfig(2))
	require.True(t, errors.Is(err, service.ErrFetchFailed))

	idle, err := svc.Start(ctx, practiceConfig(2))
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	assert.Zero(t, svc.Sweep(), "nothing is stale inside the retention window")
	_, err = svc.Report(finishedIDs[0])
	require.NoError(t, err)

	clock.Advance(time.Minute)
	assert.Equal(t, finished+1, svc.Sweep())
	_, err = svc.Report(finishedIDs[0])
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))
	_, err = svc.Get(stuck.ID)
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))

	// still inside its idle timeout
	_, err = svc.Get(idle.ID)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	assert.Equal(t, 1, svc.Sweep())
	_, err = svc.Get(idle.ID)
	assert.True(t, errors.Is(err, service.ErrSessionNotFound))

	assert.Equal(t, finished, fs.count("InsertSessionRecord"), "evicting an unfinished session writes nothing")
}

func TestSweepKeepsSessionsWithoutRetention(t *testing.T) {
	fs := newFakeStore(twoQuestionPool(t)...)
	svc := newService(t, fs)

	snap, err := svc.Start(context.Background(), practiceConfig(2))
	require.NoError(t, err)
	_, err = svc.Finish(snap.ID)
	require.NoError(t, err)
	svc.WaitForSession(snap.ID)

	assert.Zero(t, svc.Sweep())
	_, err = svc.Report(snap.ID)
	require.NoError(t, err)
}
