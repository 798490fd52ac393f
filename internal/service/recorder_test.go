package service_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwise/backend/internal/domain/scoring"
	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/service"
	"github.com/quizwise/backend/internal/store"
)

func sampleResult() session.Result {
	return session.Result{
		SessionID: "s-1",
		LearnerID: "learner-1",
		AreaID:    "area-1",
		Kind:      session.KindPractice,
		Score:     scoring.Compute(1, 3),
		Points:    scoring.AwardedPoints(1, 3),
		Outcomes: []session.Outcome{
			{QuestionID: "q1", UnitID: "u1", Correct: true, Answered: true},
			{QuestionID: "q2", UnitID: "u1", Correct: false, Answered: true},
			{QuestionID: "q3", UnitID: "u2", Correct: false, Answered: false},
		},
	}
}

func TestPersistWritesEveryStep(t *testing.T) {
	fs := newFakeStore()
	rec := service.NewRecorder(fs, discardLogger(), 3, 0)

	report := rec.Persist(context.Background(), sampleResult())

	require.NoError(t, report.Err())
	assert.True(t, report.Complete())
	assert.Equal(t, "rec-s-1", report.SessionRecordID)
	require.NotNil(t, report.RankPoints)
	assert.InDelta(t, 4.0/3.0, *report.RankPoints, 1e-9)

	assert.Equal(t, 1, fs.count("InsertSessionRecord"))
	assert.Equal(t, 1, fs.count("InsertQuestionOutcomes"))
	assert.Len(t, fs.outcomes["rec-s-1"], 3, "skipped questions still get an outcome row")

	// only answered questions touch resolutions
	assert.Equal(t, 2, fs.count("GetResolution"))
	assert.Equal(t, 2, fs.count("UpsertResolution"))
	_, ok := fs.resolution("learner-1", "q3")
	assert.False(t, ok)
}

func TestPersistUsesAtomicIncrementWhenAvailable(t *testing.T) {
	fs := newFakeStore()
	fs.ranks["learner-1"] = 10
	rec := service.NewRecorder(incrementingStore{fs}, discardLogger(), 1, 0)

	report := rec.Persist(context.Background(), sampleResult())

	require.NoError(t, report.Err())
	assert.Equal(t, 1, fs.count("AddRankPoints"))
	assert.Zero(t, fs.count("GetRankEntry"))
	assert.Zero(t, fs.count("UpsertRankEntry"))
	assert.InDelta(t, 10+4.0/3.0, fs.rank("learner-1"), 1e-9)
}

func TestRankFallbackAddsToExistingPoints(t *testing.T) {
	fs := newFakeStore()
	fs.ranks["learner-1"] = 2
	rec := service.NewRecorder(fs, discardLogger(), 1, 0)

	res := sampleResult()
	res.Points = 14.4
	report := rec.Persist(context.Background(), res)

	require.NoError(t, report.Err())
	assert.InDelta(t, 16.4, fs.rank("learner-1"), 1e-9)
}

func TestResolutionsNeverRegress(t *testing.T) {
	fs := newFakeStore()
	fs.resolutions["learner-1/q1"] = store.Resolution{LearnerID: "learner-1", QuestionID: "q1", UnitID: "u1", Correct: true}
	fs.resolutions["learner-1/q2"] = store.Resolution{LearnerID: "learner-1", QuestionID: "q2", UnitID: "u1", Correct: false}
	rec := service.NewRecorder(fs, discardLogger(), 1, 0)

	res := sampleResult()
	res.Outcomes = []session.Outcome{
		{QuestionID: "q1", UnitID: "u1", Correct: false, Answered: true},
		{QuestionID: "q2", UnitID: "u1", Correct: true, Answered: true},
	}
	report := rec.Persist(context.Background(), res)
	require.NoError(t, report.Err())

	r1, _ := fs.resolution("learner-1", "q1")
	assert.True(t, r1.Correct, "a correct resolution stays correct")
	r2, _ := fs.resolution("learner-1", "q2")
	assert.True(t, r2.Correct, "an incorrect resolution is upgraded")
	assert.Equal(t, 1, fs.count("UpsertResolution"))
}

func TestStepRetriesBeforeFailing(t *testing.T) {
	fs := newFakeStore()
	fs.failNext("InsertSessionRecord", 2)
	rec := service.NewRecorder(fs, discardLogger(), 3, 0)

	report := rec.Persist(context.Background(), sampleResult())

	require.NoError(t, report.Err())
	assert.Equal(t, 3, report.Steps[service.StepSessionRecord].Attempts)
	assert.Equal(t, 3, fs.count("InsertSessionRecord"))
}

func TestOutcomesWaitForSessionRecord(t *testing.T) {
	fs := newFakeStore()
	fs.failNext("InsertSessionRecord", 5)
	rec := service.NewRecorder(fs, discardLogger(), 2, 0)

	report := rec.Persist(context.Background(), sampleResult())

	assert.Equal(t, []service.Step{service.StepSessionRecord, service.StepQuestionOutcomes}, report.Failed())
	assert.Zero(t, fs.count("InsertQuestionOutcomes"))
	assert.Equal(t, service.StatusSucceeded, report.Steps[service.StepRank].Status)
	assert.Equal(t, service.StatusSucceeded, report.Steps[service.StepResolutions].Status)

	err := report.Err()
	var pe *service.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "s-1", pe.SessionID)
	assert.True(t, errors.Is(err, service.ErrDependencyFailed))
	assert.True(t, errors.Is(err, errBackend))
}

func TestRetryRunsOnlyFailedSteps(t *testing.T) {
	fs := newFakeStore()
	fs.failNext("InsertQuestionOutcomes", 1)
	rec := service.NewRecorder(fs, discardLogger(), 1, 0)
	res := sampleResult()

	first := rec.Persist(context.Background(), res)
	require.Equal(t, []service.Step{service.StepQuestionOutcomes}, first.Failed())

	second := rec.Retry(context.Background(), res, first)

	require.NoError(t, second.Err())
	assert.True(t, second.Complete())
	assert.Equal(t, first.SessionRecordID, second.SessionRecordID)
	assert.Equal(t, 1, fs.count("InsertSessionRecord"))
	assert.Equal(t, 2, fs.count("InsertQuestionOutcomes"))
	assert.Equal(t, 1, fs.count("UpsertRankEntry"))
	assert.Equal(t, 2, fs.count("GetResolution"))

	// nothing failed, nothing to do
	third := rec.Retry(context.Background(), res, second)
	assert.True(t, third.Complete())
	assert.Equal(t, 2, fs.count("InsertQuestionOutcomes"))
}

func TestPartialResolutionFailureIsReported(t *testing.T) {
	fs := newFakeStore()
	fs.failNext("GetResolution", 1)
	rec := service.NewRecorder(fs, discardLogger(), 1, 0)

	report := rec.Persist(context.Background(), sampleResult())

	assert.Equal(t, []service.Step{service.StepResolutions}, report.Failed())
	assert.Contains(t, report.Steps[service.StepResolutions].Error, "1 resolution(s) not saved")
}
