package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/store"
)

var errBackend = errors.New("backend unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore implements store.Store in memory, counting calls and failing
// on demand. It deliberately has no atomic rank increment.
type fakeStore struct {
	mu sync.Mutex

	pool        []question.Question
	ranks       map[string]float64
	resolutions map[string]store.Resolution
	records     []store.SessionRecord
	outcomes    map[string][]store.QuestionOutcome

	calls map[string]int
	// failures[method] is how many upcoming calls of method fail
	failures map[string]int
}

func newFakeStore(pool ...question.Question) *fakeStore {
	return &fakeStore{
		pool:        pool,
		ranks:       make(map[string]float64),
		resolutions: make(map[string]store.Resolution),
		outcomes:    make(map[string][]store.QuestionOutcome),
		calls:       make(map[string]int),
		failures:    make(map[string]int),
	}
}

func (f *fakeStore) failNext(method string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = n
}

func (f *fakeStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) persistenceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for m, n := range f.calls {
		if m != "FetchQuestions" {
			total += n
		}
	}
	return total
}

// call records a call and reports whether it should fail. Callers hold f.mu.
func (f *fakeStore) call(method string) error {
	f.calls[method]++
	if f.failures[method] > 0 {
		f.failures[method]--
		return errBackend
	}
	return nil
}

func (f *fakeStore) FetchQuestions(_ context.Context, unitIDs []string, limit int) ([]question.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("FetchQuestions"); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool)
	for _, u := range unitIDs {
		wanted[u] = true
	}
	var out []question.Question
	for _, q := range f.pool {
		if wanted[q.UnitID] {
			out = append(out, q)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertSessionRecord(_ context.Context, rec store.SessionRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("InsertSessionRecord"); err != nil {
		return "", err
	}
	f.records = append(f.records, rec)
	return "rec-" + rec.SessionID, nil
}

func (f *fakeStore) InsertQuestionOutcomes(_ context.Context, recID string, outcomes []store.QuestionOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("InsertQuestionOutcomes"); err != nil {
		return err
	}
	f.outcomes[recID] = append(f.outcomes[recID], outcomes...)
	return nil
}

func (f *fakeStore) GetRankEntry(_ context.Context, learnerID string) (*store.RankEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetRankEntry"); err != nil {
		return nil, err
	}
	p, ok := f.ranks[learnerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.RankEntry{LearnerID: learnerID, Points: p}, nil
}

func (f *fakeStore) UpsertRankEntry(_ context.Context, learnerID string, points float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpsertRankEntry"); err != nil {
		return err
	}
	f.ranks[learnerID] = points
	return nil
}

func (f *fakeStore) GetResolution(_ context.Context, learnerID, questionID string) (*store.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetResolution"); err != nil {
		return nil, err
	}
	r, ok := f.resolutions[learnerID+"/"+questionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) UpsertResolution(_ context.Context, r store.Resolution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpsertResolution"); err != nil {
		return err
	}
	f.resolutions[r.LearnerID+"/"+r.QuestionID] = r
	return nil
}

func (f *fakeStore) rank(learnerID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ranks[learnerID]
}

func (f *fakeStore) resolution(learnerID, questionID string) (store.Resolution, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resolutions[learnerID+"/"+questionID]
	return r, ok
}

// incrementingStore adds the atomic rank increment to fakeStore.
type incrementingStore struct {
	*fakeStore
}

func (s incrementingStore) AddRankPoints(_ context.Context, learnerID string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("AddRankPoints"); err != nil {
		return 0, err
	}
	s.ranks[learnerID] += delta
	return s.ranks[learnerID], nil
}
