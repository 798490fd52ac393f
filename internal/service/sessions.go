// internal/service/sessions.go
package service

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/scoring"
	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/store"
	"github.com/quizwise/backend/internal/worker"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFetchFailed     = errors.New("could not fetch the question pool")
	ErrReportPending   = errors.New("session results are still being persisted")
)

// SessionOptions tunes a SessionService.
type SessionOptions struct {
	PoolLimit      int // max questions fetched per pool, <= 0 for no limit
	PersistWorkers int
	Clock          func() time.Time
	NewRand        func() *rand.Rand

	// Retention keeps a persisted session available for report polling,
	// and bounds how long a session may sit in Loading or Empty.
	// Zero keeps sessions until they are abandoned.
	Retention time.Duration
	// IdleTimeout drops an untimed session in progress that has not been
	// touched for this long. Nothing is persisted for it. Zero disables it.
	IdleTimeout time.Duration
	// SweepInterval runs Sweep in the background; <= 0 disables it.
	SweepInterval time.Duration
}

// entry is a live session plus the bookkeeping for its persistence.
// mu serializes every access to sess.
type entry struct {
	mu        sync.Mutex
	sess      *session.Session
	timer     *time.Timer
	touched   time.Time
	enqueued  bool
	retrying  bool
	result    session.Result
	report    *Report
	settledAt time.Time
	persist   sync.WaitGroup
}

// SessionService owns the live sessions of the process. It drives the
// session state machine, fetches question pools and hands finalized
// results to the Recorder on a worker pool.
type SessionService struct {
	store    store.Store
	recorder *Recorder
	logger   *slog.Logger
	pool     *worker.Pool[Report]
	drained  chan struct{}
	stop     chan struct{}
	sweeping sync.WaitGroup

	poolLimit   int
	retention   time.Duration
	idleTimeout time.Duration
	now         func() time.Time
	newRand     func() *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewSessionService creates a SessionService and starts its persistence workers.
func NewSessionService(s store.Store, rec *Recorder, logger *slog.Logger, opts SessionOptions) *SessionService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
	}
	if opts.PersistWorkers < 1 {
		opts.PersistWorkers = 1
	}

	svc := &SessionService{
		store:       s,
		recorder:    rec,
		logger:      logger,
		pool:        worker.NewPool[Report](opts.PersistWorkers, opts.PersistWorkers*4),
		drained:     make(chan struct{}),
		stop:        make(chan struct{}),
		poolLimit:   opts.PoolLimit,
		retention:   opts.Retention,
		idleTimeout: opts.IdleTimeout,
		now:         opts.Clock,
		newRand:     opts.NewRand,
		sessions:    make(map[string]*entry),
	}
	go svc.collect()
	if opts.SweepInterval > 0 {
		svc.sweeping.Add(1)
		go svc.sweepEvery(opts.SweepInterval)
	}
	return svc
}

// collect logs every finished persistence job.
func (s *SessionService) collect() {
	defer close(s.drained)
	for res := range s.pool.Results() {
		if err := res.Output.Err(); err != nil {
			s.logger.Warn("session results incomplete", "session_id", res.JobID, "error", err)
			continue
		}
		s.logger.Info("session results persisted",
			"session_id", res.JobID,
			"session_record_id", res.Output.SessionRecordID,
		)
	}
}

// Close stops timers and waits for queued persistence to finish.
func (s *SessionService) Close() {
	close(s.stop)
	s.sweeping.Wait()

	s.mu.Lock()
	for _, e := range s.sessions {
		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	s.pool.Close()
	<-s.drained
}

// Start creates a session and loads its question pool. When the fetch
// fails the session stays registered in the loading state and the
// returned error wraps ErrFetchFailed; Load retries it.
func (s *SessionService) Start(ctx context.Context, cfg session.Config) (session.Snapshot, error) {
	sess, err := session.New(cfg, session.WithClock(s.now))
	if err != nil {
		return session.Snapshot{}, err
	}

	e := &entry{sess: sess, touched: s.now()}
	s.mu.Lock()
	s.sessions[sess.ID] = e
	s.mu.Unlock()

	s.logger.Info("session started",
		"session_id", sess.ID,
		"learner_id", sess.LearnerID,
		"kind", sess.Kind,
		"units", len(sess.UnitIDs),
	)

	return s.Load(ctx, sess.ID)
}

// Load fetches the pool of a session that is still loading and draws
// its questions.
func (s *SessionService) Load(ctx context.Context, sessionID string) (session.Snapshot, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}

	e.mu.Lock()
	state, units := e.sess.State(), e.sess.UnitIDs
	e.mu.Unlock()
	switch state {
	case session.StateLoading:
	case session.StateEmpty:
		snap, err := s.Get(sessionID)
		if err != nil {
			return snap, err
		}
		return snap, session.ErrPoolEmpty
	default:
		return s.Get(sessionID)
	}

	// fetch outside the entry lock; state transitions never wait on I/O
	pool, fetchErr := s.store.FetchQuestions(ctx, units, s.poolLimit)

	var snap session.Snapshot
	err = s.withEntry(sessionID, func(e *entry) error {
		if fetchErr != nil {
			s.logger.Error("question pool fetch failed", "session_id", sessionID, "error", fetchErr)
			snap = e.sess.Snapshot()
			return errors.Wrap(ErrFetchFailed, fetchErr.Error())
		}
		if e.sess.State() != session.StateLoading {
			// a concurrent Load won
			snap = e.sess.Snapshot()
			return nil
		}
		loadErr := e.sess.Load(pool, s.newRand())
		snap = e.sess.Snapshot()
		if loadErr != nil {
			return loadErr
		}
		if deadline, ok := e.sess.Deadline(); ok {
			e.timer = time.AfterFunc(deadline.Sub(s.now()), func() { s.expire(sessionID) })
		}
		return nil
	})
	return snap, err
}

// Get returns the current snapshot of a session.
func (s *SessionService) Get(sessionID string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.withEntry(sessionID, func(e *entry) error {
		snap = e.sess.Snapshot()
		return nil
	})
	return snap, err
}

func (s *SessionService) SubmitChoice(sessionID, choiceID string) (session.Snapshot, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		return sess.SubmitChoice(choiceID)
	})
}

func (s *SessionService) SubmitAssessment(sessionID string, a session.Assessment) (session.Snapshot, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		return sess.SubmitAssessment(a)
	})
}

func (s *SessionService) Skip(sessionID string) (session.Snapshot, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		return sess.Skip()
	})
}

// Advance moves to the next question, finalizing on the last one.
func (s *SessionService) Advance(sessionID string) (session.Snapshot, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		_, err := sess.Advance()
		return err
	})
}

// Finish finalizes the session and returns its score. The score comes
// from local state; persistence runs in the background.
func (s *SessionService) Finish(sessionID string) (scoring.Score, error) {
	var score scoring.Score
	err := s.withEntry(sessionID, func(e *entry) error {
		var err error
		score, _, err = e.sess.Finish()
		return err
	})
	return score, err
}

func (s *SessionService) ToggleReview(sessionID string) (session.Snapshot, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		return sess.ToggleReview()
	})
}

// Abandon drops a session. A session abandoned before finalization
// writes nothing.
func (s *SessionService) Abandon(sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	state := e.sess.State()
	e.mu.Unlock()

	s.logger.Info("session abandoned", "session_id", sessionID, "state", state)
	return nil
}

// Report returns the persistence report of a finalized session, or
// ErrReportPending while persistence is still running.
func (s *SessionService) Report(sessionID string) (Report, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return Report{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enqueued {
		return Report{}, errors.Wrapf(session.ErrInvalidState, "session is %s", e.sess.State())
	}
	if e.report == nil {
		return Report{}, ErrReportPending
	}
	return *e.report, nil
}

// RetryPersistence re-runs the failed persistence steps of a session.
func (s *SessionService) RetryPersistence(ctx context.Context, sessionID string) (Report, error) {
	prev, err := s.Report(sessionID)
	if err != nil {
		return Report{}, err
	}
	if len(prev.Failed()) == 0 {
		return prev, nil
	}

	e, err := s.entry(sessionID)
	if err != nil {
		return Report{}, err
	}
	e.mu.Lock()
	if e.retrying {
		e.mu.Unlock()
		return Report{}, ErrReportPending
	}
	e.retrying = true
	res := e.result
	e.mu.Unlock()

	report := s.recorder.Retry(ctx, res, prev)

	e.mu.Lock()
	e.report = &report
	e.settledAt = s.now()
	e.retrying = false
	e.mu.Unlock()
	return report, report.Err()
}

// WaitForSession blocks until queued persistence for a session has finished.
func (s *SessionService) WaitForSession(sessionID string) {
	e, err := s.entry(sessionID)
	if err != nil {
		return
	}
	e.persist.Wait()
}

func (s *SessionService) mutate(sessionID string, fn func(*session.Session) error) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.withEntry(sessionID, func(e *entry) error {
		err := fn(e.sess)
		snap = e.sess.Snapshot()
		return err
	})
	return snap, err
}

func (s *SessionService) entry(sessionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "id %s", sessionID)
	}
	return e, nil
}

// withEntry runs fn under the session's lock. A timed session past its
// deadline is finalized before fn sees it, and a session that ends up
// finalized is queued for persistence exactly once.
func (s *SessionService) withEntry(sessionID string, fn func(*entry) error) error {
	e, err := s.entry(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.touched = s.now()
	if e.sess.Expired(e.touched) {
		if _, _, err := e.sess.Finish(); err == nil {
			s.logger.Info("timed session expired", "session_id", sessionID)
		}
	}
	fnErr := fn(e)
	enqueue := false
	if e.sess.Finalized() && !e.enqueued {
		res, err := e.sess.Result()
		if err == nil {
			e.enqueued = true
			e.result = res
			e.persist.Add(1)
			enqueue = true
		}
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	e.mu.Unlock()

	if enqueue {
		s.enqueue(e)
	}
	return fnErr
}

func (s *SessionService) enqueue(e *entry) {
	res := e.result
	err := s.pool.Submit(res.SessionID, func() Report {
		defer e.persist.Done()
		// background context: persistence must outlive the request that finalized the session
		report := s.recorder.Persist(context.Background(), res)
		e.mu.Lock()
		e.report = &report
		e.settledAt = s.now()
		e.mu.Unlock()
		return report
	})
	if err != nil {
		s.logger.Error("could not queue session results", "session_id", res.SessionID, "error", err)
		e.persist.Done()
	}
}

// expire is the timer callback of timed sessions.
func (s *SessionService) expire(sessionID string) {
	if err := s.withEntry(sessionID, func(*entry) error { return nil }); err != nil && !errors.Is(err, ErrSessionNotFound) {
		s.logger.Error("expire session", "session_id", sessionID, "error", err)
	}
}

// Sweep drops sessions that are no longer needed and returns how many it
// removed: persisted sessions past the retention window, sessions stuck in
// Loading or Empty for as long, and untimed sessions idle past IdleTimeout.
// A session whose persistence is still running or being retried is kept.
func (s *SessionService) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for sessionID, e := range s.sessions {
		e.mu.Lock()
		reason := s.staleReason(e, now)
		if reason != "" {
			if e.timer != nil {
				e.timer.Stop()
			}
			delete(s.sessions, sessionID)
			removed++
			s.logger.Debug("session evicted", "session_id", sessionID, "reason", reason, "state", e.sess.State())
		}
		e.mu.Unlock()
	}
	return removed
}

// staleReason reports why e can be evicted, or "" to keep it. Callers hold e.mu.
func (s *SessionService) staleReason(e *entry, now time.Time) string {
	if e.enqueued {
		if e.report == nil || e.retrying || s.retention <= 0 {
			return ""
		}
		if now.Sub(e.settledAt) >= s.retention {
			return "retention elapsed"
		}
		return ""
	}

	switch e.sess.State() {
	case session.StateLoading, session.StateEmpty:
		if s.retention > 0 && now.Sub(e.touched) >= s.retention {
			return "never started"
		}
	case session.StateInProgress:
		// timed sessions finalize on their own deadline
		if _, timed := e.sess.Deadline(); timed {
			return ""
		}
		if s.idleTimeout > 0 && now.Sub(e.touched) >= s.idleTimeout {
			return "idle"
		}
	}
	return ""
}

func (s *SessionService) sweepEvery(interval time.Duration) {
	defer s.sweeping.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("swept sessions", "evicted", n)
			}
		}
	}
}
