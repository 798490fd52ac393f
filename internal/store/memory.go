package store

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/subject"
	"github.com/quizwise/backend/internal/id"
)

// MemoryStore keeps everything in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu          sync.Mutex
	areas       map[string]subject.Area
	units       map[string]subject.Unit
	questions   map[string]question.Question
	records     map[string]SessionRecord
	outcomes    map[string][]QuestionOutcome
	ranks       map[string]RankEntry
	resolutions map[string]map[string]Resolution
	rng         *rand.Rand
}

var _ Backend = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{
		areas:       make(map[string]subject.Area),
		units:       make(map[string]subject.Unit),
		questions:   make(map[string]question.Question),
		records:     make(map[string]SessionRecord),
		outcomes:    make(map[string][]QuestionOutcome),
		ranks:       make(map[string]RankEntry),
		resolutions: make(map[string]map[string]Resolution),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SaveArea(_ context.Context, a *subject.Area) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.areas[a.ID]; ok {
		return errors.Wrapf(ErrConflict, "area %s", a.ID)
	}
	m.areas[a.ID] = *a
	return nil
}

func (m *MemoryStore) SaveUnit(_ context.Context, u *subject.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.areas[u.AreaID]; !ok {
		return errors.Wrapf(ErrNotFound, "area %s", u.AreaID)
	}
	if _, ok := m.units[u.ID]; ok {
		return errors.Wrapf(ErrConflict, "unit %s", u.ID)
	}
	m.units[u.ID] = *u
	return nil
}

func (m *MemoryStore) SaveQuestion(_ context.Context, q *question.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[q.UnitID]; !ok {
		return errors.Wrapf(ErrNotFound, "unit %s", q.UnitID)
	}
	if _, ok := m.questions[q.ID]; ok {
		return errors.Wrapf(ErrConflict, "question %s", q.ID)
	}
	m.questions[q.ID] = *q
	return nil
}

func (m *MemoryStore) ListAreas(_ context.Context) ([]*subject.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	areas := make([]*subject.Area, 0, len(m.areas))
	for _, a := range m.areas {
		a := a
		areas = append(areas, &a)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].Name < areas[j].Name })
	return areas, nil
}

func (m *MemoryStore) ListUnits(_ context.Context, areaID string) ([]*subject.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var units []*subject.Unit
	for _, u := range m.units {
		if u.AreaID == areaID {
			u := u
			units = append(units, &u)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}

func (m *MemoryStore) unitQuestions(unitIDs []string) []question.Question {
	wanted := make(map[string]bool, len(unitIDs))
	for _, u := range unitIDs {
		wanted[u] = true
	}
	var out []question.Question
	for _, q := range m.questions {
		if wanted[q.UnitID] {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) FetchQuestions(_ context.Context, unitIDs []string, limit int) ([]question.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.unitQuestions(unitIDs)
	m.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListUnitQuestions(_ context.Context, unitIDs []string) ([]question.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unitQuestions(unitIDs), nil
}

func (m *MemoryStore) InsertSessionRecord(_ context.Context, rec SessionRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for recID, existing := range m.records {
		if existing.SessionID == rec.SessionID {
			return recID, nil
		}
	}
	recID := id.GenerateID()
	m.records[recID] = rec
	return recID, nil
}

func (m *MemoryStore) InsertQuestionOutcomes(_ context.Context, sessionRecordID string, outcomes []QuestionOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[sessionRecordID]; !ok {
		return errors.Wrapf(ErrNotFound, "session record %s", sessionRecordID)
	}
	m.outcomes[sessionRecordID] = append(m.outcomes[sessionRecordID], outcomes...)
	return nil
}

// SessionRecords returns the stored records keyed by record ID.
func (m *MemoryStore) SessionRecords() map[string]SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]SessionRecord, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

// Outcomes returns the outcomes stored for one session record.
func (m *MemoryStore) Outcomes(sessionRecordID string) []QuestionOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QuestionOutcome(nil), m.outcomes[sessionRecordID]...)
}

func (m *MemoryStore) GetRankEntry(_ context.Context, learnerID string) (*RankEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.ranks[learnerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) UpsertRankEntry(_ context.Context, learnerID string, points float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranks[learnerID] = RankEntry{LearnerID: learnerID, Points: points, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *MemoryStore) AddRankPoints(_ context.Context, learnerID string, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.ranks[learnerID]
	e.LearnerID = learnerID
	e.Points += delta
	e.UpdatedAt = time.Now().UTC()
	m.ranks[learnerID] = e
	return e.Points, nil
}

func (m *MemoryStore) ListRankEntries(_ context.Context, limit int) ([]RankEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RankEntry, 0, len(m.ranks))
	for _, e := range m.ranks {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].LearnerID < out[j].LearnerID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetResolution(_ context.Context, learnerID, questionID string) (*Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resolutions[learnerID][questionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) UpsertResolution(_ context.Context, r Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byQuestion, ok := m.resolutions[r.LearnerID]
	if !ok {
		byQuestion = make(map[string]Resolution)
		m.resolutions[r.LearnerID] = byQuestion
	}
	if prev, ok := byQuestion[r.QuestionID]; ok && prev.Correct {
		r.Correct = true
	}
	byQuestion[r.QuestionID] = r
	return nil
}

func (m *MemoryStore) ListResolutions(_ context.Context, learnerID string) ([]Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Resolution, 0, len(m.resolutions[learnerID]))
	for _, r := range m.resolutions[learnerID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}
