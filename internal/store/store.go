package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/subject"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflicting record")
)

// SessionRecord is the durable summary of one finalized session.
type SessionRecord struct {
	SessionID string // engine session ID; at most one record per session
	LearnerID string
	AreaID    string
	Points    float64
	Correct   int
	Total     int
}

// QuestionOutcome links a session record to one question's result.
type QuestionOutcome struct {
	QuestionID string
	UnitID     string
	Correct    bool
}

// RankEntry is a learner's cumulative leaderboard points.
type RankEntry struct {
	LearnerID string
	Points    float64
	UpdatedAt time.Time
}

// Resolution records whether a learner has ever answered a question correctly.
type Resolution struct {
	LearnerID  string
	QuestionID string
	UnitID     string
	Correct    bool
}

// Store is the data-access surface the session engine depends on.
type Store interface {
	// FetchQuestions returns up to limit questions from the given units.
	// A limit <= 0 means no limit.
	FetchQuestions(ctx context.Context, unitIDs []string, limit int) ([]question.Question, error)
	InsertSessionRecord(ctx context.Context, rec SessionRecord) (string, error)
	InsertQuestionOutcomes(ctx context.Context, sessionRecordID string, outcomes []QuestionOutcome) error
	// GetRankEntry returns ErrNotFound when the learner has no entry yet.
	GetRankEntry(ctx context.Context, learnerID string) (*RankEntry, error)
	// UpsertRankEntry sets the learner's points to an absolute value.
	UpsertRankEntry(ctx context.Context, learnerID string, points float64) error
	// GetResolution returns ErrNotFound when the learner never answered the question.
	GetResolution(ctx context.Context, learnerID, questionID string) (*Resolution, error)
	UpsertResolution(ctx context.Context, r Resolution) error
}

// RankIncrementer adds points in a single server-side statement, so two
// sessions finalizing at once for the same learner cannot lose an update.
type RankIncrementer interface {
	AddRankPoints(ctx context.Context, learnerID string, delta float64) (float64, error)
}

// Reporter serves progress and leaderboard queries.
type Reporter interface {
	ListUnitQuestions(ctx context.Context, unitIDs []string) ([]question.Question, error)
	ListResolutions(ctx context.Context, learnerID string) ([]Resolution, error)
	ListRankEntries(ctx context.Context, limit int) ([]RankEntry, error)
}

// Catalog manages the subject hierarchy and question bank.
type Catalog interface {
	SaveArea(ctx context.Context, a *subject.Area) error
	SaveUnit(ctx context.Context, u *subject.Unit) error
	SaveQuestion(ctx context.Context, q *question.Question) error
	ListAreas(ctx context.Context) ([]*subject.Area, error)
	ListUnits(ctx context.Context, areaID string) ([]*subject.Unit, error)
}

// Backend is implemented by every store shipped with the server.
type Backend interface {
	Store
	RankIncrementer
	Reporter
	Catalog
	Close() error
}

// Open returns the backend for driver: "sqlite" (path), "postgres" (dsn)
// or "memory".
func Open(driver, path, dsn string) (Backend, error) {
	switch driver {
	case "sqlite":
		s, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemory(), nil
	}
	return nil, errors.Errorf("unknown store driver %q", driver)
}
