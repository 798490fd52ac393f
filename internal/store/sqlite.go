// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/subject"
	"github.com/quizwise/backend/internal/id"
)

const schema = `
CREATE TABLE IF NOT EXISTS areas (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
    id TEXT PRIMARY KEY,
    area_id TEXT NOT NULL,
    name TEXT NOT NULL,
    FOREIGN KEY (area_id) REFERENCES areas(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    body TEXT NOT NULL,
    image_url TEXT,
    explanation TEXT NOT NULL DEFAULT '',
    solution_image_url TEXT,
    FOREIGN KEY (unit_id) REFERENCES units(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_questions_unit ON questions(unit_id);

CREATE TABLE IF NOT EXISTS choices (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL,
    text TEXT NOT NULL,
    is_correct INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL,
    FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS session_records (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    learner_id TEXT NOT NULL,
    area_id TEXT NOT NULL,
    points REAL NOT NULL,
    correct INTEGER NOT NULL,
    total INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_session_records_session ON session_records(session_id);

CREATE TABLE IF NOT EXISTS question_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_record_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    correct INTEGER NOT NULL,
    FOREIGN KEY (session_record_id) REFERENCES session_records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS rank_entries (
    learner_id TEXT PRIMARY KEY,
    points REAL NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS resolutions (
    learner_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    correct INTEGER NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (learner_id, question_id)
);
`

type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

var _ Backend = (*SQLiteStore)(nil)

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}

	return &SQLiteStore{db: db, now: time.Now, logger: slog.Default()}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// ============================================================================
// Catalog
// ============================================================================

func (s *SQLiteStore) SaveArea(ctx context.Context, a *subject.Area) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO areas (id, name) VALUES (?, ?)", a.ID, a.Name)
	return errors.Wrap(err, "insert area")
}

func (s *SQLiteStore) SaveUnit(ctx context.Context, u *subject.Unit) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO units (id, area_id, name) VALUES (?, ?, ?)", u.ID, u.AreaID, u.Name)
	return errors.Wrap(err, "insert unit")
}

func (s *SQLiteStore) SaveQuestion(ctx context.Context, q *question.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO questions (id, unit_id, kind, body, image_url, explanation, solution_image_url) VALUES (?, ?, ?, ?, ?, ?, ?)",
		q.ID, q.UnitID, string(q.Kind()), q.Body, q.ImageURL, q.Explanation, q.SolutionImageURL,
	)
	if err != nil {
		return errors.Wrap(err, "insert question")
	}

	for i, c := range q.Choices() {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO choices (id, question_id, text, is_correct, position) VALUES (?, ?, ?, ?, ?)",
			c.ID, q.ID, c.Text, c.IsCorrect, i,
		)
		if err != nil {
			return errors.Wrap(err, "insert choice")
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListAreas(ctx context.Context) ([]*subject.Area, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM areas ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*subject.Area
	for rows.Next() {
		var a subject.Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		areas = append(areas, &a)
	}
	return areas, rows.Err()
}

func (s *SQLiteStore) ListUnits(ctx context.Context, areaID string) ([]*subject.Unit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, area_id, name FROM units WHERE area_id = ? ORDER BY name", areaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []*subject.Unit
	for rows.Next() {
		var u subject.Unit
		if err := rows.Scan(&u.ID, &u.AreaID, &u.Name); err != nil {
			return nil, err
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}

// ============================================================================
// Questions
// ============================================================================

func (s *SQLiteStore) FetchQuestions(ctx context.Context, unitIDs []string, limit int) ([]question.Question, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	query := "SELECT id, unit_id, kind, body, image_url, explanation, solution_image_url FROM questions WHERE unit_id IN (" +
		placeholders(len(unitIDs)) + ") ORDER BY RANDOM()"
	args := stringArgs(unitIDs)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryQuestions(ctx, query, args...)
}

func (s *SQLiteStore) ListUnitQuestions(ctx context.Context, unitIDs []string) ([]question.Question, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	query := "SELECT id, unit_id, kind, body, image_url, explanation, solution_image_url FROM questions WHERE unit_id IN (" +
		placeholders(len(unitIDs)) + ") ORDER BY id"
	return s.queryQuestions(ctx, query, stringArgs(unitIDs)...)
}

type questionRow struct {
	q    question.Question
	kind string
}

func (s *SQLiteStore) queryQuestions(ctx context.Context, query string, args ...any) ([]question.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query questions")
	}

	var found []questionRow
	for rows.Next() {
		var r questionRow
		var image, solution sql.NullString
		if err := rows.Scan(&r.q.ID, &r.q.UnitID, &r.kind, &r.q.Body, &image, &r.q.Explanation, &solution); err != nil {
			rows.Close()
			return nil, err
		}
		if image.Valid {
			r.q.ImageURL = &image.String
		}
		if solution.Valid {
			r.q.SolutionImageURL = &solution.String
		}
		found = append(found, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}

	ids := make([]string, len(found))
	for i, r := range found {
		ids[i] = r.q.ID
	}
	choices, err := s.choicesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	questions := make([]question.Question, 0, len(found))
	for _, r := range found {
		format, err := formatFor(r.kind, choices[r.q.ID])
		if err != nil {
			s.logger.Warn("skipping stored question", "question_id", r.q.ID, "error", err)
			continue
		}
		r.q.Format = format
		questions = append(questions, r.q)
	}
	return questions, nil
}

func (s *SQLiteStore) choicesFor(ctx context.Context, questionIDs []string) (map[string][]question.Choice, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, question_id, text, is_correct FROM choices WHERE question_id IN ("+
			placeholders(len(questionIDs))+") ORDER BY question_id, position",
		stringArgs(questionIDs)...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query choices")
	}
	defer rows.Close()

	byQuestion := make(map[string][]question.Choice)
	for rows.Next() {
		var c question.Choice
		var questionID string
		if err := rows.Scan(&c.ID, &questionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		byQuestion[questionID] = append(byQuestion[questionID], c)
	}
	return byQuestion, rows.Err()
}

// ============================================================================
// Session results
// ============================================================================

// InsertSessionRecord is idempotent per session: inserting a record for a
// session that already has one returns the existing record ID.
func (s *SQLiteStore) InsertSessionRecord(ctx context.Context, rec SessionRecord) (string, error) {
	var recordID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO session_records (id, session_id, learner_id, area_id, points, correct, total, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET session_id = excluded.session_id
		RETURNING id
	`, id.GenerateID(), rec.SessionID, rec.LearnerID, rec.AreaID, rec.Points, rec.Correct, rec.Total, s.timestamp()).Scan(&recordID)
	if err != nil {
		return "", errors.Wrap(err, "insert session record")
	}
	return recordID, nil
}

func (s *SQLiteStore) InsertQuestionOutcomes(ctx context.Context, sessionRecordID string, outcomes []QuestionOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM session_records WHERE id = ?", sessionRecordID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errors.Wrapf(ErrNotFound, "session record %s", sessionRecordID)
	}
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO question_outcomes (session_record_id, question_id, unit_id, correct) VALUES (?, ?, ?, ?)",
			sessionRecordID, o.QuestionID, o.UnitID, o.Correct,
		)
		if err != nil {
			return errors.Wrap(err, "insert question outcome")
		}
	}

	return tx.Commit()
}

// ============================================================================
// Ranks
// ============================================================================

func (s *SQLiteStore) GetRankEntry(ctx context.Context, learnerID string) (*RankEntry, error) {
	var e RankEntry
	var updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT learner_id, points, updated_at FROM rank_entries WHERE learner_id = ?", learnerID,
	).Scan(&e.LearnerID, &e.Points, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &e, nil
}

func (s *SQLiteStore) UpsertRankEntry(ctx context.Context, learnerID string, points float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rank_entries (learner_id, points, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(learner_id) DO UPDATE SET points = excluded.points, updated_at = excluded.updated_at
	`, learnerID, points, s.timestamp())
	return errors.Wrap(err, "upsert rank entry")
}

func (s *SQLiteStore) AddRankPoints(ctx context.Context, learnerID string, delta float64) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rank_entries (learner_id, points, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(learner_id) DO UPDATE SET points = rank_entries.points + excluded.points, updated_at = excluded.updated_at
		RETURNING points
	`, learnerID, delta, s.timestamp()).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "add rank points")
	}
	return total, nil
}

func (s *SQLiteStore) ListRankEntries(ctx context.Context, limit int) ([]RankEntry, error) {
	query := "SELECT learner_id, points, updated_at FROM rank_entries ORDER BY points DESC, learner_id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []RankEntry
	for rows.Next() {
		var e RankEntry
		var updated string
		if err := rows.Scan(&e.LearnerID, &e.Points, &updated); err != nil {
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ============================================================================
// Resolutions
// ============================================================================

func (s *SQLiteStore) GetResolution(ctx context.Context, learnerID, questionID string) (*Resolution, error) {
	var r Resolution
	err := s.db.QueryRowContext(ctx,
		"SELECT learner_id, question_id, unit_id, correct FROM resolutions WHERE learner_id = ? AND question_id = ?",
		learnerID, questionID,
	).Scan(&r.LearnerID, &r.QuestionID, &r.UnitID, &r.Correct)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertResolution never turns a correct resolution back to incorrect.
func (s *SQLiteStore) UpsertResolution(ctx context.Context, r Resolution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (learner_id, question_id, unit_id, correct, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(learner_id, question_id) DO UPDATE SET
			correct = MAX(resolutions.correct, excluded.correct),
			unit_id = excluded.unit_id,
			updated_at = excluded.updated_at
	`, r.LearnerID, r.QuestionID, r.UnitID, r.Correct, s.timestamp())
	return errors.Wrap(err, "upsert resolution")
}

func (s *SQLiteStore) ListResolutions(ctx context.Context, learnerID string) ([]Resolution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT learner_id, question_id, unit_id, correct FROM resolutions WHERE learner_id = ?", learnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.LearnerID, &r.QuestionID, &r.UnitID, &r.Correct); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
