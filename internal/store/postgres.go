package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/subject"
	"github.com/quizwise/backend/internal/id"
)

// Table models for the managed Postgres backend.

type areaModel struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null"`
}

func (areaModel) TableName() string { return "areas" }

type unitModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	AreaID string `gorm:"column:area_id;not null;index"`
	Name   string `gorm:"column:name;not null"`
}

func (unitModel) TableName() string { return "units" }

type questionModel struct {
	ID               string        `gorm:"column:id;primaryKey"`
	UnitID           string        `gorm:"column:unit_id;not null;index"`
	Kind             string        `gorm:"column:kind;not null"`
	Body             string        `gorm:"column:body;not null"`
	ImageURL         *string       `gorm:"column:image_url"`
	Explanation      string        `gorm:"column:explanation;not null;default:''"`
	SolutionImageURL *string       `gorm:"column:solution_image_url"`
	Choices          []choiceModel `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (questionModel) TableName() string { return "questions" }

type choiceModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	QuestionID string `gorm:"column:question_id;not null;index"`
	Text       string `gorm:"column:text;not null"`
	IsCorrect  bool   `gorm:"column:is_correct;not null;default:false"`
	Position   int    `gorm:"column:position;not null"`
}

func (choiceModel) TableName() string { return "choices" }

type sessionRecordModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	SessionID string    `gorm:"column:session_id;not null;uniqueIndex"`
	LearnerID string    `gorm:"column:learner_id;not null;index"`
	AreaID    string    `gorm:"column:area_id;not null"`
	Points    float64   `gorm:"column:points;not null"`
	Correct   int       `gorm:"column:correct;not null"`
	Total     int       `gorm:"column:total;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (sessionRecordModel) TableName() string { return "session_records" }

type questionOutcomeModel struct {
	ID              uint   `gorm:"column:id;primaryKey"`
	SessionRecordID string `gorm:"column:session_record_id;not null;index"`
	QuestionID      string `gorm:"column:question_id;not null"`
	UnitID          string `gorm:"column:unit_id;not null"`
	Correct         bool   `gorm:"column:correct;not null"`

	SessionRecord sessionRecordModel `gorm:"foreignKey:SessionRecordID;constraint:OnDelete:CASCADE"`
}

func (questionOutcomeModel) TableName() string { return "question_outcomes" }

type rankEntryModel struct {
	LearnerID string    `gorm:"column:learner_id;primaryKey"`
	Points    float64   `gorm:"column:points;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (rankEntryModel) TableName() string { return "rank_entries" }

type resolutionModel struct {
	LearnerID  string    `gorm:"column:learner_id;primaryKey"`
	QuestionID string    `gorm:"column:question_id;primaryKey"`
	UnitID     string    `gorm:"column:unit_id;not null"`
	Correct    bool      `gorm:"column:correct;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (resolutionModel) TableName() string { return "resolutions" }

// PostgresStore talks to the hosted Postgres database through gorm.
type PostgresStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Backend = (*PostgresStore)(nil)

// NewPostgres connects with dsn and migrates the schema.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // works behind transaction-pooling proxies
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return NewPostgresWithDB(db)
}

// NewPostgresWithDB wraps an existing gorm handle and migrates the schema.
func NewPostgresWithDB(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(
		&areaModel{}, &unitModel{}, &questionModel{}, &choiceModel{},
		&sessionRecordModel{}, &questionOutcomeModel{},
		&rankEntryModel{}, &resolutionModel{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return &PostgresStore{db: db, logger: slog.Default()}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// pgError maps driver errors onto the store's sentinel errors.
func pgError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return errors.Wrapf(ErrNotFound, "%s: %s", msg, pgErr.Detail)
		case "23505": // unique_violation
			return errors.Wrapf(ErrConflict, "%s: %s", msg, pgErr.Detail)
		}
	}
	return errors.Wrap(err, msg)
}

// ============================================================================
// Catalog
// ============================================================================

func (s *PostgresStore) SaveArea(ctx context.Context, a *subject.Area) error {
	return pgError(s.db.WithContext(ctx).Create(&areaModel{ID: a.ID, Name: a.Name}).Error, "insert area")
}

func (s *PostgresStore) SaveUnit(ctx context.Context, u *subject.Unit) error {
	return pgError(s.db.WithContext(ctx).Create(&unitModel{ID: u.ID, AreaID: u.AreaID, Name: u.Name}).Error, "insert unit")
}

func (s *PostgresStore) SaveQuestion(ctx context.Context, q *question.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m := questionModel{
		ID:               q.ID,
		UnitID:           q.UnitID,
		Kind:             string(q.Kind()),
		Body:             q.Body,
		ImageURL:         q.ImageURL,
		Explanation:      q.Explanation,
		SolutionImageURL: q.SolutionImageURL,
	}
	for i, c := range q.Choices() {
		m.Choices = append(m.Choices, choiceModel{
			ID:         c.ID,
			QuestionID: q.ID,
			Text:       c.Text,
			IsCorrect:  c.IsCorrect,
			Position:   i,
		})
	}
	// Create with associations runs in one transaction.
	return pgError(s.db.WithContext(ctx).Create(&m).Error, "insert question")
}

func (s *PostgresStore) ListAreas(ctx context.Context) ([]*subject.Area, error) {
	var rows []areaModel
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, pgError(err, "list areas")
	}
	areas := make([]*subject.Area, len(rows))
	for i, r := range rows {
		areas[i] = &subject.Area{ID: r.ID, Name: r.Name}
	}
	return areas, nil
}

func (s *PostgresStore) ListUnits(ctx context.Context, areaID string) ([]*subject.Unit, error) {
	var rows []unitModel
	if err := s.db.WithContext(ctx).Where("area_id = ?", areaID).Order("name").Find(&rows).Error; err != nil {
		return nil, pgError(err, "list units")
	}
	units := make([]*subject.Unit, len(rows))
	for i, r := range rows {
		units[i] = &subject.Unit{ID: r.ID, AreaID: r.AreaID, Name: r.Name}
	}
	return units, nil
}

// ============================================================================
// Questions
// ============================================================================

func (s *PostgresStore) FetchQuestions(ctx context.Context, unitIDs []string, limit int) ([]question.Question, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("unit_id IN ?", unitIDs).
		Order("RANDOM()")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []questionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, pgError(err, "fetch questions")
	}
	return s.toQuestions(rows), nil
}

func (s *PostgresStore) ListUnitQuestions(ctx context.Context, unitIDs []string) ([]question.Question, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	var rows []questionModel
	err := s.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("unit_id IN ?", unitIDs).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, pgError(err, "list unit questions")
	}
	return s.toQuestions(rows), nil
}

// toQuestions drops rows whose stored kind is unknown.
func (s *PostgresStore) toQuestions(rows []questionModel) []question.Question {
	out := make([]question.Question, 0, len(rows))
	for _, r := range rows {
		choices := make([]question.Choice, len(r.Choices))
		for i, c := range r.Choices {
			choices[i] = question.Choice{ID: c.ID, Text: c.Text, IsCorrect: c.IsCorrect}
		}
		format, err := formatFor(r.Kind, choices)
		if err != nil {
			s.logger.Warn("skipping stored question", "question_id", r.ID, "error", err)
			continue
		}
		out = append(out, question.Question{
			ID:               r.ID,
			UnitID:           r.UnitID,
			Body:             r.Body,
			ImageURL:         r.ImageURL,
			Explanation:      r.Explanation,
			SolutionImageURL: r.SolutionImageURL,
			Format:           format,
		})
	}
	return out
}

// ============================================================================
// Session results
// ============================================================================

func (s *PostgresStore) InsertSessionRecord(ctx context.Context, rec SessionRecord) (string, error) {
	m := sessionRecordModel{
		ID:        id.GenerateID(),
		SessionID: rec.SessionID,
		LearnerID: rec.LearnerID,
		AreaID:    rec.AreaID,
		Points:    rec.Points,
		Correct:   rec.Correct,
		Total:     rec.Total,
	}
	// a retried insert for the same session hands back the existing record
	err := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "session_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"session_id": gorm.Expr("EXCLUDED.session_id"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "id"}}},
		).
		Create(&m).Error
	if err != nil {
		return "", pgError(err, "insert session record")
	}
	return m.ID, nil
}

func (s *PostgresStore) InsertQuestionOutcomes(ctx context.Context, sessionRecordID string, outcomes []QuestionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	rows := make([]questionOutcomeModel, len(outcomes))
	for i, o := range outcomes {
		rows[i] = questionOutcomeModel{
			SessionRecordID: sessionRecordID,
			QuestionID:      o.QuestionID,
			UnitID:          o.UnitID,
			Correct:         o.Correct,
		}
	}
	err := s.db.WithContext(ctx).
		Omit("SessionRecord").
		CreateInBatches(rows, 100).Error
	return pgError(err, "insert question outcomes")
}

// ============================================================================
// Ranks
// ============================================================================

func (s *PostgresStore) GetRankEntry(ctx context.Context, learnerID string) (*RankEntry, error) {
	var m rankEntryModel
	if err := s.db.WithContext(ctx).Where("learner_id = ?", learnerID).First(&m).Error; err != nil {
		return nil, pgError(err, "get rank entry")
	}
	return &RankEntry{LearnerID: m.LearnerID, Points: m.Points, UpdatedAt: m.UpdatedAt}, nil
}

func (s *PostgresStore) UpsertRankEntry(ctx context.Context, learnerID string, points float64) error {
	m := rankEntryModel{LearnerID: learnerID, Points: points, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "learner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "updated_at"}),
	}).Create(&m).Error
	return pgError(err, "upsert rank entry")
}

func (s *PostgresStore) AddRankPoints(ctx context.Context, learnerID string, delta float64) (float64, error) {
	m := rankEntryModel{LearnerID: learnerID, Points: delta, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "learner_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"points":     gorm.Expr("rank_entries.points + EXCLUDED.points"),
					"updated_at": gorm.Expr("EXCLUDED.updated_at"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "points"}}},
		).
		Create(&m).Error
	if err != nil {
		return 0, pgError(err, "add rank points")
	}
	return m.Points, nil
}

func (s *PostgresStore) ListRankEntries(ctx context.Context, limit int) ([]RankEntry, error) {
	q := s.db.WithContext(ctx).Order("points DESC").Order("learner_id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []rankEntryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, pgError(err, "list rank entries")
	}
	out := make([]RankEntry, len(rows))
	for i, r := range rows {
		out[i] = RankEntry{LearnerID: r.LearnerID, Points: r.Points, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// ============================================================================
// Resolutions
// ============================================================================

func (s *PostgresStore) GetResolution(ctx context.Context, learnerID, questionID string) (*Resolution, error) {
	var m resolutionModel
	err := s.db.WithContext(ctx).
		Where("learner_id = ? AND question_id = ?", learnerID, questionID).
		First(&m).Error
	if err != nil {
		return nil, pgError(err, "get resolution")
	}
	return &Resolution{LearnerID: m.LearnerID, QuestionID: m.QuestionID, UnitID: m.UnitID, Correct: m.Correct}, nil
}

// UpsertResolution never turns a correct resolution back to incorrect.
func (s *PostgresStore) UpsertResolution(ctx context.Context, r Resolution) error {
	m := resolutionModel{
		LearnerID:  r.LearnerID,
		QuestionID: r.QuestionID,
		UnitID:     r.UnitID,
		Correct:    r.Correct,
		UpdatedAt:  time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "learner_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"correct":    gorm.Expr("resolutions.correct OR EXCLUDED.correct"),
			"unit_id":    gorm.Expr("EXCLUDED.unit_id"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&m).Error
	return pgError(err, "upsert resolution")
}

func (s *PostgresStore) ListResolutions(ctx context.Context, learnerID string) ([]Resolution, error) {
	var rows []resolutionModel
	if err := s.db.WithContext(ctx).Where("learner_id = ?", learnerID).Find(&rows).Error; err != nil {
		return nil, pgError(err, "list resolutions")
	}
	out := make([]Resolution, len(rows))
	for i, m := range rows {
		out[i] = Resolution{LearnerID: m.LearnerID, QuestionID: m.QuestionID, UnitID: m.UnitID, Correct: m.Correct}
	}
	return out, nil
}
