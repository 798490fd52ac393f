package store

import "context"

// ExecSQL runs a raw statement, for seeding rows the public API refuses to write.
func (s *SQLiteStore) ExecSQL(query string, args ...any) error {
	_, err := s.db.ExecContext(context.Background(), query, args...)
	return err
}

// Reset empties every table so each test starts from a blank database.
func (s *PostgresStore) Reset() error {
	return s.db.Exec("TRUNCATE question_outcomes, session_records, resolutions, rank_entries, choices, questions, units, areas CASCADE").Error
}
