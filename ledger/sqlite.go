package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps both partitions in a single append-only table.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens the database and initializes the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS author_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		outcome TEXT NOT NULL,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_author_outcomes_username ON author_outcomes(username);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Load returns every row in insertion order. Rows with an unknown outcome are skipped.
func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	query := `SELECT username, outcome, recorded_at FROM author_outcomes ORDER BY id`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var outcome string
		if err := rows.Scan(&rec.Username, &outcome, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o, err := ParseOutcome(outcome)
		if err != nil {
			slog.Warn("skipping malformed ledger row", "username", rec.Username, "error", err)
			continue
		}
		rec.Outcome = o
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Append inserts one row. No deduplication is performed.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	query := `INSERT INTO author_outcomes (username, outcome, recorded_at) VALUES (?, ?, ?)`
	_, err := s.conn.ExecContext(ctx, query, rec.Username, rec.Outcome.String(), rec.RecordedAt)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
