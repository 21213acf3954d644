// Package storage provides SQLite-based persistence of match records.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection for match persistence.
type Store struct {
	db *sql.DB
}

// MatchRecord is one started match.
type MatchRecord struct {
	ID        int64
	SessionID string
	GameID    string
	SideAUID  string
	SideBUID  string
	StartedAt time.Time
}

// ResultRecord is one finished match.
type ResultRecord struct {
	ID        int64
	SessionID string
	WinnerUID string // empty on abandonment
	EndReason string // "concession", "abandoned"
	EndedAt   time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			game_id TEXT NOT NULL,
			side_a_uid TEXT NOT NULL,
			side_b_uid TEXT NOT NULL,
			started_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_matches_session ON matches(session_id);
		CREATE INDEX IF NOT EXISTS idx_matches_game ON matches(game_id);

		CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			winner_uid TEXT,
			end_reason TEXT NOT NULL,
			ended_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_results_session ON match_results(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordMatchStarted persists a start transition.
func (s *Store) RecordMatchStarted(sessionID, gameID, sideAUID, sideBUID string, startedAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO matches (session_id, game_id, side_a_uid, side_b_uid, started_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, gameID, sideAUID, sideBUID, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record match start: %w", err)
	}
	return nil
}

// RecordMatchResult persists a match outcome.
func (s *Store) RecordMatchResult(sessionID, winnerUID, endReason string, endedAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO match_results (session_id, winner_uid, end_reason, ended_at) VALUES (?, ?, ?, ?)",
		sessionID, winnerUID, endReason, endedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record match result: %w", err)
	}
	return nil
}

// RecentMatches retrieves the most recently started matches, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, game_id, side_a_uid, side_b_uid, started_at
		 FROM matches
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var startedAt any
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.GameID, &rec.SideAUID, &rec.SideBUID, &startedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		rec.StartedAt = parseTime(startedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration failed: %w", err)
	}
	return records, nil
}

// ResultsFor retrieves the recorded outcomes of one session.
func (s *Store) ResultsFor(sessionID string) ([]ResultRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, winner_uid, end_reason, ended_at
		 FROM match_results
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var winner sql.NullString
		var endedAt any
		if err := rows.Scan(&rec.ID, &rec.SessionID, &winner, &rec.EndReason, &endedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		rec.WinnerUID = winner.String
		rec.EndedAt = parseTime(endedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration failed: %w", err)
	}
	return records, nil
}

// parseTime handles both time.Time and string datetime columns.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
