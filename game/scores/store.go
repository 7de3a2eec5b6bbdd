package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/wricardo/mcp-training/snakegame/game/service"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

var (
	ErrNoScores     = errors.New("no scores recorded")
	ErrInvalidEntry = errors.New("invalid score entry")
)

// Store keeps finished games in SQLite. It implements service.ScoreRecorder.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the leaderboard database at path and ensures the schema
func Open(path string) (*Store, error) {
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			config_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			length INTEGER NOT NULL,
			cause TEXT NOT NULL,
			ended_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC, ended_at ASC);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_session_id ON scores(session_id);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a finished game. Missing ID and end time are filled in.
func (s *Store) Record(ctx context.Context, entry *service.ScoreEntry) error {
	if entry == nil || entry.SessionID == "" || entry.Score < 0 {
		return ErrInvalidEntry
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.EndedAt.IsZero() {
		entry.EndedAt = time.Now()
	}

	query := `
		INSERT INTO scores (id, session_id, config_name, score, length, cause, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.SessionID, entry.ConfigName, entry.Score, entry.Length,
		entry.Cause, entry.EndedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// Top returns the best games, highest score first. Ties go to the earlier game.
func (s *Store) Top(ctx context.Context, limit int) ([]*service.ScoreEntry, error) {
	if limit <= 0 {
		limit = service.DefaultTopScores
	}
	query := `SELECT id, session_id, config_name, score, length, cause, ended_at FROM scores ORDER BY score DESC, ended_at ASC LIMIT ?`
	return s.getMany(ctx, query, limit)
}

// BestForSession returns the best game a session has finished
func (s *Store) BestForSession(ctx context.Context, sessionID string) (*service.ScoreEntry, error) {
	query := `SELECT id, session_id, config_name, score, length, cause, ended_at FROM scores WHERE session_id = ? ORDER BY score DESC, ended_at ASC LIMIT 1`
	entries, err := s.getMany(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoScores
	}
	return entries[0], nil
}

// Count returns the number of recorded games
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scores: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getMany(ctx context.Context, query string, args ...interface{}) ([]*service.ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var entries []*service.ScoreEntry
	for rows.Next() {
		var e service.ScoreEntry
		var endedAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ConfigName, &e.Score, &e.Length, &e.Cause, &endedAt); err != nil {
			return nil, err
		}
		e.EndedAt = time.UnixMilli(endedAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
