package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

//go:embed schema.sql
var schemaSQL string

// Compile-time interface check.
var _ domain.SessionStore = (*SQLiteStore)(nil)

// SQLiteStore persists sessions in a SQLite database so a brew can be
// resumed after the process exits.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Safe to call on an existing database.
func OpenSQLite(path string, log *logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	log.Debug("storage: opened %s", path)
	return &SQLiteStore{db: db, log: log}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces a session.
func (s *SQLiteStore) Save(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, recipe_id, recipe_name, beans_grams, flavor, strength, elapsed_sec, status, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			recipe_id = excluded.recipe_id,
			recipe_name = excluded.recipe_name,
			beans_grams = excluded.beans_grams,
			flavor = excluded.flavor,
			strength = excluded.strength,
			elapsed_sec = excluded.elapsed_sec,
			status = excluded.status,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at`,
		session.ID, session.RecipeID, session.RecipeName,
		session.Params.BeansGrams, string(session.Params.Flavor), string(session.Params.Strength),
		session.ElapsedSec, session.Status.String(),
		session.StartedAt.UnixNano(), session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}
	s.log.Debug("storage: saved session %s (%s, %.1fs)", session.ID, session.Status, session.ElapsedSec)
	return nil
}

// Load retrieves a session by ID.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSessions+` WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return sess, nil
}

// Delete removes a session by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListActive returns active and paused sessions, most recent first.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]*domain.Session, error) {
	return s.query(ctx, selectSessions+` WHERE status IN ('active', 'paused') ORDER BY updated_at DESC, id`)
}

// List returns up to limit sessions, most recent first. A non-positive
// limit returns every session.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		return s.query(ctx, selectSessions+` ORDER BY updated_at DESC, id`)
	}
	return s.query(ctx, selectSessions+` ORDER BY updated_at DESC, id LIMIT ?`, limit)
}

const selectSessions = `SELECT id, recipe_id, recipe_name, beans_grams, flavor, strength, elapsed_sec, status, started_at, updated_at FROM sessions`

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*domain.Session, error) {
	var (
		sess               domain.Session
		flavor, strength   string
		status             string
		startedAt, updated int64
	)
	err := sc.Scan(
		&sess.ID, &sess.RecipeID, &sess.RecipeName,
		&sess.Params.BeansGrams, &flavor, &strength,
		&sess.ElapsedSec, &status, &startedAt, &updated,
	)
	if err != nil {
		return nil, err
	}
	sess.Params.Flavor = domain.Flavor(flavor)
	sess.Params.Strength = domain.Strength(strength)
	sess.Status = domain.ParseSessionStatus(status)
	sess.StartedAt = time.Unix(0, startedAt)
	sess.UpdatedAt = time.Unix(0, updated)
	return &sess, nil
}
