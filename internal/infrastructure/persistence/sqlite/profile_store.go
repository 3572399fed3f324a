// Package sqlite stores student profiles in a local SQLite file. It is the
// default store for a single student working on one machine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/document"
)

const schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		student_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_updated_at ON profiles(updated_at DESC);
`

// ProfileStore implements student.Repository on SQLite.
type ProfileStore struct {
	db *sql.DB
}

var _ student.Repository = (*ProfileStore)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*ProfileStore, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; also keeps a :memory: database alive across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &ProfileStore{db: db}, nil
}

// Close closes the database connection.
func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// Load returns the profile for id.
func (s *ProfileStore) Load(ctx context.Context, id shared.StudentID) (*student.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM profiles WHERE student_id = ?`, id.String())
	return scan(row)
}

// LoadLatest returns the most recently saved profile.
func (s *ProfileStore) LoadLatest(ctx context.Context) (*student.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM profiles ORDER BY updated_at DESC, rowid DESC LIMIT 1`)
	return scan(row)
}

// Save replaces the stored profile.
func (s *ProfileStore) Save(ctx context.Context, p *student.Profile) error {
	data, err := document.Encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (student_id, name, document, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			updated_at = excluded.updated_at
	`, p.ID.String(), p.Name, string(data), p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Delete removes one profile.
func (s *ProfileStore) Delete(ctx context.Context, id shared.StudentID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE student_id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// Clear removes every profile.
func (s *ProfileStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}
	return nil
}

func scan(row *sql.Row) (*student.Profile, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return document.Decode([]byte(data))
}
