package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/document"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements student.Repository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

var _ student.Repository = (*ProfileRepository)(nil)

// Load returns the profile for id.
func (r *ProfileRepository) Load(ctx context.Context, id shared.StudentID) (*student.Profile, error) {
	row := r.conn.QueryRow(ctx, `SELECT profile FROM student_profiles WHERE student_id = $1`, id.String())
	return scanProfile(row)
}

// LoadLatest returns the most recently updated profile.
func (r *ProfileRepository) LoadLatest(ctx context.Context) (*student.Profile, error) {
	row := r.conn.QueryRow(ctx, `SELECT profile FROM student_profiles ORDER BY updated_at DESC LIMIT 1`)
	return scanProfile(row)
}

// Save upserts the profile document and records its closed sessions in
// session_history, in one transaction.
func (r *ProfileRepository) Save(ctx context.Context, p *student.Profile) error {
	data, err := document.Encode(p)
	if err != nil {
		return err
	}

	var examDate any
	if !p.ExamDate.IsZero() {
		examDate = p.ExamDate
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO student_profiles (student_id, name, exam_date, profile, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (student_id) DO UPDATE SET
				name = EXCLUDED.name,
				exam_date = EXCLUDED.exam_date,
				profile = EXCLUDED.profile,
				updated_at = EXCLUDED.updated_at
		`, p.ID.String(), p.Name, examDate, data, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		batch := &pgx.Batch{}
		for _, s := range p.Sessions {
			if s.EndedAt == nil {
				continue
			}
			batch.Queue(`
				INSERT INTO session_history (
					session_id, student_id, started_at, ended_at,
					questions_attempted, questions_solved, breaks_taken, mood
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (session_id) DO NOTHING
			`, s.ID, p.ID.String(), s.StartedAt, *s.EndedAt,
				s.QuestionsAttempted, s.QuestionsSolved, s.BreaksTaken, string(s.Mood))
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to record session history: %w", err)
		}
		return nil
	})
}

// Delete removes one profile and its history.
func (r *ProfileRepository) Delete(ctx context.Context, id shared.StudentID) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM student_profiles WHERE student_id = $1`, id.String()); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Clear removes every profile.
func (r *ProfileRepository) Clear(ctx context.Context) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM student_profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*student.Profile, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return document.Decode(data)
}
