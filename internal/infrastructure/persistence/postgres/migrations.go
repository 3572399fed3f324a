package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: STUDENT PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS student_profiles (
    student_id VARCHAR(100) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    exam_date DATE,
    profile JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_student_profiles_updated_at ON student_profiles(updated_at DESC);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: SESSION HISTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS session_history (
    session_id VARCHAR(64) PRIMARY KEY,
    student_id VARCHAR(100) NOT NULL REFERENCES student_profiles(student_id) ON DELETE CASCADE,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    ended_at TIMESTAMP WITH TIME ZONE NOT NULL,
    questions_attempted INTEGER NOT NULL DEFAULT 0,
    questions_solved INTEGER NOT NULL DEFAULT 0,
    breaks_taken INTEGER NOT NULL DEFAULT 0,
    mood VARCHAR(20) NOT NULL DEFAULT '',

    CONSTRAINT valid_counts CHECK (questions_solved <= questions_attempted)
);

CREATE INDEX IF NOT EXISTS idx_session_history_student ON session_history(student_id, started_at DESC);
`

// Migrations returns the embedded migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_student_profiles", UpSQL: migration001Up},
		{Version: 2, Name: "create_session_history", UpSQL: migration002Up},
	}
}
