package student

import (
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

// Mood summarizes how a session felt, derived from the last stress level.
type Mood string

const (
	MoodEnergised Mood = "energised"
	MoodSteady    Mood = "steady"
	MoodStrained  Mood = "strained"
	MoodStressed  Mood = "stressed"
)

// MoodFromLevel maps a stress level (1-5) to a mood tag.
func MoodFromLevel(level int) Mood {
	switch {
	case level <= 1:
		return MoodEnergised
	case level == 2:
		return MoodSteady
	case level == 3:
		return MoodStrained
	default:
		return MoodStressed
	}
}

// ErrSessionAlreadyClosed is returned when closing a closed record.
var ErrSessionAlreadyClosed = shared.NewDomainError("session", "Close", shared.ErrInvalidState, "session already closed")

// SessionRecord summarizes one study session. It is open (no end time)
// while the session runs and immutable once appended to the profile.
type SessionRecord struct {
	ID                 string     `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at"`
	TopicsTouched      []string   `json:"topics_touched"`
	QuestionsAttempted int        `json:"questions_attempted"`
	QuestionsSolved    int        `json:"questions_solved"`
	BreaksTaken        int        `json:"breaks_taken"`
	Mood               Mood       `json:"mood"`
	Breakthroughs      []string   `json:"breakthroughs"`
	Struggles          []string   `json:"struggles"`
}

// NewSessionRecord opens a record.
func NewSessionRecord(id string, startedAt time.Time) SessionRecord {
	return SessionRecord{
		ID:            id,
		StartedAt:     startedAt,
		TopicsTouched: make([]string, 0),
		Breakthroughs: make([]string, 0),
		Struggles:     make([]string, 0),
	}
}

// IsOpen reports whether the record has no end time yet.
func (s SessionRecord) IsOpen() bool {
	return s.EndedAt == nil
}

// Duration returns end-start, or zero while open.
func (s SessionRecord) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Accuracy returns solved/attempted for the session.
func (s SessionRecord) Accuracy() float64 {
	if s.QuestionsAttempted == 0 {
		return 0
	}
	return float64(s.QuestionsSolved) / float64(s.QuestionsAttempted)
}

// Close stamps the end time.
func (s *SessionRecord) Close(at time.Time) error {
	if s.EndedAt != nil {
		return ErrSessionAlreadyClosed
	}
	if at.Before(s.StartedAt) {
		at = s.StartedAt
	}
	s.EndedAt = &at
	return nil
}

// Clone returns a deep copy.
func (s SessionRecord) Clone() SessionRecord {
	if s.EndedAt != nil {
		end := *s.EndedAt
		s.EndedAt = &end
	}
	s.TopicsTouched = cloneSlice(s.TopicsTouched)
	s.Breakthroughs = cloneSlice(s.Breakthroughs)
	s.Struggles = cloneSlice(s.Struggles)
	return s
}
