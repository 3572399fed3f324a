package student

import (
	"time"

	"github.com/jee-coach/tutor/internal/domain/mastery"
)

// LectureProgress tracks one recorded lecture the student is working through.
type LectureProgress struct {
	LectureID        string    `json:"lecture_id"`
	Title            string    `json:"title"`
	Subject          string    `json:"subject"`
	Topic            string    `json:"topic"`
	TotalMins        int       `json:"total_mins"`
	WatchedMins      int       `json:"watched_mins"`
	RecommendedSpeed float64   `json:"recommended_speed"`
	KeyTimestamps    []string  `json:"key_timestamps"`
	PostQuizScore    *float64  `json:"post_quiz_score,omitempty"`
	LastWatched      time.Time `json:"last_watched"`
}

// Completed reports whether the whole lecture has been watched.
func (l LectureProgress) Completed() bool {
	return l.TotalMins > 0 && l.WatchedMins >= l.TotalMins
}

// RecordWatch adds watched minutes, capped at the lecture length.
func (l *LectureProgress) RecordWatch(mins int, at time.Time) {
	if mins <= 0 {
		return
	}
	l.WatchedMins += mins
	if l.TotalMins > 0 && l.WatchedMins > l.TotalMins {
		l.WatchedMins = l.TotalMins
	}
	l.LastWatched = at
}

// Clone returns a deep copy.
func (l LectureProgress) Clone() LectureProgress {
	l.KeyTimestamps = cloneSlice(l.KeyTimestamps)
	if l.PostQuizScore != nil {
		v := *l.PostQuizScore
		l.PostQuizScore = &v
	}
	return l
}

// CloneLectures deep-copies a lecture progress map.
func CloneLectures(in map[string]LectureProgress) map[string]LectureProgress {
	if in == nil {
		return nil
	}
	out := make(map[string]LectureProgress, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

// RecommendedSpeedFor picks a playback speed from topic confidence: new or
// weak topics play at normal speed, strong ones faster.
func RecommendedSpeedFor(c mastery.Confidence) float64 {
	switch c {
	case mastery.ConfidenceMedium:
		return 1.25
	case mastery.ConfidenceHigh:
		return 1.5
	case mastery.ConfidenceMastered:
		return 2.0
	default:
		return 1.0
	}
}
