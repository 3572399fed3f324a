// Package mastery keeps per-subject, per-topic mastery records and the rules
// that derive a confidence label from practice history.
package mastery

import (
	"time"
)

// Confidence is the ordinal mastery label of a topic.
type Confidence string

const (
	ConfidenceNone     Confidence = "none"
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMastered Confidence = "mastered"
)

// Rank orders confidence levels: none < low < medium < high < mastered.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	case ConfidenceMastered:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether c is ranked at or above other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.Rank() >= other.Rank()
}

// Thresholds used to derive confidence from accuracy.
const (
	LowAccuracyBelow  = 0.4
	HighAccuracyAbove = 0.7

	// DefaultMasteryStreak is the number of consecutive correct answers at
	// high confidence that promotes a topic to mastered.
	DefaultMasteryStreak = 5
)

// TopicMastery is the practice record for one subject/topic pair.
type TopicMastery struct {
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic"`
	Confidence    Confidence `json:"confidence"`
	Attempts      int        `json:"attempts"`
	Correct       int        `json:"correct"`
	Streak        int        `json:"streak"`
	TimeSpentSecs int        `json:"time_spent_secs"`
	LastPracticed time.Time  `json:"last_practiced"`
	WeakSubtopics []string   `json:"weak_subtopics"`
	Notes         string     `json:"notes,omitempty"`
}

// Accuracy is correct/max(attempts, 1). It is never stored.
func (m TopicMastery) Accuracy() float64 {
	if m.Attempts <= 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Attempts)
}

// Key returns the subject/topic identity of the record.
func (m TopicMastery) Key() Key {
	return Key{Subject: m.Subject, Topic: m.Topic}
}

// clone returns a deep copy.
func (m TopicMastery) clone() TopicMastery {
	if m.WeakSubtopics != nil {
		m.WeakSubtopics = append([]string(nil), m.WeakSubtopics...)
	}
	return m
}

// Key identifies a topic across subjects.
type Key struct {
	Subject string
	Topic   string
}

// Book maps subject -> topic -> mastery. It is the persisted shape owned by
// the student profile.
type Book map[string]map[string]*TopicMastery

// Clone returns a deep copy of the book.
func (b Book) Clone() Book {
	if b == nil {
		return nil
	}
	out := make(Book, len(b))
	for subject, topics := range b {
		cp := make(map[string]*TopicMastery, len(topics))
		for name, m := range topics {
			if m == nil {
				continue
			}
			c := m.clone()
			cp[name] = &c
		}
		out[subject] = cp
	}
	return out
}

// Put stores a copy of m, replacing any existing record for its key.
func (b Book) Put(m TopicMastery) {
	topics, ok := b[m.Subject]
	if !ok {
		topics = make(map[string]*TopicMastery)
		b[m.Subject] = topics
	}
	c := m.clone()
	topics[m.Topic] = &c
}

// Lookup returns the record for subject/topic.
func (b Book) Lookup(subject, topic string) (*TopicMastery, bool) {
	topics, ok := b[subject]
	if !ok {
		return nil, false
	}
	m, ok := topics[topic]
	return m, ok && m != nil
}

// deriveConfidence applies the accuracy thresholds and the streak rule.
// Mastered is kept while accuracy stays above the high threshold.
func deriveConfidence(prev Confidence, accuracy float64, streak, masteryStreak int) Confidence {
	var c Confidence
	switch {
	case accuracy < LowAccuracyBelow:
		c = ConfidenceLow
	case accuracy <= HighAccuracyAbove:
		c = ConfidenceMedium
	default:
		c = ConfidenceHigh
	}
	if c == ConfidenceHigh && (prev == ConfidenceMastered || streak >= masteryStreak) {
		return ConfidenceMastered
	}
	return c
}
