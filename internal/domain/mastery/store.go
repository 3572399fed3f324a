package mastery

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Store applies practice results to a Book. It is not safe for concurrent
// use; the session orchestrator serializes all mutation.
type Store struct {
	book          Book
	now           func() time.Time
	masteryStreak int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for last-practiced timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMasteryStreak overrides the consecutive-correct count needed for mastered.
func WithMasteryStreak(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.masteryStreak = n
		}
	}
}

// NewStore wraps book. A nil book starts empty.
func NewStore(book Book, opts ...Option) *Store {
	if book == nil {
		book = make(Book)
	}
	s := &Store{
		book:          book,
		now:           func() time.Time { return time.Now().UTC() },
		masteryStreak: DefaultMasteryStreak,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book returns the underlying book.
func (s *Store) Book() Book {
	return s.book
}

// Get returns a copy of the record for subject/topic.
func (s *Store) Get(subject, topic string) (TopicMastery, bool) {
	m, ok := s.book.Lookup(subject, topic)
	if !ok {
		return TopicMastery{}, false
	}
	return m.clone(), true
}

// Record applies one answer to subject/topic, creating the record with
// confidence none when absent, and returns the updated copy.
func (s *Store) Record(subject, topic string, correct bool, elapsedSecs int) TopicMastery {
	m, ok := s.book.Lookup(subject, topic)
	if !ok {
		s.book.Put(TopicMastery{
			Subject:    subject,
			Topic:      topic,
			Confidence: ConfidenceNone,
		})
		m, _ = s.book.Lookup(subject, topic)
	}

	m.Attempts++
	if correct {
		m.Correct++
	}
	if elapsedSecs > 0 {
		m.TimeSpentSecs += elapsedSecs
	}
	m.LastPracticed = s.now()

	// The streak only counts answers given while the topic sits at high.
	base := deriveConfidence(ConfidenceNone, m.Accuracy(), 0, s.masteryStreak)
	if correct && base == ConfidenceHigh {
		m.Streak++
	} else {
		m.Streak = 0
	}
	m.Confidence = deriveConfidence(m.Confidence, m.Accuracy(), m.Streak, s.masteryStreak)

	return m.clone()
}

// AddWeakSubtopic notes a subtopic the student struggled with.
func (s *Store) AddWeakSubtopic(subject, topic, subtopic string) {
	m, ok := s.book.Lookup(subject, topic)
	if !ok || subtopic == "" || lo.Contains(m.WeakSubtopics, subtopic) {
		return
	}
	m.WeakSubtopics = append(m.WeakSubtopics, subtopic)
}

// All returns every record ordered by subject then topic.
func (s *Store) All() []TopicMastery {
	out := make([]TopicMastery, 0)
	for _, topics := range s.book {
		for _, m := range topics {
			if m != nil {
				out = append(out, m.clone())
			}
		}
	}
	slices.SortFunc(out, func(a, b TopicMastery) int {
		return cmp.Or(cmp.Compare(a.Subject, b.Subject), cmp.Compare(a.Topic, b.Topic))
	})
	return out
}

// Weakest returns up to n records sorted by accuracy ascending, then fewer
// attempts, then topic name (subject breaks any remaining tie).
func (s *Store) Weakest(n int) []TopicMastery {
	if n <= 0 {
		return nil
	}
	all := s.All()
	SortWeakestFirst(all)
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// SortWeakestFirst orders records the way Weakest does.
func SortWeakestFirst(records []TopicMastery) {
	slices.SortStableFunc(records, func(a, b TopicMastery) int {
		return cmp.Or(
			cmp.Compare(a.Accuracy(), b.Accuracy()),
			cmp.Compare(a.Attempts, b.Attempts),
			cmp.Compare(a.Topic, b.Topic),
			cmp.Compare(a.Subject, b.Subject),
		)
	})
}

// AccuracyBySubject returns correct/attempts aggregated per subject.
func (s *Store) AccuracyBySubject() map[string]float64 {
	grouped := lo.GroupBy(s.All(), func(m TopicMastery) string { return m.Subject })
	return lo.MapValues(grouped, func(records []TopicMastery, _ string) float64 {
		attempts := lo.SumBy(records, func(m TopicMastery) int { return m.Attempts })
		correct := lo.SumBy(records, func(m TopicMastery) int { return m.Correct })
		if attempts == 0 {
			return 0
		}
		return float64(correct) / float64(attempts)
	})
}
