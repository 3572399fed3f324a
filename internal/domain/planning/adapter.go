// Package planning turns yesterday's performance and the student's
// available-hours calendar into the skeleton of the next study day.
package planning

import (
	"math"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

// Config holds planning defaults.
type Config struct {
	DefaultPYQCount   int
	TopicCount        int
	LowAccuracyBelow  float64
	HighAccuracyAbove float64
	LowDayFactor      float64
	StrongDayFactor   float64
	MaxBlockHours     float64
	BreakMinutes      int
	MaxDailyHours     float64

	// Subjects rotate as the focus when the profile has no topic history.
	Subjects []string
}

// DefaultConfig returns the planning defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPYQCount:   20,
		TopicCount:        5,
		LowAccuracyBelow:  0.4,
		HighAccuracyAbove: 0.7,
		LowDayFactor:      0.7,
		StrongDayFactor:   1.2,
		MaxBlockHours:     3,
		BreakMinutes:      15,
		MaxDailyHours:     12,
		Subjects:          []string{"Physics", "Chemistry", "Mathematics"},
	}
}

// Adapter produces daily plans. It is stateless and safe for concurrent use.
type Adapter struct {
	cfg      Config
	now      func() time.Time
	lectures []content.Lecture
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the clock used by NextPlan.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLectures lets plans suggest recorded lectures for weak topics.
func WithLectures(lectures []content.Lecture) Option {
	return func(a *Adapter) {
		a.lectures = lectures
	}
}

// NewAdapter creates an adapter, filling zero settings with defaults.
func NewAdapter(cfg Config, opts ...Option) *Adapter {
	def := DefaultConfig()
	if cfg.DefaultPYQCount <= 0 {
		cfg.DefaultPYQCount = def.DefaultPYQCount
	}
	if cfg.TopicCount <= 0 {
		cfg.TopicCount = def.TopicCount
	}
	if cfg.LowAccuracyBelow <= 0 {
		cfg.LowAccuracyBelow = def.LowAccuracyBelow
	}
	if cfg.HighAccuracyAbove <= 0 {
		cfg.HighAccuracyAbove = def.HighAccuracyAbove
	}
	if cfg.LowDayFactor <= 0 {
		cfg.LowDayFactor = def.LowDayFactor
	}
	if cfg.StrongDayFactor <= 0 {
		cfg.StrongDayFactor = def.StrongDayFactor
	}
	if cfg.MaxBlockHours <= 0 {
		cfg.MaxBlockHours = def.MaxBlockHours
	}
	if cfg.BreakMinutes <= 0 {
		cfg.BreakMinutes = def.BreakMinutes
	}
	if cfg.MaxDailyHours <= 0 {
		cfg.MaxDailyHours = def.MaxDailyHours
	}
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = def.Subjects
	}
	a := &Adapter{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NextPlan plans today from yesterday's session, which may be nil.
func (a *Adapter) NextPlan(p *student.Profile, yesterday *student.SessionRecord) student.DailyPlan {
	return a.PlanFor(a.now(), p, yesterday)
}

// dayKind classifies yesterday's performance.
type dayKind int

const (
	dayNormal dayKind = iota
	dayLow
	dayStrong
)

// PlanFor plans the IST day containing day.
func (a *Adapter) PlanFor(day time.Time, p *student.Profile, yesterday *student.SessionRecord) student.DailyPlan {
	date := timeutil.StartOfDay(day)
	index := timeutil.DayIndex(p.CalendarStart, date)

	kind := dayNormal
	var yAcc *float64
	// A session with no answers says nothing about performance.
	if yesterday != nil && yesterday.QuestionsAttempted > 0 {
		acc := yesterday.Accuracy()
		yAcc = &acc
		switch {
		case acc < a.cfg.LowAccuracyBelow:
			kind = dayLow
		case acc > a.cfg.HighAccuracyAbove:
			kind = dayStrong
		}
	}

	count := a.cfg.DefaultPYQCount
	switch kind {
	case dayLow:
		count = int(math.Round(float64(count) * a.cfg.LowDayFactor))
	case dayStrong:
		count = int(math.Round(float64(count) * a.cfg.StrongDayFactor))
	}

	targets := a.targets(p, kind)
	focus := a.cfg.Subjects[index%len(a.cfg.Subjects)]
	if len(targets) > 0 {
		focus = targets[0].Subject
	}

	hours := lo.Clamp(p.HoursOn(index), 0, a.cfg.MaxDailyHours)

	return student.DailyPlan{
		Date:              date,
		DayIndex:          index,
		FocusSubject:      focus,
		TargetTopics:      targets,
		TargetPYQCount:    count,
		EstimatedHours:    hours,
		Blocks:            a.blocks(hours),
		YesterdayAccuracy: yAcc,
		LecturesToWatch:   a.lecturesFor(p, targets),
	}
}

// lecturesFor suggests the first unfinished lecture of each target topic the
// student is not yet confident in, at a speed that fits their confidence.
func (a *Adapter) lecturesFor(p *student.Profile, targets []student.TopicTarget) []student.LectureToWatch {
	var out []student.LectureToWatch
	for _, t := range targets {
		if t.Stretch || t.Confidence.AtLeast(mastery.ConfidenceHigh) {
			continue
		}
		l, ok := lo.Find(a.lectures, func(l content.Lecture) bool {
			if !strings.EqualFold(l.Subject, t.Subject) || !strings.EqualFold(l.Topic, t.Topic) {
				return false
			}
			progress, seen := p.Lectures[l.ID]
			return !seen || !progress.Completed()
		})
		if !ok {
			continue
		}
		out = append(out, student.LectureToWatch{
			LectureID: l.ID,
			Title:     l.Title,
			Subject:   l.Subject,
			Topic:     l.Topic,
			Speed:     student.RecommendedSpeedFor(t.Confidence),
		})
	}
	return out
}

func (a *Adapter) targets(p *student.Profile, kind dayKind) []student.TopicTarget {
	all := mastery.NewStore(p.Topics).All()
	mastery.SortWeakestFirst(all)

	candidates := all
	if kind == dayLow {
		candidates = lo.Filter(all, func(m mastery.TopicMastery, _ int) bool {
			return !m.Confidence.AtLeast(mastery.ConfidenceHigh)
		})
	}
	picked := candidates
	if len(picked) > a.cfg.TopicCount {
		picked = picked[:a.cfg.TopicCount]
	}

	targets := lo.Map(picked, func(m mastery.TopicMastery, _ int) student.TopicTarget {
		return student.TopicTarget{
			Subject:    m.Subject,
			Topic:      m.Topic,
			Confidence: m.Confidence,
			Difficulty: difficultyFor(m.Confidence),
		}
	})

	if kind == dayStrong {
		if stretch, ok := a.stretch(all, picked); ok {
			targets = append(targets, stretch)
		}
	}
	return targets
}

// stretch picks the strongest topic not already targeted, preferring ones
// that are not yet mastered.
func (a *Adapter) stretch(all, picked []mastery.TopicMastery) (student.TopicTarget, bool) {
	taken := lo.SliceToMap(picked, func(m mastery.TopicMastery) (mastery.Key, bool) { return m.Key(), true })
	rest := lo.Filter(all, func(m mastery.TopicMastery, _ int) bool { return !taken[m.Key()] })
	if len(rest) == 0 {
		return student.TopicTarget{}, false
	}
	pool := lo.Filter(rest, func(m mastery.TopicMastery, _ int) bool {
		return m.Confidence != mastery.ConfidenceMastered
	})
	if len(pool) == 0 {
		pool = rest
	}
	// rest is weakest-first, so the strongest is last.
	best := pool[len(pool)-1]
	return student.TopicTarget{
		Subject:    best.Subject,
		Topic:      best.Topic,
		Confidence: best.Confidence,
		Difficulty: shared.DifficultyHard,
		Stretch:    true,
	}, true
}

func difficultyFor(c mastery.Confidence) shared.Difficulty {
	switch c {
	case mastery.ConfidenceMedium:
		return shared.DifficultyMedium
	case mastery.ConfidenceHigh, mastery.ConfidenceMastered:
		return shared.DifficultyHard
	default:
		return shared.DifficultyEasy
	}
}

// blocks splits the day into study blocks no longer than MaxBlockHours with
// a break between consecutive blocks.
func (a *Adapter) blocks(hours float64) []student.PlanBlock {
	remaining := int(math.Round(hours * 60))
	maxBlock := int(math.Round(a.cfg.MaxBlockHours * 60))
	out := make([]student.PlanBlock, 0)
	for remaining > 0 {
		n := min(remaining, maxBlock)
		out = append(out, student.PlanBlock{Kind: student.BlockStudy, Minutes: n})
		remaining -= n
		if remaining > 0 {
			out = append(out, student.PlanBlock{Kind: student.BlockBreak, Minutes: a.cfg.BreakMinutes})
		}
	}
	return out
}
