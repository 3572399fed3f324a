package session

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/logger"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

// LoadOrCreate loads the profile identified by params (its ID, or the slug
// of its name) and creates and saves a new one when none is stored.
// The second result reports whether the profile was created.
func (o *Orchestrator) LoadOrCreate(ctx context.Context, params student.NewProfileParams) (*student.Profile, bool, error) {
	id := params.ID
	if id == "" {
		id = shared.StudentIDFromName(params.Name)
	}

	p, err := o.profiles.Load(ctx, id)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, shared.ErrProfileNotFound) {
		return nil, false, err
	}

	if params.Now.IsZero() {
		params.Now = o.now()
	}
	params.ID = id
	p, err = student.NewProfile(params)
	if err != nil {
		return nil, false, err
	}
	if err := o.profiles.Save(ctx, p); err != nil {
		return nil, false, err
	}
	o.log.Info("profile created",
		logger.String("student_id", p.ID.String()),
		logger.String("exam_date", timeutil.FormatDateStr(p.ExamDate)),
	)
	return p, true, nil
}

// Reset deletes the stored profile. It refuses while a session is open.
func (o *Orchestrator) Reset(ctx context.Context, id shared.StudentID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		return shared.ErrSessionAlreadyOpen
	}
	if err := o.profiles.Delete(ctx, id); err != nil {
		return err
	}
	o.log.Warn("profile reset", logger.String("student_id", id.String()))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Report is a read-only progress overview of a profile.
type Report struct {
	Name              string
	DaysRemaining     int
	Sessions          int
	QuestionsSolved   int
	OverallAccuracy   float64
	SubjectAccuracy   map[string]float64
	Weakest           []mastery.TopicMastery
	Mastered          []mastery.TopicMastery
	LatestPlan        *student.DailyPlan
	InterventionRates map[string]float64
}

// BuildReport summarizes p as of now.
func BuildReport(p *student.Profile, now time.Time, weakest int) Report {
	store := mastery.NewStore(p.Topics)
	r := Report{
		Name:            p.Name,
		DaysRemaining:   p.DaysRemaining(now),
		Sessions:        len(p.Sessions),
		QuestionsSolved: p.TotalQuestionsSolved(),
		OverallAccuracy: p.OverallAccuracy(),
		SubjectAccuracy: store.AccuracyBySubject(),
		Weakest:         store.Weakest(weakest),
		Mastered: lo.Filter(store.All(), func(m mastery.TopicMastery, _ int) bool {
			return m.Confidence == mastery.ConfidenceMastered
		}),
		InterventionRates: lo.MapValues(p.Interventions, func(s student.InterventionStat, _ string) float64 {
			return s.Rate()
		}),
	}
	if n := len(p.DailyPlans); n > 0 {
		plan := p.DailyPlans[n-1].Clone()
		r.LatestPlan = &plan
	}
	return r
}

// PreviewPlan returns the plan the adapter would emit for p right now,
// based on its last closed session. Nothing is stored.
func (o *Orchestrator) PreviewPlan(p *student.Profile) student.DailyPlan {
	var yesterday *student.SessionRecord
	if last, ok := p.LastSession(); ok {
		yesterday = &last
	}
	return o.planner.NextPlan(p, yesterday)
}
