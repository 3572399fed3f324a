package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

var today = time.Date(2026, 1, 12, 6, 0, 0, 0, timeutil.IST)

func profileWithTopics(t *testing.T) *student.Profile {
	t.Helper()
	p, err := student.NewProfile(student.NewProfileParams{
		Name:       "Arjun",
		DailyHours: []float64{7, 4, 10},
		Now:        time.Date(2026, 1, 10, 6, 0, 0, 0, timeutil.IST),
	})
	require.NoError(t, err)

	for _, m := range []mastery.TopicMastery{
		{Subject: "Physics", Topic: "Optics", Attempts: 10, Correct: 2, Confidence: mastery.ConfidenceLow},
		{Subject: "Chemistry", Topic: "Mole Concept", Attempts: 10, Correct: 5, Confidence: mastery.ConfidenceMedium},
		{Subject: "Maths", Topic: "Limits", Attempts: 10, Correct: 8, Confidence: mastery.ConfidenceHigh},
		{Subject: "Maths", Topic: "Matrices", Attempts: 10, Correct: 10, Confidence: mastery.ConfidenceMastered},
		{Subject: "Physics", Topic: "Waves", Attempts: 2, Correct: 0, Confidence: mastery.ConfidenceLow},
	} {
		p.Topics.Put(m)
	}
	return p
}

func record(attempted, solved int) *student.SessionRecord {
	r := student.NewSessionRecord("s", today.Add(-24*time.Hour))
	r.QuestionsAttempted = attempted
	r.QuestionsSolved = solved
	return &r
}

func topics(plan student.DailyPlan) []string {
	out := make([]string, 0, len(plan.TargetTopics))
	for _, t := range plan.TargetTopics {
		out = append(out, t.Topic)
	}
	return out
}

func TestNextPlan_LowDayShrinksAndDropsStrongTopics(t *testing.T) {
	a := NewAdapter(DefaultConfig(), WithClock(func() time.Time { return today }))
	plan := a.NextPlan(profileWithTopics(t), record(10, 3))

	assert.Equal(t, 14, plan.TargetPYQCount)
	assert.Equal(t, []string{"Waves", "Optics", "Mole Concept"}, topics(plan))
	for _, tt := range plan.TargetTopics {
		assert.False(t, tt.Confidence.AtLeast(mastery.ConfidenceHigh), tt.Topic)
		assert.False(t, tt.Stretch)
	}
	require.NotNil(t, plan.YesterdayAccuracy)
	assert.InDelta(t, 0.3, *plan.YesterdayAccuracy, 1e-9)
	assert.Equal(t, "Physics", plan.FocusSubject)
}

func TestNextPlan_StrongDayAddsStretch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopicCount = 3
	a := NewAdapter(cfg, WithClock(func() time.Time { return today }))
	plan := a.NextPlan(profileWithTopics(t), record(10, 8))

	assert.Equal(t, 24, plan.TargetPYQCount)
	require.Len(t, plan.TargetTopics, 4)
	stretch := plan.TargetTopics[3]
	assert.True(t, stretch.Stretch)
	assert.Equal(t, "Limits", stretch.Topic, "strongest topic that is not mastered")
	assert.Equal(t, shared.DifficultyHard, stretch.Difficulty)
}

func TestNextPlan_NormalAndAbsentYesterday(t *testing.T) {
	a := NewAdapter(DefaultConfig(), WithClock(func() time.Time { return today }))
	p := profileWithTopics(t)

	plan := a.NextPlan(p, nil)
	assert.Equal(t, 20, plan.TargetPYQCount)
	assert.Len(t, plan.TargetTopics, 5)
	assert.Nil(t, plan.YesterdayAccuracy)

	plan = a.NextPlan(p, record(10, 5))
	assert.Equal(t, 20, plan.TargetPYQCount)

	plan = a.NextPlan(p, record(0, 0))
	assert.Equal(t, 20, plan.TargetPYQCount, "empty session is ignored")
}

func TestNextPlan_HoursFromCalendarWithBreaks(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	p := profileWithTopics(t)

	// Calendar starts on the 10th; the 12th is day index 2 (10 hours).
	plan := a.PlanFor(today, p, nil)
	assert.Equal(t, 2, plan.DayIndex)
	assert.Equal(t, 10.0, plan.EstimatedHours)
	assert.Equal(t, 600, plan.StudyMinutes())
	assert.Equal(t, []student.PlanBlock{
		{Kind: student.BlockStudy, Minutes: 180},
		{Kind: student.BlockBreak, Minutes: 15},
		{Kind: student.BlockStudy, Minutes: 180},
		{Kind: student.BlockBreak, Minutes: 15},
		{Kind: student.BlockStudy, Minutes: 180},
		{Kind: student.BlockBreak, Minutes: 15},
		{Kind: student.BlockStudy, Minutes: 60},
	}, plan.Blocks)

	// Day index 4 wraps to the second entry (4 hours).
	plan = a.PlanFor(today.AddDate(0, 0, 2), p, nil)
	assert.Equal(t, 4.0, plan.EstimatedHours)
	assert.Len(t, plan.Blocks, 3)
}

func TestNextPlan_ClampsHours(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDailyHours = 5
	p := profileWithTopics(t)
	plan := NewAdapter(cfg).PlanFor(today, p, nil)
	assert.Equal(t, 5.0, plan.EstimatedHours)
	for _, b := range plan.Blocks {
		if b.Kind == student.BlockStudy {
			assert.LessOrEqual(t, b.Minutes, 180)
		}
	}
}

func TestNextPlan_EmptyProfileRotatesFocus(t *testing.T) {
	p, err := student.NewProfile(student.NewProfileParams{Name: "New", Now: today})
	require.NoError(t, err)
	a := NewAdapter(DefaultConfig())

	assert.Equal(t, "Physics", a.PlanFor(today, p, nil).FocusSubject)
	assert.Equal(t, "Chemistry", a.PlanFor(today.AddDate(0, 0, 1), p, nil).FocusSubject)
	assert.Empty(t, a.PlanFor(today, p, nil).TargetTopics)
}

func TestNextPlan_SuggestsLecturesForWeakTopics(t *testing.T) {
	lectures := []content.Lecture{
		{ID: "phy-opt-01", Title: "Ray optics", Subject: "Physics", Topic: "Optics", TotalMins: 60},
		{ID: "phy-opt-02", Title: "Wave optics", Subject: "Physics", Topic: "Optics", TotalMins: 50},
		{ID: "chem-mole-01", Title: "Mole concept", Subject: "Chemistry", Topic: "Mole Concept", TotalMins: 45},
		{ID: "math-lim-01", Title: "Limits", Subject: "Maths", Topic: "Limits", TotalMins: 40},
		{ID: "bio-01", Title: "Cells", Subject: "Biology", Topic: "Optics", TotalMins: 30},
	}
	a := NewAdapter(DefaultConfig(), WithClock(func() time.Time { return today }), WithLectures(lectures))

	p := profileWithTopics(t)
	p.Lectures["phy-opt-01"] = student.LectureProgress{LectureID: "phy-opt-01", TotalMins: 60, WatchedMins: 60}

	plan := a.NextPlan(p, nil)
	require.Len(t, plan.LecturesToWatch, 2)

	// Finished lectures are skipped and strong topics get none.
	optics := plan.LecturesToWatch[0]
	assert.Equal(t, "phy-opt-02", optics.LectureID)
	assert.Equal(t, "Wave optics", optics.Title)
	assert.Equal(t, 1.0, optics.Speed)

	mole := plan.LecturesToWatch[1]
	assert.Equal(t, "chem-mole-01", mole.LectureID)
	assert.Equal(t, 1.25, mole.Speed)

	assert.Empty(t, NewAdapter(DefaultConfig()).PlanFor(today, p, nil).LecturesToWatch)
}
