package student

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

var now = time.Date(2026, 1, 10, 4, 30, 0, 0, time.UTC)

func newTestProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := NewProfile(NewProfileParams{
		Name:     "  Riya Sharma ",
		ExamDate: timeutil.Date(2026, 4, 4),
		Now:      now,
	})
	require.NoError(t, err)
	return p
}

func TestNewProfile_Defaults(t *testing.T) {
	p := newTestProfile(t)

	assert.Equal(t, shared.StudentID("riya-sharma"), p.ID)
	assert.Equal(t, "Riya Sharma", p.Name)
	assert.Len(t, p.DailyHours, DefaultCalendarDays)
	assert.Equal(t, DefaultDailyHours, p.DailyHours[0])
	assert.Equal(t, DefaultPreferredSessionMins, p.PreferredSessionMins)
	assert.Equal(t, EnergyMorning, p.EnergyPeak)
	assert.Equal(t, timeutil.Date(2026, 1, 10), p.CalendarStart)
	assert.False(t, p.HasOpenSession())
	assert.NotNil(t, p.Topics)
}

func TestNewProfile_Validation(t *testing.T) {
	_, err := NewProfile(NewProfileParams{Name: "   "})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewProfile(NewProfileParams{Name: "A", DailyHours: []float64{8, 30}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewProfile(NewProfileParams{Name: "A", EnergyPeak: "dawn"})
	assert.ErrorIs(t, err, shared.ErrInvalidProfile)
}

func TestProfile_DaysRemaining(t *testing.T) {
	p := newTestProfile(t)
	assert.Equal(t, 84, p.DaysRemaining(now))
	assert.Equal(t, 0, p.DaysRemaining(timeutil.Date(2026, 5, 1)))

	p.ExamDate = time.Time{}
	assert.Equal(t, 0, p.DaysRemaining(now))
}

func TestProfile_HoursOnCycles(t *testing.T) {
	p := newTestProfile(t)
	p.DailyHours = []float64{6, 8, 10}
	assert.Equal(t, 6.0, p.HoursOn(0))
	assert.Equal(t, 10.0, p.HoursOn(2))
	assert.Equal(t, 8.0, p.HoursOn(4))
	assert.Equal(t, 6.0, p.HoursOn(-1))
}

func TestProfile_OverallAccuracyAndAggregates(t *testing.T) {
	p := newTestProfile(t)
	p.Topics.Put(mastery.TopicMastery{Subject: "Physics", Topic: "Optics", Attempts: 4, Correct: 1})
	p.Topics.Put(mastery.TopicMastery{Subject: "Maths", Topic: "Limits", Attempts: 6, Correct: 5})
	assert.InDelta(t, 0.6, p.OverallAccuracy(), 1e-9)

	p.RecordIntervention("break_suggestion", true)
	p.RecordIntervention("break_suggestion", false)
	assert.Equal(t, InterventionStat{Issued: 2, Effective: 1}, p.Interventions["break_suggestion"])
	assert.Equal(t, 0.5, p.Interventions["break_suggestion"].Rate())

	p.RecordStressTrigger("long_session")
	p.RecordStressTrigger("long_session")
	assert.Equal(t, 2, p.StressTriggers["long_session"])
}

func TestProfile_CloneIsDeep(t *testing.T) {
	p := newTestProfile(t)
	p.Topics.Put(mastery.TopicMastery{Subject: "Physics", Topic: "Optics", Attempts: 1})
	rec := NewSessionRecord("s1", now)
	rec.TopicsTouched = append(rec.TopicsTouched, "Optics")
	p.CurrentSession = &rec
	p.Sessions = append(p.Sessions, rec)

	cp := p.Clone()
	cp.DailyHours[0] = 1
	cp.CurrentSession.QuestionsSolved = 9
	cp.Sessions[0].TopicsTouched[0] = "Waves"
	m, _ := cp.Topics.Lookup("Physics", "Optics")
	m.Attempts = 50
	cp.StressTriggers["x"] = 1

	assert.Equal(t, DefaultDailyHours, p.DailyHours[0])
	assert.Equal(t, 0, p.CurrentSession.QuestionsSolved)
	assert.Equal(t, "Optics", p.Sessions[0].TopicsTouched[0])
	orig, _ := p.Topics.Lookup("Physics", "Optics")
	assert.Equal(t, 1, orig.Attempts)
	assert.Empty(t, p.StressTriggers)
}

func TestSessionRecord_Lifecycle(t *testing.T) {
	rec := NewSessionRecord("s1", now)
	assert.True(t, rec.IsOpen())
	assert.Zero(t, rec.Duration())
	assert.Zero(t, rec.Accuracy())

	rec.QuestionsAttempted = 4
	rec.QuestionsSolved = 3
	require.NoError(t, rec.Close(now.Add(95*time.Minute)))
	assert.False(t, rec.IsOpen())
	assert.Equal(t, 95*time.Minute, rec.Duration())
	assert.Equal(t, 0.75, rec.Accuracy())

	assert.ErrorIs(t, rec.Close(now.Add(time.Hour)), ErrSessionAlreadyClosed)
}

func TestMoodFromLevel(t *testing.T) {
	assert.Equal(t, MoodEnergised, MoodFromLevel(1))
	assert.Equal(t, MoodSteady, MoodFromLevel(2))
	assert.Equal(t, MoodStrained, MoodFromLevel(3))
	assert.Equal(t, MoodStressed, MoodFromLevel(5))
}

func TestLectureProgress(t *testing.T) {
	l := LectureProgress{LectureID: "phy-01", TotalMins: 60}
	l.RecordWatch(45, now)
	assert.False(t, l.Completed())
	l.RecordWatch(30, now)
	assert.Equal(t, 60, l.WatchedMins)
	assert.True(t, l.Completed())

	assert.Equal(t, 1.0, RecommendedSpeedFor(mastery.ConfidenceNone))
	assert.Equal(t, 1.5, RecommendedSpeedFor(mastery.ConfidenceHigh))
}
