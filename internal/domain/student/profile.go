package student

import (
	"errors"
	"strings"
	"time"

	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

// Defaults for new profiles.
const (
	DefaultDailyHours           = 10.0
	DefaultCalendarDays         = 8
	DefaultPreferredSessionMins = 120
)

// EnergyPeak is the part of the day the student studies best.
type EnergyPeak string

const (
	EnergyMorning   EnergyPeak = "morning"
	EnergyAfternoon EnergyPeak = "afternoon"
	EnergyEvening   EnergyPeak = "evening"
	EnergyNight     EnergyPeak = "night"
)

// IsValid checks the energy peak value.
func (e EnergyPeak) IsValid() bool {
	switch e {
	case EnergyMorning, EnergyAfternoon, EnergyEvening, EnergyNight:
		return true
	}
	return false
}

// InterventionStat tracks how often an intervention was given and how often
// the next answer after it was correct.
type InterventionStat struct {
	Issued    int `json:"issued"`
	Effective int `json:"effective"`
}

// Rate returns effective/issued.
func (s InterventionStat) Rate() float64 {
	if s.Issued == 0 {
		return 0
	}
	return float64(s.Effective) / float64(s.Issued)
}

// Profile is the root aggregate: everything the tutor knows about one student.
type Profile struct {
	ID       shared.StudentID `json:"student_id"`
	Name     string           `json:"name"`
	ExamDate time.Time        `json:"exam_date"`

	// DailyHours is the available-hours calendar; day 0 is CalendarStart.
	CalendarStart time.Time `json:"calendar_start"`
	DailyHours    []float64 `json:"daily_hours"`

	EnergyPeak           EnergyPeak `json:"energy_peak"`
	PreferredSessionMins int        `json:"preferred_session_mins"`

	Topics         mastery.Book               `json:"topics"`
	Sessions       []SessionRecord            `json:"sessions"`
	CurrentSession *SessionRecord             `json:"current_session"`
	DailyPlans     []DailyPlan                `json:"daily_plans"`
	Lectures       map[string]LectureProgress `json:"lectures"`

	Interventions  map[string]InterventionStat `json:"interventions"`
	StressTriggers map[string]int              `json:"stress_triggers"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfileParams holds the inputs for NewProfile.
type NewProfileParams struct {
	ID                   shared.StudentID
	Name                 string
	ExamDate             time.Time
	DailyHours           []float64
	EnergyPeak           EnergyPeak
	PreferredSessionMins int
	Now                  time.Time
}

// NewProfile creates an empty profile, filling defaults.
func NewProfile(p NewProfileParams) (*Profile, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, shared.NewDomainError("profile", "Create", shared.ErrEmptyValue, "name is required")
	}
	id := p.ID
	if id == "" {
		id = shared.StudentIDFromName(name)
	}
	if !id.IsValid() {
		return nil, shared.NewDomainError("profile", "Create", shared.ErrInvalidID, "invalid student id")
	}

	hours := p.DailyHours
	if len(hours) == 0 {
		hours = make([]float64, DefaultCalendarDays)
		for i := range hours {
			hours[i] = DefaultDailyHours
		}
	}
	peak := p.EnergyPeak
	if peak == "" {
		peak = EnergyMorning
	}
	pref := p.PreferredSessionMins
	if pref <= 0 {
		pref = DefaultPreferredSessionMins
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	profile := &Profile{
		ID:                   id,
		Name:                 name,
		ExamDate:             p.ExamDate,
		CalendarStart:        timeutil.StartOfDay(now),
		DailyHours:           append([]float64(nil), hours...),
		EnergyPeak:           peak,
		PreferredSessionMins: pref,
		Topics:               make(mastery.Book),
		Sessions:             make([]SessionRecord, 0),
		DailyPlans:           make([]DailyPlan, 0),
		Lectures:             make(map[string]LectureProgress),
		Interventions:        make(map[string]InterventionStat),
		StressTriggers:       make(map[string]int),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate checks profile invariants.
func (p *Profile) Validate() error {
	var errs []error
	if !p.ID.IsValid() {
		errs = append(errs, errors.New("student id is required"))
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	for _, h := range p.DailyHours {
		if h < 0 || h > 24 {
			errs = append(errs, errors.New("daily hours must be within 0-24"))
			break
		}
	}
	if p.EnergyPeak != "" && !p.EnergyPeak.IsValid() {
		errs = append(errs, errors.New("unknown energy peak "+string(p.EnergyPeak)))
	}
	if len(errs) > 0 {
		return shared.ErrInvalidProfile.Wrap(errors.Join(errs...))
	}
	return nil
}

// HasOpenSession reports whether a session is currently open.
func (p *Profile) HasOpenSession() bool {
	return p.CurrentSession != nil
}

// LastSession returns the most recent closed session.
func (p *Profile) LastSession() (SessionRecord, bool) {
	if len(p.Sessions) == 0 {
		return SessionRecord{}, false
	}
	return p.Sessions[len(p.Sessions)-1], true
}

// DaysRemaining returns IST calendar days from today until the exam, 0 once
// the exam day has passed or when no exam date is set.
func (p *Profile) DaysRemaining(today time.Time) int {
	if p.ExamDate.IsZero() {
		return 0
	}
	d := timeutil.DaysUntil(today, p.ExamDate)
	if d < 0 {
		return 0
	}
	return d
}

// HoursOn returns the available hours for the given day index. The
// calendar repeats when the index runs past its end.
func (p *Profile) HoursOn(dayIndex int) float64 {
	if len(p.DailyHours) == 0 {
		return DefaultDailyHours
	}
	if dayIndex < 0 {
		dayIndex = 0
	}
	return p.DailyHours[dayIndex%len(p.DailyHours)]
}

// OverallAccuracy aggregates correct/attempts over every topic.
func (p *Profile) OverallAccuracy() float64 {
	attempts, correct := 0, 0
	for _, topics := range p.Topics {
		for _, m := range topics {
			if m == nil {
				continue
			}
			attempts += m.Attempts
			correct += m.Correct
		}
	}
	if attempts == 0 {
		return 0
	}
	return float64(correct) / float64(attempts)
}

// TotalQuestionsSolved sums questions solved over closed sessions.
func (p *Profile) TotalQuestionsSolved() int {
	total := 0
	for _, s := range p.Sessions {
		total += s.QuestionsSolved
	}
	return total
}

// RecordIntervention counts an intervention and whether it helped.
func (p *Profile) RecordIntervention(action string, effective bool) {
	if p.Interventions == nil {
		p.Interventions = make(map[string]InterventionStat)
	}
	stat := p.Interventions[action]
	stat.Issued++
	if effective {
		stat.Effective++
	}
	p.Interventions[action] = stat
}

// RecordStressTrigger counts one occurrence of a stress signal.
func (p *Profile) RecordStressTrigger(signal string) {
	if p.StressTriggers == nil {
		p.StressTriggers = make(map[string]int)
	}
	p.StressTriggers[signal]++
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.DailyHours = cloneSlice(p.DailyHours)
	cp.Topics = p.Topics.Clone()
	if p.Sessions != nil {
		cp.Sessions = make([]SessionRecord, len(p.Sessions))
		for i, s := range p.Sessions {
			cp.Sessions[i] = s.Clone()
		}
	}
	if p.CurrentSession != nil {
		s := p.CurrentSession.Clone()
		cp.CurrentSession = &s
	}
	if p.DailyPlans != nil {
		cp.DailyPlans = make([]DailyPlan, len(p.DailyPlans))
		for i, d := range p.DailyPlans {
			cp.DailyPlans[i] = d.Clone()
		}
	}
	cp.Lectures = CloneLectures(p.Lectures)
	cp.Interventions = cloneMap(p.Interventions)
	cp.StressTriggers = cloneMap(p.StressTriggers)
	return &cp
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
