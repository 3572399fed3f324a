package practice

import (
	"errors"
	"fmt"
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

// Config holds the practice thresholds.
type Config struct {
	// StuckAfter is how long a question may stay unanswered before the
	// student is considered stuck.
	StuckAfter time.Duration

	// IncorrectToStuck is the number of consecutive wrong answers on one
	// question that enters STUCK.
	IncorrectToStuck int

	// MediumCorrectToHard is the number of clean medium answers needed to
	// reach the hard tier.
	MediumCorrectToHard int

	// CheckpointEvery is the wall-clock interval between checkpoints.
	CheckpointEvery time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		StuckAfter:          120 * time.Second,
		IncorrectToStuck:    2,
		MediumCorrectToHard: 2,
		CheckpointEvery:     30 * time.Minute,
	}
}

// Question is the slot for the single question currently in front of the student.
type Question struct {
	ID         string            `json:"id"`
	Difficulty shared.Difficulty `json:"difficulty"`
	Misses     int               `json:"misses"`
	Tainted    bool              `json:"tainted"` // answered incorrectly at least once
}

// Transition records one state change.
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Step is the outcome of applying an event.
type Step struct {
	From   State
	To     State
	Cue    Cue
	Reason string
}

// Changed reports whether the step moved the machine.
func (s Step) Changed() bool {
	return s.From != s.To
}

// Machine is the per-session practice state machine. It is deterministic
// and has no timers: the caller supplies time in every event.
type Machine struct {
	cfg Config

	state     State
	stuckFrom State
	heldFrom  State

	subject string
	topic   string
	current *Question

	mediumCorrect int
	topicAttempts int
	topicCorrect  int

	lastCheckpoint time.Time
	history        []Transition
}

// NewMachine creates a machine in AWAIT_TOPIC whose checkpoint clock starts at start.
func NewMachine(cfg Config, start time.Time) *Machine {
	def := DefaultConfig()
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = def.StuckAfter
	}
	if cfg.IncorrectToStuck <= 0 {
		cfg.IncorrectToStuck = def.IncorrectToStuck
	}
	if cfg.MediumCorrectToHard <= 0 {
		cfg.MediumCorrectToHard = def.MediumCorrectToHard
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = def.CheckpointEvery
	}
	return &Machine{
		cfg:            cfg,
		state:          StateAwaitTopic,
		lastCheckpoint: start,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Origin returns the state a checkpoint or STUCK will return to.
func (m *Machine) Origin() State {
	if m.state == StateCheckpoint {
		return m.heldFrom
	}
	return m.stuckFrom
}

// Subject returns the subject of the topic in practice.
func (m *Machine) Subject() string { return m.subject }

// Topic returns the topic in practice.
func (m *Machine) Topic() string { return m.topic }

// TopicTally returns answers and correct answers for the current topic pass.
func (m *Machine) TopicTally() (attempts, correct int) {
	return m.topicAttempts, m.topicCorrect
}

// Current returns a copy of the question being served.
func (m *Machine) Current() (Question, bool) {
	if m.current == nil {
		return Question{}, false
	}
	return *m.current, true
}

// History returns the recorded transitions.
func (m *Machine) History() []Transition {
	return append([]Transition(nil), m.history...)
}

// Validate reports whether ev may be applied in the current state without
// changing anything.
func (m *Machine) Validate(ev Event) error {
	switch ev.Kind {
	case KindMessage, KindBreak, KindResume:
		return nil
	}

	switch m.state {
	case StateAwaitTopic:
		if ev.Kind == KindSelectTopic && ev.Topic != "" {
			return nil
		}
	case StateServingEasy, StateServingMedium, StateServingHard:
		switch ev.Kind {
		case KindAnswer:
			if m.current == nil {
				return invalid(m.state, ev, "no question has been served")
			}
			if ev.QuestionID != "" && ev.QuestionID != m.current.ID {
				return invalid(m.state, ev, "answer is for question "+ev.QuestionID)
			}
			return nil
		case KindTick:
			if m.current == nil {
				return invalid(m.state, ev, "no question has been served")
			}
			return nil
		}
	case StateStuck:
		if ev.Kind == KindTheoryDone {
			return nil
		}
	case StatePatternSummary:
		if ev.Kind == KindSummaryDone {
			return nil
		}
	}
	return invalid(m.state, ev, "")
}

func invalid(state State, ev Event, detail string) error {
	msg := fmt.Sprintf("%s in %s", ev.Kind, state)
	if detail != "" {
		msg += ": " + detail
	}
	return shared.ErrInvalidEvent.Wrap(errors.New(msg))
}

// Apply feeds one event to the machine. Invalid events return an error
// matching shared.ErrInvalidEvent and leave the machine untouched.
func (m *Machine) Apply(ev Event) (Step, error) {
	if err := m.Validate(ev); err != nil {
		return Step{From: m.state, To: m.state}, err
	}

	from := m.state
	switch m.state {
	case StateAwaitTopic:
		if ev.Kind == KindSelectTopic {
			m.beginTopic(ev)
			return m.step(from, CueServeNew, "topic selected"), nil
		}
		return m.step(from, CueChooseTopic, ""), nil

	case StateServingEasy, StateServingMedium, StateServingHard:
		switch ev.Kind {
		case KindAnswer:
			return m.answer(from, ev), nil
		case KindTick:
			if ev.RequestsHelp() {
				return m.enterStuck(from, StuckRequested, ev.At), nil
			}
			if time.Duration(ev.ElapsedSecs)*time.Second > m.cfg.StuckAfter {
				return m.enterStuck(from, StuckTimeout, ev.At), nil
			}
		}
		return m.step(from, m.cueFor(m.state), ""), nil

	case StateStuck:
		if ev.Kind == KindTheoryDone {
			return m.leaveStuck(from, ev.At), nil
		}
		return m.step(from, CueTheory, ""), nil

	case StatePatternSummary:
		if ev.Kind == KindSummaryDone {
			m.clearTopic()
			m.moveTo(StateAwaitTopic, "summary delivered", ev.At)
			return m.step(from, CueChooseTopic, "summary delivered"), nil
		}
		return m.step(from, CueSummary, ""), nil

	default:
		// StateCheckpoint, the only state left.
		if ev.Kind == KindResume || ev.Kind == KindBreak {
			return m.Release(ev.At), nil
		}
		return m.step(from, CueHold, ""), nil
	}
}

func (m *Machine) beginTopic(ev Event) {
	m.subject = ev.Subject
	m.topic = ev.Topic
	m.current = nil
	m.mediumCorrect = 0
	m.topicAttempts = 0
	m.topicCorrect = 0
	m.moveTo(StateServingEasy, "topic selected", ev.At)
}

func (m *Machine) clearTopic() {
	m.current = nil
	m.mediumCorrect = 0
}

func (m *Machine) answer(from State, ev Event) Step {
	q := m.current
	m.topicAttempts++
	if ev.Correct {
		m.topicCorrect++
	}

	if from == StateServingHard {
		m.current = nil
		m.moveTo(StatePatternSummary, "hard attempt", ev.At)
		return m.step(from, CueSummary, "hard attempt")
	}

	if !ev.Correct {
		q.Misses++
		q.Tainted = true
		if q.Misses >= m.cfg.IncorrectToStuck {
			return m.enterStuck(from, StuckRepeatedErrors, ev.At)
		}
		return m.step(from, CueServeSame, "retry")
	}

	m.current = nil
	if q.Tainted {
		return m.step(from, CueServeNew, "correct after retry")
	}

	switch from {
	case StateServingEasy:
		m.moveTo(StateServingMedium, "easy correct", ev.At)
		return m.step(from, CueServeNew, "easy correct")
	case StateServingMedium:
		m.mediumCorrect++
		if m.mediumCorrect >= m.cfg.MediumCorrectToHard {
			m.moveTo(StateServingHard, "medium streak", ev.At)
			return m.step(from, CueServeNew, "medium streak")
		}
	}
	return m.step(from, CueServeNew, "correct")
}

func (m *Machine) enterStuck(from State, reason string, at time.Time) Step {
	m.stuckFrom = from
	m.moveTo(StateStuck, reason, at)
	return m.step(from, CueTheory, reason)
}

func (m *Machine) leaveStuck(from State, at time.Time) Step {
	if m.current != nil {
		m.current.Misses = 0
	}
	m.moveTo(m.stuckFrom, "theory delivered", at)
	m.stuckFrom = ""
	if m.current == nil {
		return m.step(from, CueServeNew, "theory delivered")
	}
	return m.step(from, CueServeSame, "theory delivered")
}

// Serve registers the question now in front of the student.
func (m *Machine) Serve(questionID string, d shared.Difficulty) {
	m.current = &Question{ID: questionID, Difficulty: d}
}

// Exhausted advances past a tier with no content left: easy to medium,
// medium to hard, hard to the pattern summary.
func (m *Machine) Exhausted(at time.Time) Step {
	from := m.state
	m.current = nil
	switch m.state {
	case StateServingEasy:
		m.moveTo(StateServingMedium, "no easy content", at)
		return m.step(from, CueServeNew, "no easy content")
	case StateServingMedium:
		m.moveTo(StateServingHard, "no medium content", at)
		return m.step(from, CueServeNew, "no medium content")
	case StateServingHard:
		m.moveTo(StatePatternSummary, "no hard content", at)
		return m.step(from, CueSummary, "no hard content")
	}
	return m.step(from, m.cueFor(m.state), "")
}

// Ease drops the serving tier one notch when no question is pending.
// It reports whether the tier changed.
func (m *Machine) Ease(at time.Time) bool {
	if m.current != nil || (m.state != StateServingMedium && m.state != StateServingHard) {
		return false
	}
	d, _ := m.state.Difficulty()
	m.mediumCorrect = 0
	m.moveTo(ServingState(d.Easier()), "gentle redirect", at)
	return true
}

// TheoryFailed resumes the originating state when no theory could be fetched.
func (m *Machine) TheoryFailed(at time.Time) Step {
	if m.state != StateStuck {
		return m.step(m.state, m.cueFor(m.state), "")
	}
	return m.leaveStuck(StateStuck, at)
}

// CheckpointDue reports whether the checkpoint interval has elapsed at t.
func (m *Machine) CheckpointDue(t time.Time) bool {
	return m.state != StateCheckpoint && t.Sub(m.lastCheckpoint) >= m.cfg.CheckpointEvery
}

// Hold moves the machine into SESSION_CHECKPOINT, remembering where it was.
// A timed checkpoint also restarts the checkpoint clock.
func (m *Machine) Hold(at time.Time, timed bool) {
	if timed {
		m.lastCheckpoint = at
	}
	if m.state == StateCheckpoint {
		return
	}
	m.heldFrom = m.state
	reason := "intervention"
	if timed {
		reason = "checkpoint"
	}
	m.moveTo(StateCheckpoint, reason, at)
}

// Release returns from SESSION_CHECKPOINT to the state it interrupted.
func (m *Machine) Release(at time.Time) Step {
	from := m.state
	if m.state != StateCheckpoint {
		return m.step(from, m.cueFor(m.state), "")
	}
	m.moveTo(m.heldFrom, "resume", at)
	m.heldFrom = ""
	return m.step(from, m.cueFor(m.state), "resume")
}

// SwitchTopic abandons the current topic. A held machine will resume in
// AWAIT_TOPIC; otherwise it moves there directly.
func (m *Machine) SwitchTopic(at time.Time) {
	m.clearTopic()
	m.stuckFrom = ""
	if m.state == StateCheckpoint {
		m.heldFrom = StateAwaitTopic
		return
	}
	m.moveTo(StateAwaitTopic, "topic switch", at)
}

func (m *Machine) cueFor(s State) Cue {
	switch s {
	case StateServingEasy, StateServingMedium, StateServingHard:
		if m.current != nil {
			return CueServeSame
		}
		return CueServeNew
	case StateStuck:
		return CueTheory
	case StatePatternSummary:
		return CueSummary
	case StateCheckpoint:
		return CueHold
	}
	return CueChooseTopic
}

func (m *Machine) moveTo(to State, reason string, at time.Time) {
	if m.state == to {
		return
	}
	m.history = append(m.history, Transition{From: m.state, To: to, Reason: reason, At: at})
	m.state = to
}

func (m *Machine) step(from State, cue Cue, reason string) Step {
	return Step{From: from, To: m.state, Cue: cue, Reason: reason}
}
