// Package wellbeing classifies stress signals from a window of practice
// events and maps them onto an escalating ladder of interventions.
//
// The ladder is a recommendation function. It keeps no state between calls;
// the caller supplies everything it needs through Input.
package wellbeing

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/jee-coach/tutor/internal/domain/practice"
)

// SignalType names a detected stress signal.
type SignalType string

const (
	SignalConsecutiveErrors SignalType = "consecutive_errors"
	SignalLongSession       SignalType = "long_session"
	SignalNegativeLanguage  SignalType = "negative_language"
	SignalAccuracyDrop      SignalType = "accuracy_drop"
	SignalRapidSwitching    SignalType = "rapid_switching"
)

// Signal is one detected stress indicator.
type Signal struct {
	Type     SignalType `json:"type"`
	Severity int        `json:"severity"`
	Detail   string     `json:"detail"`
}

// Action is the intervention the ladder recommends.
type Action string

const (
	ActionNone             Action = "none"
	ActionGentleRedirect   Action = "gentle_redirect"
	ActionProgressReminder Action = "progress_reminder"
	ActionBreakSuggestion  Action = "break_suggestion"
	ActionTopicSwitch      Action = "topic_switch"
	ActionSessionEnd       Action = "session_end"
)

// Rung returns the ladder position of the action, 0 for none.
func (a Action) Rung() int {
	switch a {
	case ActionGentleRedirect:
		return 1
	case ActionProgressReminder:
		return 2
	case ActionBreakSuggestion:
		return 3
	case ActionTopicSwitch:
		return 4
	case ActionSessionEnd:
		return 5
	}
	return 0
}

// Intervention is the recommended response to an assessment.
type Intervention struct {
	Level   int    `json:"level"`
	Action  Action `json:"action"`
	Message string `json:"message"`
}

// Assessment is the ladder's verdict on one window.
type Assessment struct {
	Level           int           `json:"level"`
	Signals         []Signal      `json:"signals"`
	Intervention    *Intervention `json:"intervention,omitempty"`
	HealthScore     float64       `json:"health_score"`
	ContinueSession bool          `json:"continue_session"`
}

// Action returns the recommended action, or ActionNone.
func (a Assessment) Action() Action {
	if a.Intervention == nil {
		return ActionNone
	}
	return a.Intervention.Action
}

// Severe reports whether the recommendation is a break or worse, which
// interrupts practice.
func (a Assessment) Severe() bool {
	return a.Action().Rung() >= ActionBreakSuggestion.Rung()
}

// SignalTypes lists the detected signal names.
func (a Assessment) SignalTypes() []string {
	return lo.Map(a.Signals, func(s Signal, _ int) string { return string(s.Type) })
}

// Input is the window the ladder assesses.
type Input struct {
	// Events is the ordered session event window.
	Events []practice.Event

	// SessionElapsedMins is the time since the session started.
	SessionElapsedMins int

	// BreakTaken marks that a break was recorded this session, in which
	// case MinutesSinceBreak is used instead of SessionElapsedMins.
	BreakTaken        bool
	MinutesSinceBreak int

	NegativeLanguage bool

	// SwitchTried marks that a topic switch was already recommended this session.
	SwitchTried bool

	// Now anchors the rapid-switching window. Zero means the last event time.
	Now time.Time
}

// Config holds the detection thresholds.
type Config struct {
	LongSessionMins    int
	AccuracyDropPoints float64
	TrailingWindow     int
	RapidSwitchWindow  time.Duration
	RapidSwitchTopics  int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		LongSessionMins:    120,
		AccuracyDropPoints: 20,
		TrailingWindow:     5,
		RapidSwitchWindow:  15 * time.Minute,
		RapidSwitchTopics:  3,
	}
}

// Ladder evaluates stress signals. It is safe for concurrent use.
type Ladder struct {
	cfg Config
}

// NewLadder creates a ladder, filling zero thresholds with defaults.
func NewLadder(cfg Config) *Ladder {
	def := DefaultConfig()
	if cfg.LongSessionMins <= 0 {
		cfg.LongSessionMins = def.LongSessionMins
	}
	if cfg.AccuracyDropPoints <= 0 {
		cfg.AccuracyDropPoints = def.AccuracyDropPoints
	}
	if cfg.TrailingWindow <= 0 {
		cfg.TrailingWindow = def.TrailingWindow
	}
	if cfg.RapidSwitchWindow <= 0 {
		cfg.RapidSwitchWindow = def.RapidSwitchWindow
	}
	if cfg.RapidSwitchTopics <= 0 {
		cfg.RapidSwitchTopics = def.RapidSwitchTopics
	}
	return &Ladder{cfg: cfg}
}

// Assess detects signals in the window and recommends an intervention.
// The overall level is the highest severity, raised by one when two or
// more distinct signals fire together, and capped at 5.
func (l *Ladder) Assess(in Input) Assessment {
	answers := lo.Filter(in.Events, func(e practice.Event, _ int) bool { return e.IsAnswer() })

	signals := lo.Compact([]Signal{
		l.consecutiveErrors(answers),
		l.longSession(in),
		l.negativeLanguage(in),
		l.accuracyDrop(answers),
		l.rapidSwitching(in),
	})

	level := 1
	if len(signals) > 0 {
		level = lo.MaxBy(signals, func(a, b Signal) bool { return a.Severity > b.Severity }).Severity
		if len(signals) >= 2 {
			level++
		}
	}
	level = lo.Clamp(level, 1, 5)

	a := Assessment{
		Level:           level,
		Signals:         signals,
		HealthScore:     float64(5-level) / 4,
		ContinueSession: true,
	}
	solved := countCorrect(answers)
	if action := actionFor(level, in.SwitchTried); action != ActionNone {
		a.Intervention = &Intervention{
			Level:   action.Rung(),
			Action:  action,
			Message: messageFor(action, solved),
		}
		a.ContinueSession = action != ActionSessionEnd
	}
	return a
}

func actionFor(level int, switchTried bool) Action {
	switch level {
	case 2:
		return ActionGentleRedirect
	case 3:
		return ActionProgressReminder
	case 4:
		return ActionBreakSuggestion
	case 5:
		if switchTried {
			return ActionSessionEnd
		}
		return ActionTopicSwitch
	}
	return ActionNone
}

func messageFor(action Action, solved int) string {
	switch action {
	case ActionGentleRedirect:
		return "Let's step back to a slightly easier question and rebuild momentum."
	case ActionProgressReminder:
		return fmt.Sprintf("You've solved %d questions this session. Every one of them moves you forward.", solved)
	case ActionBreakSuggestion:
		return "Time for a 10-minute break: stand up, stretch, drink some water, then come back fresh."
	case ActionTopicSwitch:
		return "Let's switch to a different topic for a while and come back to this one later."
	case ActionSessionEnd:
		return "You've put in real effort today. Let's stop here and pick this up tomorrow."
	}
	return ""
}

func (l *Ladder) consecutiveErrors(answers []practice.Event) Signal {
	run := 0
	for i := len(answers) - 1; i >= 0 && !answers[i].Correct; i-- {
		run++
	}
	var sev int
	switch {
	case run >= 5:
		sev = 4
	case run == 4:
		sev = 3
	case run == 3:
		sev = 2
	default:
		return Signal{}
	}
	return Signal{
		Type:     SignalConsecutiveErrors,
		Severity: sev,
		Detail:   fmt.Sprintf("%d wrong answers in a row", run),
	}
}

func (l *Ladder) longSession(in Input) Signal {
	idle := in.SessionElapsedMins
	if in.BreakTaken {
		idle = in.MinutesSinceBreak
	}
	if idle <= l.cfg.LongSessionMins {
		return Signal{}
	}
	return Signal{
		Type:     SignalLongSession,
		Severity: 3,
		Detail:   fmt.Sprintf("%d minutes without a break", idle),
	}
}

func (l *Ladder) negativeLanguage(in Input) Signal {
	if !in.NegativeLanguage {
		return Signal{}
	}
	return Signal{Type: SignalNegativeLanguage, Severity: 3, Detail: "negative self-talk"}
}

func (l *Ladder) accuracyDrop(answers []practice.Event) Signal {
	w := l.cfg.TrailingWindow
	if len(answers) < 2*w {
		return Signal{}
	}
	start := countCorrect(answers[:w])
	trailing := countCorrect(answers[len(answers)-w:])
	// Points come from counts so equal windows compare exactly.
	drop := float64((start-trailing)*100) / float64(w)
	if drop <= l.cfg.AccuracyDropPoints {
		return Signal{}
	}
	return Signal{
		Type:     SignalAccuracyDrop,
		Severity: 4,
		Detail:   fmt.Sprintf("accuracy fell from %d%% to %d%%", start*100/w, trailing*100/w),
	}
}

func (l *Ladder) rapidSwitching(in Input) Signal {
	if len(in.Events) == 0 {
		return Signal{}
	}
	now := in.Now
	if now.IsZero() {
		now = in.Events[len(in.Events)-1].At
	}
	from := now.Add(-l.cfg.RapidSwitchWindow)
	recent := lo.Filter(in.Events, func(e practice.Event, _ int) bool {
		return e.Topic != "" && !e.At.Before(from) && !e.At.After(now)
	})
	topics := lo.Uniq(lo.Map(recent, func(e practice.Event, _ int) string { return e.Subject + "/" + e.Topic }))
	if len(topics) < l.cfg.RapidSwitchTopics {
		return Signal{}
	}
	return Signal{
		Type:     SignalRapidSwitching,
		Severity: 2,
		Detail:   fmt.Sprintf("%d topics in %s", len(topics), l.cfg.RapidSwitchWindow),
	}
}

func countCorrect(answers []practice.Event) int {
	return lo.CountBy(answers, func(e practice.Event) bool { return e.Correct })
}
