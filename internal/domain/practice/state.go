package practice

import "github.com/jee-coach/tutor/internal/domain/shared"

// State is a node of the practice state machine.
type State string

const (
	StateAwaitTopic     State = "AWAIT_TOPIC"
	StateServingEasy    State = "SERVING_EASY"
	StateServingMedium  State = "SERVING_MEDIUM"
	StateServingHard    State = "SERVING_HARD"
	StateStuck          State = "STUCK"
	StatePatternSummary State = "PATTERN_SUMMARY"
	StateCheckpoint     State = "SESSION_CHECKPOINT"
)

// ServingState returns the serving state for a difficulty tier.
func ServingState(d shared.Difficulty) State {
	switch d {
	case shared.DifficultyMedium:
		return StateServingMedium
	case shared.DifficultyHard:
		return StateServingHard
	default:
		return StateServingEasy
	}
}

// Difficulty returns the tier served in s.
func (s State) Difficulty() (shared.Difficulty, bool) {
	switch s {
	case StateServingEasy:
		return shared.DifficultyEasy, true
	case StateServingMedium:
		return shared.DifficultyMedium, true
	case StateServingHard:
		return shared.DifficultyHard, true
	}
	return "", false
}

// IsServing reports whether a question is being served in s.
func (s State) IsServing() bool {
	_, ok := s.Difficulty()
	return ok
}

// Cue tells the orchestrator what the machine needs next.
type Cue int

const (
	// CueChooseTopic asks the student to pick a topic.
	CueChooseTopic Cue = iota
	// CueServeNew needs a fresh question at the current tier.
	CueServeNew
	// CueServeSame re-presents the current question.
	CueServeSame
	// CueTheory needs a micro-theory hand-off for the current question.
	CueTheory
	// CueSummary needs the topic's pattern summary.
	CueSummary
	// CueHold keeps the session paused at a checkpoint.
	CueHold
)

func (c Cue) String() string {
	switch c {
	case CueChooseTopic:
		return "choose_topic"
	case CueServeNew:
		return "serve_new"
	case CueServeSame:
		return "serve_same"
	case CueTheory:
		return "theory"
	case CueSummary:
		return "summary"
	case CueHold:
		return "hold"
	}
	return "unknown"
}

// Stuck reasons.
const (
	StuckTimeout        = "timeout"
	StuckRepeatedErrors = "repeated_errors"
	StuckRequested      = "requested"
)
