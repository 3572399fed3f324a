// Package practice models the topic-practice loop: the events a student
// produces and the state machine that sequences question difficulty,
// stuck hand-offs, pattern summaries and checkpoints.
package practice

import (
	"strings"
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

// EventKind classifies a practice event.
type EventKind string

const (
	KindSelectTopic EventKind = "select_topic"
	KindAnswer      EventKind = "answer"
	KindTick        EventKind = "tick"
	KindMessage     EventKind = "message"
	KindTheoryDone  EventKind = "theory_done"
	KindSummaryDone EventKind = "summary_done"
	KindBreak       EventKind = "break"
	KindResume      EventKind = "resume"
)

// SignalStuck is the free-text signal a student sends to ask for help.
const SignalStuck = "stuck"

// Event is one interaction reported by the presentation layer. Events are
// transient; only their effect on mastery and the session record is kept.
type Event struct {
	Kind        EventKind         `json:"kind"`
	At          time.Time         `json:"at"`
	Subject     string            `json:"subject,omitempty"`
	Topic       string            `json:"topic,omitempty"`
	QuestionID  string            `json:"question_id,omitempty"`
	Difficulty  shared.Difficulty `json:"difficulty,omitempty"`
	Correct     bool              `json:"correct"`
	ElapsedSecs int               `json:"elapsed_secs"`
	Signal      string            `json:"signal,omitempty"`
}

// IsAnswer reports whether the event is an answered question.
func (e Event) IsAnswer() bool {
	return e.Kind == KindAnswer
}

// RequestsHelp reports whether the student explicitly asked for help.
func (e Event) RequestsHelp() bool {
	return strings.EqualFold(strings.TrimSpace(e.Signal), SignalStuck)
}

// SelectTopic builds a topic-selection event.
func SelectTopic(at time.Time, subject, topic string) Event {
	return Event{Kind: KindSelectTopic, At: at, Subject: subject, Topic: topic}
}

// Answer builds an answer event for the question currently being served.
func Answer(at time.Time, questionID string, correct bool, elapsedSecs int) Event {
	return Event{Kind: KindAnswer, At: at, QuestionID: questionID, Correct: correct, ElapsedSecs: elapsedSecs}
}

// Tick reports time spent on the current question without an answer.
func Tick(at time.Time, elapsedSecs int) Event {
	return Event{Kind: KindTick, At: at, ElapsedSecs: elapsedSecs}
}

// Message carries free text typed by the student.
func Message(at time.Time, text string) Event {
	return Event{Kind: KindMessage, At: at, Signal: text}
}

// Simple builds an event that carries no payload besides its kind.
func Simple(kind EventKind, at time.Time) Event {
	return Event{Kind: kind, At: at}
}
