// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the session orchestrator.
const (
	EventSessionStarted     EventType = "session.started"
	EventSessionEnded       EventType = "session.ended"
	EventStudentStuck       EventType = "session.stuck"
	EventInterventionRaised EventType = "session.intervention"
	EventTopicSummarized    EventType = "topic.summarized"
	EventPlanGenerated      EventType = "plan.generated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the caller's clock.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when a tutoring session opens.
type SessionStartedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.SessionID,
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(studentID, sessionID string, at time.Time) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent: NewBaseEvent(EventSessionStarted, studentID, at),
		SessionID: sessionID,
	}
}

// SessionEndedEvent is emitted after a session record is closed and saved.
type SessionEndedEvent struct {
	BaseEvent
	SessionID       string        `json:"session_id"`
	Duration        time.Duration `json:"duration"`
	QuestionsSolved int           `json:"questions_solved"`
	Accuracy        float64       `json:"accuracy"`
	Mood            string        `json:"mood"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":       e.SessionID,
		"duration_minutes": int(e.Duration.Minutes()),
		"questions_solved": e.QuestionsSolved,
		"accuracy":         e.Accuracy,
		"mood":             e.Mood,
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(studentID, sessionID string, at time.Time, duration time.Duration, solved int, accuracy float64, mood string) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent:       NewBaseEvent(EventSessionEnded, studentID, at),
		SessionID:       sessionID,
		Duration:        duration,
		QuestionsSolved: solved,
		Accuracy:        accuracy,
		Mood:            mood,
	}
}

// StudentStuckEvent is emitted when practice enters the stuck sub-state.
type StudentStuckEvent struct {
	BaseEvent
	Topic      string `json:"topic"`
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`      // "timeout", "repeated_errors", "requested"
}

// Payload implements Event interface.
func (e StudentStuckEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"topic":       e.Topic,
		"question_id": e.QuestionID,
		"reason":      e.Reason,
	}
}

// NewStudentStuckEvent creates a new StudentStuckEvent.
func NewStudentStuckEvent(studentID, topic, questionID, reason string, at time.Time) StudentStuckEvent {
	return StudentStuckEvent{
		BaseEvent:  NewBaseEvent(EventStudentStuck, studentID, at),
		Topic:      topic,
		QuestionID: questionID,
		Reason:     reason,
	}
}

// InterventionRaisedEvent is emitted when the stress ladder recommends an action.
type InterventionRaisedEvent struct {
	BaseEvent
	Level   int      `json:"level"`
	Action  string   `json:"action"`
	Signals []string `json:"signals"`
}

// Payload implements Event interface.
func (e InterventionRaisedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"level":   e.Level,
		"action":  e.Action,
		"signals": e.Signals,
	}
}

// NewInterventionRaisedEvent creates a new InterventionRaisedEvent.
func NewInterventionRaisedEvent(studentID string, level int, action string, signals []string, at time.Time) InterventionRaisedEvent {
	return InterventionRaisedEvent{
		BaseEvent: NewBaseEvent(EventInterventionRaised, studentID, at),
		Level:     level,
		Action:    action,
		Signals:   signals,
	}
}

// TopicSummarizedEvent is emitted when a topic pass reaches its pattern summary.
type TopicSummarizedEvent struct {
	BaseEvent
	Subject  string `json:"subject"`
	Topic    string `json:"topic"`
	Attempts int    `json:"attempts"`
	Correct  int    `json:"correct"`
}

// Payload implements Event interface.
func (e TopicSummarizedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"subject":  e.Subject,
		"topic":    e.Topic,
		"attempts": e.Attempts,
		"correct":  e.Correct,
	}
}

// NewTopicSummarizedEvent creates a new TopicSummarizedEvent.
func NewTopicSummarizedEvent(studentID, subject, topic string, attempts, correct int, at time.Time) TopicSummarizedEvent {
	return TopicSummarizedEvent{
		BaseEvent: NewBaseEvent(EventTopicSummarized, studentID, at),
		Subject:   subject,
		Topic:     topic,
		Attempts:  attempts,
		Correct:   correct,
	}
}

// PlanGeneratedEvent is emitted when tomorrow's plan is appended to a profile.
type PlanGeneratedEvent struct {
	BaseEvent
	FocusSubject   string  `json:"focus_subject"`
	TargetPYQCount int     `json:"target_pyq_count"`
	EstimatedHours float64 `json:"estimated_hours"`
}

// Payload implements Event interface.
func (e PlanGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"focus_subject":    e.FocusSubject,
		"target_pyq_count": e.TargetPYQCount,
		"estimated_hours":  e.EstimatedHours,
	}
}

// NewPlanGeneratedEvent creates a new PlanGeneratedEvent.
func NewPlanGeneratedEvent(studentID, focus string, count int, hours float64, at time.Time) PlanGeneratedEvent {
	return PlanGeneratedEvent{
		BaseEvent:      NewBaseEvent(EventPlanGenerated, studentID, at),
		FocusSubject:   focus,
		TargetPYQCount: count,
		EstimatedHours: hours,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
