// Package session contains the session orchestrator: the single entry point
// that turns practice events into the next tutoring action, and commits the
// session to the student profile when it ends.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/planning"
	"github.com/jee-coach/tutor/internal/domain/practice"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/domain/wellbeing"
	"github.com/jee-coach/tutor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIONS
// ══════════════════════════════════════════════════════════════════════════════

// ActionKind identifies what the presentation layer should do next.
type ActionKind string

const (
	// ActionServeQuestion shows a question. Repeat marks a re-serve of the
	// question the student just missed.
	ActionServeQuestion ActionKind = "serve_question"

	// ActionOfferTheory shows a micro-theory snippet for a stuck student.
	ActionOfferTheory ActionKind = "offer_theory"

	// ActionShowPatternSummary closes a topic with its recognised patterns.
	ActionShowPatternSummary ActionKind = "show_pattern_summary"

	// ActionIntervene pauses practice with a wellbeing intervention.
	ActionIntervene ActionKind = "intervene"

	// ActionEndSession asks the caller to end the session.
	ActionEndSession ActionKind = "end_session"

	// ActionChooseTopic waits for the student to pick a topic.
	ActionChooseTopic ActionKind = "choose_topic"
)

// Action is the orchestrator's answer to one event.
type Action struct {
	Kind  ActionKind     `json:"kind"`
	State practice.State `json:"state"`

	Difficulty shared.Difficulty `json:"difficulty,omitempty"`
	Question   *content.Question `json:"question,omitempty"`
	Repeat     bool              `json:"repeat,omitempty"`

	Theory  *content.TheorySnippet `json:"theory,omitempty"`
	Summary *PatternSummary        `json:"summary,omitempty"`

	// Assessment is set for interventions, and as advice on other actions
	// when the ladder recommended a mild intervention.
	Assessment *wellbeing.Assessment `json:"assessment,omitempty"`
}

// Advice returns the intervention message attached to the action, if any.
func (a Action) Advice() string {
	if a.Assessment == nil || a.Assessment.Intervention == nil {
		return ""
	}
	return a.Assessment.Intervention.Message
}

// PatternSummary wraps up one topic pass.
type PatternSummary struct {
	Subject    string               `json:"subject"`
	Topic      string               `json:"topic"`
	Attempts   int                  `json:"attempts"`
	Correct    int                  `json:"correct"`
	Mastery    mastery.TopicMastery `json:"mastery"`
	Approaches []string             `json:"approaches"`
	Mistakes   []string             `json:"mistakes"`
	Subtopics  []string             `json:"subtopics"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ORCHESTRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Config holds orchestrator settings.
type Config struct {
	Practice  practice.Config
	Wellbeing wellbeing.Config
	Planning  planning.Config

	// LockTTL bounds how long a crashed process can hold the session lock.
	LockTTL time.Duration

	// EventWindow caps the events kept for stress assessment.
	EventWindow int

	// PlanHistory caps the daily plans kept on the profile.
	PlanHistory int
}

// DefaultConfig returns default orchestrator settings.
func DefaultConfig() Config {
	return Config{
		Practice:    practice.DefaultConfig(),
		Wellbeing:   wellbeing.DefaultConfig(),
		Planning:    planning.DefaultConfig(),
		LockTTL:     6 * time.Hour,
		EventWindow: 500,
		PlanHistory: 60,
	}
}

// Dependencies are the collaborators of the orchestrator. Profiles,
// Questions and Theory are required.
type Dependencies struct {
	Profiles  student.Repository
	Questions content.QuestionBank
	Theory    content.TheoryProvider

	// Lectures, when set, lets plans suggest recorded lectures and lets
	// the student log watch time.
	Lectures content.LectureCatalog

	// Lock guards against two processes opening a session for one profile.
	Lock student.SessionLock

	Events shared.EventPublisher
	Logger *logger.Logger
	Clock  func() time.Time
	NewID  func() string
}

// Orchestrator drives one profile's sessions. All methods are serialized,
// so Drive is never re-entered while an event is being processed.
type Orchestrator struct {
	mu sync.Mutex

	cfg       Config
	profiles  student.Repository
	questions content.QuestionBank
	theory    content.TheoryProvider
	lectures  content.LectureCatalog
	lock      student.SessionLock
	events    shared.EventPublisher
	log       *logger.Logger
	now       func() time.Time
	newID     func() string

	ladder  *wellbeing.Ladder
	planner *planning.Adapter

	active *activeSession
}

// New creates an orchestrator.
func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Profiles == nil {
		return nil, errors.New("session: profile repository is required")
	}
	if deps.Questions == nil {
		return nil, errors.New("session: question bank is required")
	}
	if deps.Theory == nil {
		return nil, errors.New("session: theory provider is required")
	}

	def := DefaultConfig()
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.EventWindow <= 0 {
		cfg.EventWindow = def.EventWindow
	}
	if cfg.PlanHistory <= 0 {
		cfg.PlanHistory = def.PlanHistory
	}

	o := &Orchestrator{
		cfg:       cfg,
		profiles:  deps.Profiles,
		questions: deps.Questions,
		theory:    deps.Theory,
		lectures:  deps.Lectures,
		lock:      deps.Lock,
		events:    deps.Events,
		log:       deps.Logger,
		now:       deps.Clock,
		newID:     deps.NewID,
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	o.log = o.log.Named("session")
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	o.ladder = wellbeing.NewLadder(cfg.Wellbeing)
	opts := []planning.Option{planning.WithClock(o.now)}
	if o.lectures != nil {
		opts = append(opts, planning.WithLectures(o.lectures.Lectures()))
	}
	o.planner = planning.NewAdapter(cfg.Planning, opts...)
	return o, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// START
// ══════════════════════════════════════════════════════════════════════════════

// StartSession opens a session on profile. The profile must have been loaded
// or freshly created; it fails with shared.ErrSessionAlreadyOpen when a
// session is already open for it.
func (o *Orchestrator) StartSession(ctx context.Context, profile *student.Profile) (student.SessionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if profile == nil || !profile.ID.IsValid() {
		return student.SessionRecord{}, shared.ErrInvalidProfile
	}
	if o.active != nil || profile.HasOpenSession() {
		return student.SessionRecord{}, shared.ErrSessionAlreadyOpen
	}

	now := o.now()
	id := o.newID()

	if o.lock != nil {
		ok, err := o.lock.Acquire(ctx, profile.ID, id, o.cfg.LockTTL)
		if err != nil {
			return student.SessionRecord{}, shared.ErrPersistenceUnavailable.Wrap(err)
		}
		if !ok {
			return student.SessionRecord{}, shared.ErrSessionAlreadyOpen
		}
	}

	record := student.NewSessionRecord(id, now)
	open := record.Clone()
	profile.CurrentSession = &open

	o.active = newActiveSession(o.cfg, profile, record, now, o.now)

	o.log.Info("session started",
		logger.String("student_id", profile.ID.String()),
		logger.String("session_id", id),
	)
	o.publish(shared.NewSessionStartedEvent(profile.ID.String(), id, now))

	return record.Clone(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// END
// ══════════════════════════════════════════════════════════════════════════════

// EndSession closes the open session and commits it to profile: mastery
// changes, lecture progress, the session record, aggregates and the next
// day's plan. The
// profile is only updated when the save succeeds; on failure the session
// stays open and the error matches shared.ErrPersistenceUnavailable.
func (o *Orchestrator) EndSession(ctx context.Context, profile *student.Profile) (student.SessionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil || profile == nil || !profile.HasOpenSession() {
		return student.SessionRecord{}, shared.ErrNoActiveSession
	}
	if s.profile != profile {
		return student.SessionRecord{}, shared.ErrInvalidProfile.Wrap(errors.New("profile does not own the open session"))
	}

	now := o.now()
	record := s.finalRecord(now)

	next := profile.Clone()
	next.Topics = s.working.Book().Clone()
	next.Lectures = s.lectures
	next.Sessions = append(next.Sessions, record)
	next.CurrentSession = nil
	for _, out := range s.outcomes {
		next.RecordIntervention(string(out.action), out.effective)
	}
	for _, sig := range s.signalsSeen() {
		next.RecordStressTrigger(sig)
	}

	plan := o.planner.PlanFor(now.AddDate(0, 0, 1), next, &record)
	next.DailyPlans = append(next.DailyPlans, plan)
	if over := len(next.DailyPlans) - o.cfg.PlanHistory; over > 0 {
		next.DailyPlans = next.DailyPlans[over:]
	}
	next.UpdatedAt = now

	if err := o.profiles.Save(ctx, next); err != nil {
		o.log.Error("failed to commit session",
			logger.String("student_id", profile.ID.String()),
			logger.String("session_id", record.ID),
			logger.Err(err),
		)
		if errors.Is(err, shared.ErrPersistenceUnavailable) {
			return student.SessionRecord{}, err
		}
		return student.SessionRecord{}, shared.ErrPersistenceUnavailable.Wrap(err)
	}

	*profile = *next
	o.active = nil
	o.releaseLock(ctx, profile.ID, record.ID)

	o.log.Info("session ended",
		logger.String("student_id", profile.ID.String()),
		logger.String("session_id", record.ID),
		logger.Int("attempted", record.QuestionsAttempted),
		logger.Int("solved", record.QuestionsSolved),
		logger.Duration("duration", record.Duration()),
	)
	o.publish(shared.NewSessionEndedEvent(profile.ID.String(), record.ID, now,
		record.Duration(), record.QuestionsSolved, record.Accuracy(), string(record.Mood)))
	o.publish(shared.NewPlanGeneratedEvent(profile.ID.String(), plan.FocusSubject,
		plan.TargetPYQCount, plan.EstimatedHours, now))

	return record.Clone(), nil
}

// Abandon drops the open session without committing anything.
func (o *Orchestrator) Abandon(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil {
		return
	}
	s.profile.CurrentSession = nil
	o.active = nil
	o.releaseLock(ctx, s.profile.ID, s.record.ID)
	o.log.Warn("session abandoned",
		logger.String("student_id", s.profile.ID.String()),
		logger.String("session_id", s.record.ID),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// INSPECTION
// ══════════════════════════════════════════════════════════════════════════════

// Status is a read-only view of the open session.
type Status struct {
	SessionID string
	StartedAt time.Time
	Elapsed   time.Duration
	State     practice.State
	Subject   string
	Topic     string
	Attempted int
	Solved    int
	Breaks    int
	Question  *content.Question
	Mastery   []mastery.TopicMastery
}

// Status returns the open session's status, or false when none is open.
func (o *Orchestrator) Status() (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil {
		return Status{}, false
	}
	st := Status{
		SessionID: s.record.ID,
		StartedAt: s.record.StartedAt,
		Elapsed:   o.now().Sub(s.record.StartedAt),
		State:     s.machine.State(),
		Subject:   s.machine.Subject(),
		Topic:     s.machine.Topic(),
		Attempted: s.record.QuestionsAttempted,
		Solved:    s.record.QuestionsSolved,
		Breaks:    s.record.BreaksTaken,
		Mastery:   s.working.All(),
	}
	if s.current != nil {
		q := *s.current
		st.Question = &q
	}
	return st, true
}

// Active reports whether a session is open.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (o *Orchestrator) releaseLock(ctx context.Context, id shared.StudentID, sessionID string) {
	if o.lock == nil {
		return
	}
	if err := o.lock.Release(ctx, id, sessionID); err != nil {
		o.log.Warn("failed to release session lock",
			logger.String("student_id", id.String()),
			logger.Err(err),
		)
	}
}

func (o *Orchestrator) publish(event shared.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(event); err != nil {
		o.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}
