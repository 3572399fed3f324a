package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/practice"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/domain/wellbeing"
	"github.com/jee-coach/tutor/pkg/logger"
)

// maxResolveSteps bounds the content fallbacks tried for one event:
// three tier exhaustions plus one theory failure.
const maxResolveSteps = 5

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVE SESSION
// ══════════════════════════════════════════════════════════════════════════════

type interventionOutcome struct {
	action    wellbeing.Action
	effective bool
}

// activeSession is the in-memory state of the open session.
type activeSession struct {
	profile *student.Profile
	record  student.SessionRecord
	machine *practice.Machine

	// working is a session copy of the profile's mastery book, committed
	// on EndSession.
	working  *mastery.Store
	before   mastery.Book
	lectures map[string]student.LectureProgress

	window    []practice.Event
	windowCap int

	served  []string
	pass    []content.Question
	current *content.Question

	breakTaken  bool
	lastBreak   time.Time
	switchTried bool
	last        *wellbeing.Assessment

	pending  wellbeing.Action
	outcomes []interventionOutcome
	signals  map[wellbeing.SignalType]struct{}
	stuck    []string
}

func newActiveSession(cfg Config, profile *student.Profile, record student.SessionRecord, now time.Time, clock func() time.Time) *activeSession {
	return &activeSession{
		profile:   profile,
		record:    record,
		machine:   practice.NewMachine(cfg.Practice, now),
		working:   mastery.NewStore(profile.Topics.Clone(), mastery.WithClock(clock)),
		before:    profile.Topics.Clone(),
		lectures:  student.CloneLectures(profile.Lectures),
		windowCap: cfg.EventWindow,
		signals:   make(map[wellbeing.SignalType]struct{}),
	}
}

// enrich fills question context the presentation layer may omit.
func (s *activeSession) enrich(ev practice.Event) practice.Event {
	if ev.Kind != practice.KindAnswer && ev.Kind != practice.KindTick {
		return ev
	}
	if ev.Topic == "" {
		ev.Topic = s.machine.Topic()
	}
	if ev.Subject == "" {
		ev.Subject = s.machine.Subject()
	}
	if s.current != nil {
		if ev.QuestionID == "" {
			ev.QuestionID = s.current.ID
		}
		if ev.Subject == "" {
			ev.Subject = s.current.Subject
		}
		if ev.Difficulty == "" {
			ev.Difficulty = s.current.Difficulty
		}
	}
	return ev
}

// absorb applies the session-level effects of a validated event and
// reports whether a message carried negative language.
func (s *activeSession) absorb(ev practice.Event) (negative bool) {
	switch ev.Kind {
	case practice.KindSelectTopic:
		if !lo.Contains(s.record.TopicsTouched, ev.Topic) {
			s.record.TopicsTouched = append(s.record.TopicsTouched, ev.Topic)
		}
		s.pass = nil
		s.current = nil

	case practice.KindAnswer:
		s.working.Record(ev.Subject, ev.Topic, ev.Correct, ev.ElapsedSecs)
		s.record.QuestionsAttempted++
		if ev.Correct {
			s.record.QuestionsSolved++
		} else if s.current != nil {
			s.working.AddWeakSubtopic(ev.Subject, ev.Topic, s.current.Subtopic)
		}
		if s.pending != "" {
			s.outcomes = append(s.outcomes, interventionOutcome{action: s.pending, effective: ev.Correct})
			s.pending = ""
		}

	case practice.KindBreak:
		s.breakTaken = true
		s.lastBreak = ev.At
		s.record.BreaksTaken++

	case practice.KindMessage:
		negative = wellbeing.DetectNegativeLanguage(ev.Signal)
	}

	if ev.Kind != practice.KindTick {
		s.window = append(s.window, ev)
		if over := len(s.window) - s.windowCap; over > 0 {
			s.window = s.window[over:]
		}
	}
	return negative
}

func (s *activeSession) input(at time.Time, negative bool) wellbeing.Input {
	in := wellbeing.Input{
		Events:             s.window,
		SessionElapsedMins: int(at.Sub(s.record.StartedAt).Minutes()),
		NegativeLanguage:   negative,
		SwitchTried:        s.switchTried,
		Now:                at,
	}
	if s.breakTaken {
		in.BreakTaken = true
		in.MinutesSinceBreak = int(at.Sub(s.lastBreak).Minutes())
	}
	return in
}

func (s *activeSession) note(a wellbeing.Assessment) {
	s.last = &a
	for _, sig := range a.Signals {
		s.signals[sig.Type] = struct{}{}
	}
}

func (s *activeSession) signalsSeen() []string {
	out := lo.Map(lo.Keys(s.signals), func(t wellbeing.SignalType, _ int) string { return string(t) })
	slices.Sort(out)
	return out
}

// finalRecord closes a copy of the session record.
func (s *activeSession) finalRecord(at time.Time) student.SessionRecord {
	rec := s.record.Clone()
	_ = rec.Close(at)

	level := 1
	if s.last != nil {
		level = s.last.Level
	}
	rec.Mood = student.MoodFromLevel(level)

	for _, m := range s.working.All() {
		prev := mastery.ConfidenceNone
		if old, ok := s.before.Lookup(m.Subject, m.Topic); ok {
			prev = old.Confidence
		}
		if m.Confidence.Rank() > prev.Rank() && m.Confidence.AtLeast(mastery.ConfidenceMedium) {
			rec.Breakthroughs = append(rec.Breakthroughs, fmt.Sprintf("%s: %s -> %s", m.Topic, prev, m.Confidence))
		}
	}
	for _, topic := range s.stuck {
		rec.Struggles = append(rec.Struggles, "stuck on "+topic)
	}
	for _, sig := range s.signalsSeen() {
		rec.Struggles = append(rec.Struggles, sig)
	}
	return rec
}

func (s *activeSession) summary() PatternSummary {
	attempts, correct := s.machine.TopicTally()
	subject := s.machine.Subject()
	if subject == "" && len(s.pass) > 0 {
		subject = s.pass[0].Subject
	}
	m, _ := s.working.Get(subject, s.machine.Topic())

	approaches := lo.Uniq(lo.Compact(lo.Map(s.pass, func(q content.Question, _ int) string {
		return q.SolutionApproach
	})))
	mistakes := lo.Uniq(lo.FlatMap(s.pass, func(q content.Question, _ int) []string {
		return q.CommonMistakes
	}))

	return PatternSummary{
		Subject:    subject,
		Topic:      s.machine.Topic(),
		Attempts:   attempts,
		Correct:    correct,
		Mastery:    m,
		Approaches: approaches,
		Mistakes:   mistakes,
		Subtopics:  append([]string(nil), m.WeakSubtopics...),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DRIVE
// ══════════════════════════════════════════════════════════════════════════════

// Drive processes one event and returns the next action. An event that is
// not valid in the current state fails with shared.ErrInvalidEvent and
// changes nothing. Missing content is never surfaced: the machine advances
// past an empty tier and a failed theory fetch resumes practice. A question
// bank that cannot be read fails with shared.ErrContentUnavailable and
// leaves the tier in place.
func (o *Orchestrator) Drive(ctx context.Context, ev practice.Event) (Action, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil {
		return Action{}, shared.ErrNoActiveSession
	}
	if ev.At.IsZero() {
		ev.At = o.now()
	}
	ev = s.enrich(ev)

	if err := s.machine.Validate(ev); err != nil {
		o.log.Debug("rejected event",
			logger.String("kind", string(ev.Kind)),
			logger.String("state", string(s.machine.State())),
		)
		return Action{State: s.machine.State()}, err
	}

	negative := s.absorb(ev)
	step, err := s.machine.Apply(ev)
	if err != nil {
		return Action{State: s.machine.State()}, err
	}
	if step.To == practice.StateStuck && step.Changed() {
		o.onStuck(s, ev, step.Reason)
	}

	advice, interrupt, stop := o.consult(s, ev, negative, &step)
	if stop {
		return interrupt, nil
	}

	action, err := o.resolve(ctx, s, step.Cue, ev.At)
	if err != nil {
		return Action{State: s.machine.State()}, err
	}
	if advice != nil && action.Assessment == nil {
		action.Assessment = advice
	}
	return action, nil
}

// consult asks the stress ladder for a verdict after answers, messages and
// timed checkpoints. A severe verdict interrupts practice; a mild one is
// returned as advice for the next action.
func (o *Orchestrator) consult(s *activeSession, ev practice.Event, negative bool, step *practice.Step) (*wellbeing.Assessment, Action, bool) {
	resuming := ev.Kind == practice.KindResume || ev.Kind == practice.KindBreak
	timed := !resuming && s.machine.CheckpointDue(ev.At)
	if !ev.IsAnswer() && ev.Kind != practice.KindMessage && !timed {
		return nil, Action{}, false
	}

	if timed {
		s.machine.Hold(ev.At, true)
	}

	a := o.ladder.Assess(s.input(ev.At, negative))
	s.note(a)

	if a.Intervention != nil {
		s.pending = a.Action()
		o.log.Info("intervention raised",
			logger.String("student_id", s.profile.ID.String()),
			logger.Int("level", a.Level),
			logger.String("action", string(a.Action())),
			logger.Any("signals", a.SignalTypes()),
		)
		o.publish(shared.NewInterventionRaisedEvent(s.profile.ID.String(), a.Level,
			string(a.Action()), a.SignalTypes(), ev.At))
	}

	if a.Severe() {
		if !timed {
			s.machine.Hold(ev.At, false)
		}
		switch a.Action() {
		case wellbeing.ActionSessionEnd:
			return nil, Action{Kind: ActionEndSession, State: s.machine.State(), Assessment: &a}, true
		case wellbeing.ActionTopicSwitch:
			s.switchTried = true
			s.machine.SwitchTopic(ev.At)
			s.current = nil
			s.pass = nil
		}
		return nil, Action{Kind: ActionIntervene, State: s.machine.State(), Assessment: &a}, true
	}

	if timed {
		*step = s.machine.Release(ev.At)
	}
	if a.Action() == wellbeing.ActionGentleRedirect && step.Cue == practice.CueServeNew {
		s.machine.Ease(ev.At)
	}
	if a.Intervention == nil {
		return nil, Action{}, false
	}
	return &a, Action{}, false
}

// resolve turns a machine cue into an action, fetching content as needed.
func (o *Orchestrator) resolve(ctx context.Context, s *activeSession, cue practice.Cue, at time.Time) (Action, error) {
	for i := 0; i < maxResolveSteps; i++ {
		state := s.machine.State()

		switch cue {
		case practice.CueChooseTopic:
			return Action{Kind: ActionChooseTopic, State: state}, nil

		case practice.CueHold:
			return Action{Kind: ActionIntervene, State: state, Assessment: s.last}, nil

		case practice.CueServeSame:
			if s.current == nil {
				cue = practice.CueServeNew
				continue
			}
			q := *s.current
			return Action{Kind: ActionServeQuestion, State: state, Difficulty: q.Difficulty, Question: &q, Repeat: true}, nil

		case practice.CueServeNew:
			d, _ := state.Difficulty()
			q, err := o.questions.FetchQuestion(ctx, s.machine.Subject(), s.machine.Topic(), d, s.served)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Action{}, ctxErr
				}
				if !errors.Is(err, shared.ErrNoContentAvailable) {
					// The tier is not empty, the bank is unreadable. Leave
					// the machine waiting for a question so a retry refetches.
					o.log.Warn("question fetch failed", logger.String("topic", s.machine.Topic()), logger.Err(err))
					s.current = nil
					return Action{State: state}, shared.ErrContentUnavailable.Wrap(err)
				}
				o.log.Debug("tier exhausted",
					logger.String("topic", s.machine.Topic()),
					logger.String("difficulty", string(d)),
				)
				cue = s.machine.Exhausted(at).Cue
				continue
			}
			s.machine.Serve(q.ID, d)
			s.served = append(s.served, q.ID)
			s.pass = append(s.pass, q)
			s.current = &q
			served := q
			return Action{Kind: ActionServeQuestion, State: state, Difficulty: d, Question: &served}, nil

		case practice.CueTheory:
			qid := ""
			if s.current != nil {
				qid = s.current.ID
			}
			snippet, err := o.theory.FetchMicroTheory(ctx, s.machine.Topic(), qid)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Action{}, ctxErr
				}
				o.log.Warn("theory unavailable, resuming practice",
					logger.String("topic", s.machine.Topic()),
					logger.Err(err),
				)
				cue = s.machine.TheoryFailed(at).Cue
				continue
			}
			a := Action{Kind: ActionOfferTheory, State: state, Theory: &snippet}
			if s.current != nil {
				q := *s.current
				a.Question = &q
				a.Difficulty = q.Difficulty
			}
			return a, nil

		case practice.CueSummary:
			sum := s.summary()
			s.current = nil
			o.publish(shared.NewTopicSummarizedEvent(s.profile.ID.String(), sum.Subject, sum.Topic,
				sum.Attempts, sum.Correct, at))
			return Action{Kind: ActionShowPatternSummary, State: state, Summary: &sum}, nil
		}
	}
	return Action{}, fmt.Errorf("session: no action resolved for %s in %s", s.machine.Topic(), s.machine.State())
}

func (o *Orchestrator) onStuck(s *activeSession, ev practice.Event, reason string) {
	topic := s.machine.Topic()
	if !lo.Contains(s.stuck, topic) {
		s.stuck = append(s.stuck, topic)
	}
	o.log.Info("student stuck",
		logger.String("student_id", s.profile.ID.String()),
		logger.String("topic", topic),
		logger.String("reason", reason),
	)
	o.publish(shared.NewStudentStuckEvent(s.profile.ID.String(), topic, ev.QuestionID, reason, ev.At))
}
