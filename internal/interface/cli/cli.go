// Package cli is the terminal front end of the tutor. It reads one line at
// a time, turns it into a practice event or a command, and renders the
// action the session orchestrator decides on.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jee-coach/tutor/internal/application/session"
	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/practice"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/infrastructure/catalog"
	"github.com/jee-coach/tutor/pkg/logger"
)

// saveTimeout bounds the final save when input ends or the run is cancelled.
const saveTimeout = 10 * time.Second

// TopicSource lists the topics the question bank can serve.
type TopicSource interface {
	Topics(ctx context.Context) ([]content.TopicRef, error)
}

// Options configures an App.
type Options struct {
	Orchestrator *session.Orchestrator
	Topics       TopicSource
	Profile      *student.Profile

	// Created marks a profile made for this run; it only changes the greeting.
	Created bool

	Out    io.Writer
	Colour bool
	Clock  func() time.Time
	Logger *logger.Logger

	// WatchEvery reports time spent on an unanswered question at this
	// interval. Zero disables the watch.
	WatchEvery time.Duration
}

// App runs one student's study sessions in the terminal.
type App struct {
	orch    *session.Orchestrator
	source  TopicSource
	profile *student.Profile
	created bool

	pres       *Presenter
	router     *Router
	now        func() time.Time
	log        *logger.Logger
	watchEvery time.Duration

	topics  []content.TopicRef
	pending session.Action
	shownAt time.Time
	done    bool
}

// New creates an App.
func New(opts Options) (*App, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("cli: orchestrator is required")
	}
	if opts.Topics == nil {
		return nil, errors.New("cli: topic source is required")
	}
	if opts.Profile == nil {
		return nil, errors.New("cli: profile is required")
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	a := &App{
		orch:       opts.Orchestrator,
		source:     opts.Topics,
		profile:    opts.Profile,
		created:    opts.Created,
		pres:       NewPresenter(opts.Out, opts.Colour),
		now:        opts.Clock,
		log:        opts.Logger.Named("cli"),
		watchEvery: opts.WatchEvery,
	}
	a.router = NewRouter(a.onText, a.log)
	a.registerCommands()
	return a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RUN LOOP
// ══════════════════════════════════════════════════════════════════════════════

// Run starts a session and processes input until the student quits, the
// input ends or ctx is cancelled. An open session is saved on the way out.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	topics, err := a.source.Topics(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	a.topics = topics

	a.pres.Welcome(a.profile, a.created, a.profile.DaysRemaining(a.now()))
	if err := a.begin(ctx); err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	var scanErr error
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-readCtx.Done():
				return
			}
		}
		scanErr = sc.Err()
	}()

	var watch <-chan time.Time
	if a.watchEvery > 0 {
		ticker := time.NewTicker(a.watchEvery)
		defer ticker.Stop()
		watch = ticker.C
	}

	a.pres.Prompt()
	for !a.done {
		select {
		case <-ctx.Done():
			a.pres.Info("")
			return a.shutdown(ctx)
		case <-watch:
			if a.question() == nil {
				continue
			}
			changed, err := a.watch(ctx)
			if err != nil {
				a.fail(err)
			}
			if (changed || err != nil) && !a.done {
				a.pres.Prompt()
			}
		case line, ok := <-lines:
			if !ok {
				if scanErr != nil {
					a.log.Warn("input failed", logger.Err(scanErr))
				}
				return a.shutdown(ctx)
			}
			if err := a.router.Route(ctx, line); err != nil {
				a.fail(err)
			}
			if !a.done {
				a.pres.Prompt()
			}
		}
	}
	return nil
}

// shutdown saves an open session with a context that outlives ctx.
func (a *App) shutdown(ctx context.Context) error {
	if !a.orch.Active() {
		return nil
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	return a.finish(saveCtx)
}

func (a *App) begin(ctx context.Context) error {
	rec, err := a.orch.StartSession(ctx, a.profile)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	a.log.Debug("session open", logger.String("session_id", rec.ID))
	a.pending = session.Action{Kind: session.ActionChooseTopic}
	a.pres.Topics(a.topics)
	return nil
}

// finish closes the session. On failure the session stays open so the
// student can retry.
func (a *App) finish(ctx context.Context) error {
	rec, err := a.orch.EndSession(ctx, a.profile)
	if err != nil {
		return err
	}
	a.pending = session.Action{}
	a.pres.Record(rec)
	if n := len(a.profile.DailyPlans); n > 0 {
		a.pres.Plan(a.profile.DailyPlans[n-1])
	}
	return nil
}

func (a *App) fail(err error) {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		a.pres.Error("Unknown command. Type /help to see what you can do.")
	case errors.Is(err, shared.ErrInvalidEvent):
		a.pres.Error("That does not fit right now. " + a.hint())
	case errors.Is(err, shared.ErrPersistenceUnavailable):
		a.pres.Error("Could not save your progress; the session is still open. Try again in a moment.")
		a.log.Error("save failed", logger.Err(err))
	case errors.Is(err, shared.ErrNoActiveSession):
		a.pres.Error("No session is open.")
	case errors.Is(err, shared.ErrInvalidWatchTime):
		a.pres.Error("Watched minutes must be more than zero.")
	case errors.Is(err, shared.ErrNoContentAvailable):
		a.pres.Error("No lecture has that ID. Check /plan for suggestions.")
	case errors.Is(err, shared.ErrContentUnavailable):
		// Enter sends a resume, which asks for the question again.
		a.pending = session.Action{Kind: session.ActionIntervene}
		a.pres.Error("Could not fetch the next question. Press enter to try again.")
		a.log.Error("question bank unavailable", logger.Err(err))
	default:
		a.pres.Error(err.Error())
		a.log.Warn("command failed", logger.Err(err))
	}
}

func (a *App) hint() string {
	switch a.pending.Kind {
	case session.ActionChooseTopic:
		return "Pick a topic with /topic <name>."
	case session.ActionServeQuestion:
		return "Answer the question, or type /stuck."
	case session.ActionOfferTheory, session.ActionShowPatternSummary:
		return "Press enter to continue."
	case session.ActionIntervene:
		return "Type /resume to carry on."
	}
	return "Type /help."
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUT
// ══════════════════════════════════════════════════════════════════════════════

// onText handles anything that is not a command: an answer when a question
// is showing and the text names one of its options, enter to move on, and
// free text otherwise.
func (a *App) onText(ctx context.Context, line string) error {
	if line == "" {
		return a.advance(ctx)
	}
	if q := a.question(); q != nil && isOption(*q, line) {
		return a.answer(ctx, *q, line)
	}
	return a.drive(ctx, practice.Message(a.now(), line))
}

func (a *App) question() *content.Question {
	if a.pending.Kind != session.ActionServeQuestion {
		return nil
	}
	return a.pending.Question
}

func (a *App) answer(ctx context.Context, q content.Question, text string) error {
	now := a.now()
	correct := q.IsCorrect(text)
	a.pres.Feedback(correct)
	return a.drive(ctx, practice.Answer(now, q.ID, correct, a.elapsed(now)))
}

// advance moves past the action on screen.
func (a *App) advance(ctx context.Context) error {
	now := a.now()
	switch a.pending.Kind {
	case session.ActionOfferTheory:
		return a.drive(ctx, practice.Simple(practice.KindTheoryDone, now))
	case session.ActionShowPatternSummary:
		return a.drive(ctx, practice.Simple(practice.KindSummaryDone, now))
	case session.ActionServeQuestion:
		return a.drive(ctx, practice.Tick(now, a.elapsed(now)))
	case session.ActionIntervene:
		return a.drive(ctx, practice.Simple(practice.KindResume, now))
	case session.ActionChooseTopic:
		a.pres.Topics(a.topics)
	}
	return nil
}

func (a *App) elapsed(now time.Time) int {
	if a.shownAt.IsZero() || now.Before(a.shownAt) {
		return 0
	}
	return int(now.Sub(a.shownAt).Seconds())
}

// drive feeds one event to the orchestrator and renders the result.
func (a *App) drive(ctx context.Context, ev practice.Event) error {
	act, err := a.orch.Drive(ctx, ev)
	if err != nil {
		return err
	}
	return a.show(ctx, ev, act)
}

// watch reports the time spent on the question on screen. It reports
// whether anything new was shown: a plain repeat of the same question is
// kept silent.
func (a *App) watch(ctx context.Context) (bool, error) {
	now := a.now()
	ev := practice.Tick(now, a.elapsed(now))
	act, err := a.orch.Drive(ctx, ev)
	if err != nil {
		return false, err
	}
	if act.Kind == session.ActionServeQuestion && act.Repeat && act.Advice() == "" {
		a.pending = act
		return false, nil
	}
	a.pres.Info("")
	return true, a.show(ctx, ev, act)
}

func (a *App) show(ctx context.Context, ev practice.Event, act session.Action) error {
	a.log.Debug("action",
		logger.String("event", string(ev.Kind)),
		logger.String("action", string(act.Kind)),
		logger.String("state", string(act.State)),
	)

	if act.Kind == session.ActionServeQuestion && act.Question != nil {
		prev := a.question()
		if prev == nil || prev.ID != act.Question.ID || !act.Repeat {
			a.shownAt = ev.At
		}
	}
	a.pending = act
	a.pres.Action(act, a.topics)

	if act.Kind == session.ActionEndSession {
		if err := a.finish(ctx); err != nil {
			return err
		}
		a.done = true
	}
	return nil
}

// isOption reports whether text names one of q's options by letter or text.
func isOption(q content.Question, text string) bool {
	t := strings.TrimSpace(text)
	for i, opt := range q.Options {
		if strings.EqualFold(t, content.OptionLabel(i)) || strings.EqualFold(t, strings.TrimSpace(opt)) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) registerCommands() {
	a.router.Register(Command{Name: "topic", Usage: "<name>", Help: "start practising a topic"}, a.cmdTopic)
	a.router.Register(Command{Name: "topics", Help: "list the topics on offer"}, a.cmdTopics)
	a.router.Register(Command{Name: "stuck", Help: "ask for a quick theory refresher"}, a.cmdStuck)
	a.router.Register(Command{Name: "break", Help: "take a break"}, a.cmdBreak)
	a.router.Register(Command{Name: "resume", Help: "carry on after a break or a check-in"}, a.cmdResume)
	a.router.Register(Command{Name: "next", Aliases: []string{"n"}, Help: "continue (same as enter)"}, func(ctx context.Context, _ string) error { return a.advance(ctx) })
	a.router.Register(Command{Name: "lecture", Usage: "<id> <minutes>", Help: "log time spent on a recorded lecture"}, a.cmdLecture)
	a.router.Register(Command{Name: "plan", Help: "show the plan for your next study day"}, a.cmdPlan)
	a.router.Register(Command{Name: "progress", Help: "show mastery and session progress"}, a.cmdProgress)
	a.router.Register(Command{Name: "end", Help: "save this session and start a fresh one"}, a.cmdEnd)
	a.router.Register(Command{Name: "quit", Aliases: []string{"exit", "q"}, Help: "save and leave"}, a.cmdQuit)
	a.router.Register(Command{Name: "reset", Usage: "confirm", Help: "delete all saved progress"}, a.cmdReset)
	a.router.Register(Command{Name: "help", Aliases: []string{"h", "?"}, Help: "show this list"}, a.cmdHelp)
}

func (a *App) cmdTopic(ctx context.Context, args string) error {
	if args == "" {
		a.pres.Topics(a.topics)
		return nil
	}
	ref, ok := catalog.ResolveTopic(args, a.topics)
	if !ok {
		a.pres.Error(fmt.Sprintf("No topic matches %q. Type /topics to see them all.", args))
		return nil
	}
	return a.drive(ctx, practice.SelectTopic(a.now(), ref.Subject, ref.Topic))
}

func (a *App) cmdTopics(_ context.Context, _ string) error {
	a.pres.Topics(a.topics)
	return nil
}

func (a *App) cmdStuck(ctx context.Context, _ string) error {
	now := a.now()
	ev := practice.Tick(now, a.elapsed(now))
	ev.Signal = practice.SignalStuck
	return a.drive(ctx, ev)
}

func (a *App) cmdBreak(ctx context.Context, _ string) error {
	a.pres.Info("Enjoy the break. Type /resume when you are back.")
	return a.drive(ctx, practice.Simple(practice.KindBreak, a.now()))
}

func (a *App) cmdResume(ctx context.Context, _ string) error {
	return a.drive(ctx, practice.Simple(practice.KindResume, a.now()))
}

func (a *App) cmdLecture(_ context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		a.pres.Info("Usage: /lecture <id> <minutes>, for example /lecture phy-kin-01 30.")
		return nil
	}
	mins, err := strconv.Atoi(fields[1])
	if err != nil {
		a.pres.Error(fmt.Sprintf("%q is not a number of minutes.", fields[1]))
		return nil
	}
	lp, err := a.orch.RecordLecture(fields[0], mins)
	if err != nil {
		return err
	}
	a.pres.Lecture(lp)
	return nil
}

func (a *App) cmdPlan(_ context.Context, _ string) error {
	a.pres.Plan(a.orch.PreviewPlan(a.profile))
	return nil
}

func (a *App) cmdProgress(_ context.Context, _ string) error {
	st, open := a.orch.Status()
	a.pres.Progress(session.BuildReport(a.profile, a.now(), 3), st, open)
	return nil
}

func (a *App) cmdEnd(ctx context.Context, _ string) error {
	if err := a.finish(ctx); err != nil {
		return err
	}
	return a.begin(ctx)
}

func (a *App) cmdQuit(ctx context.Context, _ string) error {
	if a.orch.Active() {
		if err := a.finish(ctx); err != nil {
			return err
		}
	}
	a.pres.Info("See you next time.")
	a.done = true
	return nil
}

func (a *App) cmdReset(ctx context.Context, args string) error {
	if !strings.EqualFold(args, "confirm") {
		a.pres.Info(fmt.Sprintf("This deletes all saved progress for %s. Type /reset confirm to go ahead.", a.profile.Name))
		return nil
	}
	a.orch.Abandon(ctx)
	if err := a.orch.Reset(ctx, a.profile.ID); err != nil {
		return err
	}
	a.pres.Info("Progress deleted.")
	a.done = true
	return nil
}

func (a *App) cmdHelp(_ context.Context, _ string) error {
	a.pres.Help(a.router.Commands())
	return nil
}
