package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/jee-coach/tutor/internal/application/session"
	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

// Colours used by the presenter.
var (
	colourAccent = lipgloss.Color("#00AFD7")
	colourGood   = lipgloss.Color("#5FD75F")
	colourWarn   = lipgloss.Color("#FFD75F")
	colourBad    = lipgloss.Color("#FF5F5F")
	colourDim    = lipgloss.Color("#808080")
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	dim     lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	option  lipgloss.Style
	panel   lipgloss.Style
	alert   lipgloss.Style
	command lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, colour bool) styles {
	paint := func(s lipgloss.Style, c lipgloss.Color) lipgloss.Style {
		if !colour {
			return s
		}
		return s.Foreground(c)
	}
	border := func(s lipgloss.Style, c lipgloss.Color) lipgloss.Style {
		if !colour {
			return s
		}
		return s.BorderForeground(c)
	}

	return styles{
		title:   paint(r.NewStyle().Bold(true), colourAccent),
		header:  paint(r.NewStyle(), colourAccent),
		dim:     paint(r.NewStyle(), colourDim),
		good:    paint(r.NewStyle().Bold(true), colourGood),
		warn:    paint(r.NewStyle(), colourWarn),
		bad:     paint(r.NewStyle().Bold(true), colourBad),
		option:  paint(r.NewStyle().Bold(true), colourAccent),
		panel:   border(r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1), colourAccent),
		alert:   border(r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1), colourWarn),
		command: paint(r.NewStyle().Bold(true), colourWarn),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Formats actions, plans and reports for the terminal.
// ══════════════════════════════════════════════════════════════════════════════

// Presenter writes rendered output to w.
type Presenter struct {
	w  io.Writer
	st styles
}

// NewPresenter creates a presenter. colour false renders plain text.
func NewPresenter(w io.Writer, colour bool) *Presenter {
	return &Presenter{
		w:  w,
		st: newStyles(lipgloss.NewRenderer(w), colour),
	}
}

func (p *Presenter) println(parts ...string) {
	fmt.Fprintln(p.w, strings.Join(parts, ""))
}

// Prompt writes the input prompt.
func (p *Presenter) Prompt() {
	fmt.Fprint(p.w, p.st.dim.Render("> "))
}

// Info writes a plain line.
func (p *Presenter) Info(msg string) {
	p.println(p.st.dim.Render(msg))
}

// Error writes an error line.
func (p *Presenter) Error(msg string) {
	p.println(p.st.bad.Render("! "), msg)
}

// Welcome greets the student at the start of a run.
func (p *Presenter) Welcome(prof *student.Profile, created bool, days int) {
	greeting := "Welcome back, " + prof.Name
	if created {
		greeting = "Welcome, " + prof.Name
	}
	p.println(p.st.title.Render(greeting))
	if days > 0 {
		p.println(p.st.dim.Render(fmt.Sprintf("%d days to the exam. Type /help for commands.", days)))
	} else {
		p.println(p.st.dim.Render("Type /help for commands."))
	}
}

// Help lists commands.
func (p *Presenter) Help(cmds []Command) {
	p.println(p.st.title.Render("Commands"))
	for _, c := range cmds {
		usage := "/" + c.Name
		if c.Usage != "" {
			usage += " " + c.Usage
		}
		p.println("  ", p.st.command.Render(fmt.Sprintf("%-16s", usage)), " ", c.Help)
	}
	p.println(p.st.dim.Render("  Answer with the option letter or its text. Press enter to continue."))
}

// Topics lists the topics on offer, grouped by subject.
func (p *Presenter) Topics(refs []content.TopicRef) {
	if len(refs) == 0 {
		p.Info("No topics are available.")
		return
	}
	p.println(p.st.title.Render("Pick a topic with /topic <name>"))
	bySubject := lo.GroupBy(refs, func(r content.TopicRef) string { return r.Subject })
	subjects := lo.Keys(bySubject)
	sort.Strings(subjects)
	for _, s := range subjects {
		names := lo.Map(bySubject[s], func(r content.TopicRef, _ int) string { return r.Topic })
		sort.Strings(names)
		p.println("  ", p.st.header.Render(s+":"), " ", strings.Join(names, ", "))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ACTIONS
// ─────────────────────────────────────────────────────────────────────────────

// Action renders the next step of the session.
func (p *Presenter) Action(a session.Action, topics []content.TopicRef) {
	if advice := a.Advice(); advice != "" && a.Kind != session.ActionIntervene {
		p.println(p.st.warn.Render("~ " + advice))
	}

	switch a.Kind {
	case session.ActionServeQuestion:
		if a.Question != nil {
			p.question(*a.Question, a.Repeat)
		}
	case session.ActionOfferTheory:
		p.theory(a)
	case session.ActionShowPatternSummary:
		if a.Summary != nil {
			p.summary(*a.Summary)
		}
	case session.ActionIntervene:
		p.intervention(a)
	case session.ActionChooseTopic:
		p.Topics(topics)
	case session.ActionEndSession:
		p.intervention(a)
	}
}

func (p *Presenter) question(q content.Question, repeat bool) {
	head := fmt.Sprintf("%s · %s · %s", q.Subject, q.Topic, q.Difficulty)
	if q.Year > 0 {
		head += fmt.Sprintf(" · %d", q.Year)
	}
	if repeat {
		head += " · try again"
	}

	var b strings.Builder
	b.WriteString(p.st.header.Render(head))
	b.WriteString("\n")
	b.WriteString(q.Text)
	for i, opt := range q.Options {
		b.WriteString("\n")
		b.WriteString(p.st.option.Render(content.OptionLabel(i) + ")"))
		b.WriteString(" ")
		b.WriteString(opt)
	}
	p.println(p.st.panel.Render(b.String()))
}

// Feedback reports whether the last answer was right.
func (p *Presenter) Feedback(correct bool) {
	if correct {
		p.println(p.st.good.Render("Correct."))
		return
	}
	p.println(p.st.bad.Render("Not quite."))
}

func (p *Presenter) theory(a session.Action) {
	t := a.Theory
	if t == nil {
		return
	}
	lines := []string{
		p.st.title.Render("Quick theory: " + t.Topic),
		p.st.header.Render("Formula: ") + t.Formula,
		p.st.header.Render("Think of it as: ") + t.Analogy,
		p.st.header.Render("Apply it: ") + t.ApplicationHint,
	}
	p.println(p.st.panel.Render(strings.Join(lines, "\n")))
	p.Info("Press enter when you are ready to try again.")
}

func (p *Presenter) summary(s session.PatternSummary) {
	lines := []string{
		p.st.title.Render("Pattern summary: " + s.Topic),
		fmt.Sprintf("%d of %d correct this pass · confidence %s (%.0f%% overall)",
			s.Correct, s.Attempts, s.Mastery.Confidence, s.Mastery.Accuracy()*100),
	}
	if len(s.Approaches) > 0 {
		lines = append(lines, p.st.header.Render("Approaches:"))
		lines = append(lines, bullets(s.Approaches)...)
	}
	if len(s.Mistakes) > 0 {
		lines = append(lines, p.st.header.Render("Watch out for:"))
		lines = append(lines, bullets(s.Mistakes)...)
	}
	if len(s.Subtopics) > 0 {
		lines = append(lines, p.st.header.Render("Revisit: ")+strings.Join(s.Subtopics, ", "))
	}
	p.println(p.st.panel.Render(strings.Join(lines, "\n")))
	p.Info("Press enter to pick the next topic.")
}

func (p *Presenter) intervention(a session.Action) {
	if a.Assessment == nil {
		return
	}
	as := a.Assessment
	var lines []string
	if as.Intervention != nil {
		lines = append(lines, p.st.warn.Render(as.Intervention.Message))
	}
	if types := as.SignalTypes(); len(types) > 0 {
		lines = append(lines, p.st.dim.Render(fmt.Sprintf("stress level %d · %s", as.Level, strings.Join(types, ", "))))
	}
	if len(lines) > 0 {
		p.println(p.st.alert.Render(strings.Join(lines, "\n")))
	}
	if a.Kind == session.ActionIntervene {
		p.Info("Type /break if you are stepping away, or /resume to carry on.")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// PLANS, PROGRESS, RECORDS
// ─────────────────────────────────────────────────────────────────────────────

// Plan renders a daily plan.
func (p *Presenter) Plan(plan student.DailyPlan) {
	lines := []string{
		p.st.title.Render(fmt.Sprintf("Plan for %s (day %d)", timeutil.FormatDateStr(plan.Date), plan.DayIndex+1)),
		fmt.Sprintf("Focus: %s · %d PYQs · %s", orDash(plan.FocusSubject), plan.TargetPYQCount,
			timeutil.FormatHours(plan.EstimatedHours)),
	}
	if plan.YesterdayAccuracy != nil {
		lines = append(lines, p.st.dim.Render(fmt.Sprintf("Last session accuracy %.0f%%", *plan.YesterdayAccuracy*100)))
	}
	if len(plan.TargetTopics) > 0 {
		lines = append(lines, p.st.header.Render("Topics:"))
		for _, t := range plan.TargetTopics {
			line := fmt.Sprintf("  %s / %s · %s · %s", t.Subject, t.Topic, t.Confidence, t.Difficulty)
			if t.Stretch {
				line += " · stretch"
			}
			lines = append(lines, line)
		}
	}
	if len(plan.LecturesToWatch) > 0 {
		lines = append(lines, p.st.header.Render("Lectures:"))
		for _, l := range plan.LecturesToWatch {
			lines = append(lines, fmt.Sprintf("  %s  %s (%s) at %gx", l.LectureID, l.Title, l.Topic, l.Speed))
		}
	}
	if len(plan.Blocks) > 0 {
		blocks := lo.Map(plan.Blocks, func(b student.PlanBlock, _ int) string {
			return fmt.Sprintf("%s %dm", b.Kind, b.Minutes)
		})
		lines = append(lines, p.st.dim.Render(strings.Join(blocks, " → ")))
	}
	p.println(p.st.panel.Render(strings.Join(lines, "\n")))
}

// Lecture confirms logged watch time.
func (p *Presenter) Lecture(l student.LectureProgress) {
	msg := fmt.Sprintf("%s: %d of %d min watched, play at %gx.", l.Title, l.WatchedMins, l.TotalMins, l.RecommendedSpeed)
	if l.Completed() {
		msg = fmt.Sprintf("%s finished. Nice work.", l.Title)
	}
	p.Info(msg)
}

// Progress renders the profile report and, when a session is open, its status.
func (p *Presenter) Progress(r session.Report, st session.Status, open bool) {
	lines := []string{
		p.st.title.Render("Progress: " + r.Name),
		fmt.Sprintf("%d days left · %d sessions · %d solved · %.0f%% accuracy",
			r.DaysRemaining, r.Sessions, r.QuestionsSolved, r.OverallAccuracy*100),
	}
	if len(r.SubjectAccuracy) > 0 {
		subjects := lo.Keys(r.SubjectAccuracy)
		sort.Strings(subjects)
		parts := lo.Map(subjects, func(s string, _ int) string {
			return fmt.Sprintf("%s %.0f%%", s, r.SubjectAccuracy[s]*100)
		})
		lines = append(lines, strings.Join(parts, " · "))
	}
	if len(r.Weakest) > 0 {
		lines = append(lines, p.st.header.Render("Weakest:"))
		lines = append(lines, masteryLines(r.Weakest)...)
	}
	if len(r.Mastered) > 0 {
		names := lo.Map(r.Mastered, func(m mastery.TopicMastery, _ int) string { return m.Topic })
		lines = append(lines, p.st.good.Render("Mastered: ")+strings.Join(names, ", "))
	}
	if open {
		lines = append(lines, p.st.header.Render("This session:"))
		lines = append(lines, fmt.Sprintf("  %s · %d/%d solved · %d breaks · %s",
			timeutil.FormatDuration(st.Elapsed), st.Solved, st.Attempted, st.Breaks, st.State))
		if st.Topic != "" {
			lines = append(lines, "  on "+st.Topic)
		}
		if len(st.Mastery) > 0 {
			lines = append(lines, masteryLines(st.Mastery)...)
		}
	}
	p.println(p.st.panel.Render(strings.Join(lines, "\n")))
}

// Record renders a closed session.
func (p *Presenter) Record(rec student.SessionRecord) {
	lines := []string{
		p.st.title.Render("Session saved"),
		fmt.Sprintf("%s · %d/%d solved · %d breaks · mood %s",
			timeutil.FormatDuration(rec.Duration()), rec.QuestionsSolved, rec.QuestionsAttempted,
			rec.BreaksTaken, orDash(string(rec.Mood))),
	}
	if len(rec.TopicsTouched) > 0 {
		lines = append(lines, "Topics: "+strings.Join(rec.TopicsTouched, ", "))
	}
	if len(rec.Breakthroughs) > 0 {
		lines = append(lines, p.st.good.Render("Breakthroughs:"))
		lines = append(lines, bullets(rec.Breakthroughs)...)
	}
	if len(rec.Struggles) > 0 {
		lines = append(lines, p.st.warn.Render("Struggles:"))
		lines = append(lines, bullets(rec.Struggles)...)
	}
	p.println(p.st.panel.Render(strings.Join(lines, "\n")))
}

func masteryLines(ms []mastery.TopicMastery) []string {
	return lo.Map(ms, func(m mastery.TopicMastery, _ int) string {
		return fmt.Sprintf("  %s / %s · %s · %d/%d", m.Subject, m.Topic, m.Confidence, m.Correct, m.Attempts)
	})
}

func bullets(items []string) []string {
	return lo.Map(items, func(s string, _ int) string { return "  - " + s })
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
