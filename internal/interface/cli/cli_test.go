package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/application/session"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/infrastructure/catalog"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/sqlite"
	"github.com/jee-coach/tutor/pkg/logger"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

const bankYAML = `
questions:
  - id: k-e1
    text: A ball is dropped from rest. Its speed after 2 s is (g = 10 m/s^2)
    options: ["10 m/s", "20 m/s", "30 m/s", "40 m/s"]
    correct_answer: B
    subject: Physics
    topic: Kinematics
    subtopic: Free fall
    difficulty: easy
    frequency_score: 0.9
  - id: k-m1
    text: Range of a projectile is maximum at an angle of
    options: ["30", "45", "60", "90"]
    correct_answer: "45"
    subject: Physics
    topic: Kinematics
    subtopic: Projectile motion
    difficulty: medium
    frequency_score: 0.9
    solution_approach: Write R = u^2 sin2θ / g and maximise sin2θ.
    common_mistakes: ["Maximising sinθ instead of sin2θ"]
  - id: k-m2
    text: A body covers 20 m in the 2nd second from rest. Its acceleration is
    options: ["8 m/s^2", "13.3 m/s^2", "10 m/s^2", "20 m/s^2"]
    correct_answer: B
    subject: Physics
    topic: Kinematics
    difficulty: medium
    frequency_score: 0.5
  - id: k-h1
    text: Two balls are thrown up 1 s apart at 20 m/s. They meet after
    options: ["1 s", "1.5 s", "2 s", "2.5 s"]
    correct_answer: B
    subject: Physics
    topic: Kinematics
    difficulty: hard
    frequency_score: 0.7
  - id: c-e1
    text: pH of 0.01 M HCl is
    options: ["1", "2", "3", "12"]
    correct_answer: B
    subject: Chemistry
    topic: Ionic Equilibrium
    difficulty: easy
    frequency_score: 0.8
`

const theoryYAML = `
snippets:
  - topic: Kinematics
    formula: "v = u + at, s = ut + at^2/2"
    analogy: A speedometer climbing steadily while you press the pedal.
    application_hint: List u, a and t first, then pick the equation that uses exactly those.
`

const lecturesYAML = `
lectures:
  - id: phy-kin-01
    title: Motion in a straight line
    subject: Physics
    topic: Kinematics
    total_mins: 75
  - id: chem-ie-01
    title: Acids, bases and pH
    subject: Chemistry
    topic: Ionic Equilibrium
    total_mins: 80
`

type harness struct {
	app     *App
	store   *sqlite.ProfileStore
	orch    *session.Orchestrator
	profile *student.Profile
	out     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, timeutil.IST)
	out := &bytes.Buffer{}
	h := buildHarness(t, func() time.Time { return now }, out, 0)
	h.out = out
	return h
}

func buildHarness(t *testing.T, clock func() time.Time, out io.Writer, watchEvery time.Duration) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bank, err := catalog.ParseBank([]byte(bankYAML), logger.Nop())
	require.NoError(t, err)
	require.Equal(t, 5, bank.Len())
	theory, err := catalog.ParseTheory([]byte(theoryYAML), logger.Nop())
	require.NoError(t, err)
	lectures, err := catalog.ParseLectures([]byte(lecturesYAML), logger.Nop())
	require.NoError(t, err)

	orch, err := session.New(session.DefaultConfig(), session.Dependencies{
		Profiles:  store,
		Questions: bank,
		Theory:    theory,
		Lectures:  lectures,
		Clock:     clock,
		NewID:     func() string { return "session-1" },
	})
	require.NoError(t, err)

	profile, created, err := orch.LoadOrCreate(ctx, student.NewProfileParams{
		Name:     "Asha",
		ExamDate: timeutil.Date(2026, 4, 2),
	})
	require.NoError(t, err)
	require.True(t, created)

	app, err := New(Options{
		Orchestrator: orch,
		Topics:       bank,
		Profile:      profile,
		Created:      created,
		Out:          out,
		Clock:        clock,
		WatchEvery:   watchEvery,
	})
	require.NoError(t, err)

	return &harness{app: app, store: store, orch: orch, profile: profile}
}

func script(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

// ══════════════════════════════════════════════════════════════════════════════
// FULL TOPIC PASS
// ══════════════════════════════════════════════════════════════════════════════

func TestApp_TopicPassIsSaved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.app.Run(ctx, script(
		"/topic kinem", // easy k-e1
		"B",            // correct: medium k-m1
		"30",           // wrong: same question again
		"A",            // wrong twice: theory
		"",             // theory done: k-m1 again
		"45",           // correct after retry: k-m2
		"b",            // correct: medium exhausted, hard k-h1
		"C",            // hard attempt: pattern summary
		"",             // summary done: choose topic
		"/progress",
		"/plan",
		"/quit",
	))
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Welcome, Asha")
	assert.Contains(t, out, "Ionic Equilibrium")
	assert.Contains(t, out, "Range of a projectile")
	assert.Contains(t, out, "try again")
	assert.Contains(t, out, "Quick theory: Kinematics")
	assert.Contains(t, out, "Two balls are thrown up")
	assert.Contains(t, out, "Pattern summary: Kinematics")
	assert.Contains(t, out, "Maximising sinθ instead of sin2θ")
	assert.Contains(t, out, "Progress: Asha")
	assert.Contains(t, out, "Session saved")
	assert.NotContains(t, out, "Unknown command")
	assert.NotContains(t, out, "does not fit")
	assert.False(t, h.orch.Active())

	saved, err := h.store.Load(ctx, h.profile.ID)
	require.NoError(t, err)
	require.Len(t, saved.Sessions, 1)
	assert.Nil(t, saved.CurrentSession)

	rec := saved.Sessions[0]
	assert.Equal(t, "session-1", rec.ID)
	assert.Equal(t, 6, rec.QuestionsAttempted)
	assert.Equal(t, 3, rec.QuestionsSolved)
	assert.Equal(t, []string{"Kinematics"}, rec.TopicsTouched)
	assert.Contains(t, rec.Struggles, "stuck on Kinematics")

	m, ok := saved.Topics.Lookup("Physics", "Kinematics")
	require.True(t, ok)
	assert.Equal(t, 6, m.Attempts)
	assert.Equal(t, 3, m.Correct)
	assert.Contains(t, m.WeakSubtopics, "Projectile motion")
	assert.NotEmpty(t, saved.DailyPlans)
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUT HANDLING
// ══════════════════════════════════════════════════════════════════════════════

func TestApp_RejectsMisplacedInput(t *testing.T) {
	h := newHarness(t)

	err := h.app.Run(context.Background(), script(
		"/stuck",
		"/dance",
		"/topic quantum chromodynamics",
		"/quit",
	))
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "does not fit right now. Pick a topic with /topic <name>.")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, `No topic matches "quantum chromodynamics"`)
}

func TestApp_FreeTextIsNotAnAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.app.Run(ctx, script(
		"/topic Kinematics",
		"I think I get this",
		"B",
		"/quit",
	))
	require.NoError(t, err)

	saved, err := h.store.Load(ctx, h.profile.ID)
	require.NoError(t, err)
	require.Len(t, saved.Sessions, 1)
	assert.Equal(t, 1, saved.Sessions[0].QuestionsAttempted)
	assert.Equal(t, 1, saved.Sessions[0].QuestionsSolved)
}

func TestApp_LectureWatchIsSavedAndPlanned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.app.Run(ctx, script(
		"/lecture phy-kin-01 30",
		"/lecture phy-kin-01 half",
		"/lecture phy-kin-01 0",
		"/lecture phy-xyz-99 10",
		"/lecture",
		"/topic ionic",
		"A", // wrong
		"/quit",
	))
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Motion in a straight line: 30 of 75 min watched, play at 1x.")
	assert.Contains(t, out, `"half" is not a number of minutes.`)
	assert.Contains(t, out, "Watched minutes must be more than zero.")
	assert.Contains(t, out, "No lecture has that ID.")
	assert.Contains(t, out, "Usage: /lecture <id> <minutes>")
	assert.Contains(t, out, "chem-ie-01  Acids, bases and pH (Ionic Equilibrium) at 1x")

	saved, err := h.store.Load(ctx, h.profile.ID)
	require.NoError(t, err)
	lp, ok := saved.Lectures["phy-kin-01"]
	require.True(t, ok)
	assert.Equal(t, 30, lp.WatchedMins)
	assert.False(t, lp.Completed())

	require.NotEmpty(t, saved.DailyPlans)
	plan := saved.DailyPlans[len(saved.DailyPlans)-1]
	require.Len(t, plan.LecturesToWatch, 1)
	assert.Equal(t, "chem-ie-01", plan.LecturesToWatch[0].LectureID)
}

func TestApp_StuckOffersTheory(t *testing.T) {
	h := newHarness(t)

	err := h.app.Run(context.Background(), script(
		"/topic Kinematics",
		"/stuck",
		"/quit",
	))
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Quick theory: Kinematics")
}

func TestApp_EndOfInputSavesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.app.Run(ctx, script("/topic Kinematics", "B", "/break"))
	require.NoError(t, err)
	assert.False(t, h.orch.Active())

	saved, err := h.store.Load(ctx, h.profile.ID)
	require.NoError(t, err)
	require.Len(t, saved.Sessions, 1)
	assert.Equal(t, 1, saved.Sessions[0].QuestionsSolved)
	assert.Equal(t, 1, saved.Sessions[0].BreaksTaken)
}

func TestApp_EndStartsFreshSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.app.Run(ctx, script("/topic Kinematics", "B", "/end", "/quit"))
	require.NoError(t, err)

	saved, err := h.store.Load(ctx, h.profile.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Sessions, 2)
	assert.Equal(t, 2, strings.Count(h.out.String(), "Session saved"))
}

func TestApp_ResetNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.app.Run(ctx, script("/reset", "/reset confirm", "/help"))
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Type /reset confirm to go ahead.")
	assert.Contains(t, out, "Progress deleted.")
	// The loop stops after the reset.
	assert.NotContains(t, out, "Commands")

	_, err = h.store.Load(ctx, h.profile.ID)
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
	assert.False(t, h.orch.Active())
}

func TestApp_CancelSavesSession(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	go func() {
		_, _ = io.WriteString(pw, "/topic Kinematics\n")
		cancel()
	}()

	require.NoError(t, h.app.Run(ctx, pr))
	assert.False(t, h.orch.Active())
	saved, err := h.store.Load(context.Background(), h.profile.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Sessions, 1)
}

// ══════════════════════════════════════════════════════════════════════════════
// WATCH
// ══════════════════════════════════════════════════════════════════════════════

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestApp_WatchDetectsIdleQuestion(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, timeutil.IST)}
	out := &lockedBuffer{}
	h := buildHarness(t, clock.Now, out, 10*time.Millisecond)

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- h.app.Run(context.Background(), pr) }()

	_, err := io.WriteString(pw, "/topic Kinematics\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "A ball is dropped")
	}, 2*time.Second, 5*time.Millisecond)

	// Quiet ticks leave the question on screen without redrawing it.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "A ball is dropped"))

	clock.Advance(3 * time.Minute)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Quick theory: Kinematics")
	}, 2*time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after /quit")
	}
	pw.Close()
	assert.False(t, h.orch.Active())
}
