package practice

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

// serve mimics the orchestrator answering a CueServeNew.
func serve(m *Machine, id string) {
	d, _ := m.State().Difficulty()
	m.Serve(id, d)
}

func newStarted(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(DefaultConfig(), t0)
	step, err := m.Apply(SelectTopic(at(0), "Physics", "Kinematics"))
	require.NoError(t, err)
	assert.Equal(t, StateServingEasy, step.To)
	assert.Equal(t, CueServeNew, step.Cue)
	serve(m, "q1")
	return m
}

func TestMachine_CorrectAnswersNeverSkipATier(t *testing.T) {
	m := newStarted(t)
	states := []State{m.State()}

	for i, id := range []string{"q2", "q3", "q4"} {
		step, err := m.Apply(Answer(at(i+1), "", true, 30))
		require.NoError(t, err)
		states = append(states, step.To)
		serve(m, id)
	}
	step, err := m.Apply(Answer(at(5), "", true, 30))
	require.NoError(t, err)
	states = append(states, step.To)

	assert.Equal(t, []State{
		StateServingEasy, StateServingMedium, StateServingMedium, StateServingHard, StatePatternSummary,
	}, states)
	assert.Equal(t, CueSummary, step.Cue)
}

func TestMachine_KinematicsScenario(t *testing.T) {
	m := newStarted(t)
	var seq []State
	seq = append(seq, m.State())

	for i, c := range []bool{true, true, true, false} {
		step, err := m.Apply(Answer(at(i+1), "", c, 45))
		require.NoError(t, err)
		seq = append(seq, step.To)
		if step.Cue == CueServeNew {
			serve(m, "next")
		}
	}

	assert.Equal(t, []State{
		StateServingEasy, StateServingMedium, StateServingMedium, StateServingHard, StatePatternSummary,
	}, seq)
	attempts, correct := m.TopicTally()
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 3, correct)
}

func TestMachine_TwoIncorrectOnEasyGoesStuckAndResumesEasy(t *testing.T) {
	m := newStarted(t)

	step, err := m.Apply(Answer(at(1), "q1", false, 50))
	require.NoError(t, err)
	assert.Equal(t, StateServingEasy, step.To)
	assert.Equal(t, CueServeSame, step.Cue)

	step, err = m.Apply(Answer(at(2), "q1", false, 50))
	require.NoError(t, err)
	assert.Equal(t, StateStuck, step.To)
	assert.Equal(t, CueTheory, step.Cue)
	assert.Equal(t, StuckRepeatedErrors, step.Reason)
	assert.Equal(t, StateServingEasy, m.Origin())

	step, err = m.Apply(Simple(KindTheoryDone, at(3)))
	require.NoError(t, err)
	assert.Equal(t, StateServingEasy, step.To)
	assert.Equal(t, CueServeSame, step.Cue)

	// Correct after the hand-off does not advance on the same question.
	step, err = m.Apply(Answer(at(4), "q1", true, 20))
	require.NoError(t, err)
	assert.Equal(t, StateServingEasy, step.To)
	assert.Equal(t, CueServeNew, step.Cue)
}

func TestMachine_StuckOnTimeoutAndRequest(t *testing.T) {
	m := newStarted(t)

	step, err := m.Apply(Tick(at(1), 120))
	require.NoError(t, err)
	assert.Equal(t, StateServingEasy, step.To, "exactly the threshold is not stuck")

	step, err = m.Apply(Tick(at(2), 121))
	require.NoError(t, err)
	assert.Equal(t, StateStuck, step.To)
	assert.Equal(t, StuckTimeout, step.Reason)

	_, err = m.Apply(Simple(KindTheoryDone, at(3)))
	require.NoError(t, err)

	ev := Tick(at(4), 5)
	ev.Signal = "Stuck"
	step, err = m.Apply(ev)
	require.NoError(t, err)
	assert.Equal(t, StuckRequested, step.Reason)
}

func TestMachine_MediumRetryDoesNotCountTowardHard(t *testing.T) {
	m := newStarted(t)
	_, _ = m.Apply(Answer(at(1), "", true, 10))
	serve(m, "m1")

	_, _ = m.Apply(Answer(at(2), "", false, 10))
	step, err := m.Apply(Answer(at(3), "", true, 10))
	require.NoError(t, err)
	assert.Equal(t, StateServingMedium, step.To)
	serve(m, "m2")

	step, _ = m.Apply(Answer(at(4), "", true, 10))
	assert.Equal(t, StateServingMedium, step.To)
	serve(m, "m3")
	step, _ = m.Apply(Answer(at(5), "", true, 10))
	assert.Equal(t, StateServingHard, step.To)
}

func TestMachine_InvalidEventsApplyNothing(t *testing.T) {
	m := NewMachine(DefaultConfig(), t0)

	_, err := m.Apply(Answer(at(1), "q1", true, 10))
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)
	assert.Equal(t, StateAwaitTopic, m.State())

	_, err = m.Apply(SelectTopic(at(1), "Physics", ""))
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)

	m = newStarted(t)
	_, err = m.Apply(Answer(at(1), "other", true, 10))
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)
	_, err = m.Apply(Simple(KindTheoryDone, at(1)))
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)
	_, err = m.Apply(SelectTopic(at(1), "Physics", "Optics"))
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)
	assert.Equal(t, StateServingEasy, m.State())
	q, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, 0, q.Misses)
}

func TestMachine_InvalidEventIsWrappedOnce(t *testing.T) {
	m := newStarted(t)

	_, err := m.Apply(Answer(at(1), "other", true, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)
	assert.Equal(t, 1, strings.Count(err.Error(), "event is not valid"))

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	var inner *shared.DomainError
	assert.False(t, errors.As(de.Err, &inner), "cause should be the plain detail")
	assert.Contains(t, err.Error(), "answer is for question other")
}

func TestMachine_ExhaustedAdvancesTier(t *testing.T) {
	m := newStarted(t)

	step := m.Exhausted(at(1))
	assert.Equal(t, StateServingMedium, step.To)
	assert.Equal(t, CueServeNew, step.Cue)

	step = m.Exhausted(at(1))
	assert.Equal(t, StateServingHard, step.To)

	step = m.Exhausted(at(1))
	assert.Equal(t, StatePatternSummary, step.To)
	assert.Equal(t, CueSummary, step.Cue)

	step, err := m.Apply(Simple(KindSummaryDone, at(2)))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitTopic, step.To)
	assert.Equal(t, CueChooseTopic, step.Cue)
}

func TestMachine_CheckpointHoldAndRelease(t *testing.T) {
	m := newStarted(t)
	assert.False(t, m.CheckpointDue(at(29)))
	assert.True(t, m.CheckpointDue(at(30)))

	m.Hold(at(30), true)
	assert.Equal(t, StateCheckpoint, m.State())
	assert.Equal(t, StateServingEasy, m.Origin())
	assert.False(t, m.CheckpointDue(at(61)))

	_, err := m.Apply(Answer(at(31), "q1", true, 10))
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)

	step, err := m.Apply(Simple(KindResume, at(32)))
	require.NoError(t, err)
	assert.Equal(t, StateServingEasy, step.To)
	assert.Equal(t, CueServeSame, step.Cue)
	assert.False(t, m.CheckpointDue(at(59)))
	assert.True(t, m.CheckpointDue(at(60)))
}

func TestMachine_CheckpointDuringStuckKeepsStuckOrigin(t *testing.T) {
	m := newStarted(t)
	_, _ = m.Apply(Answer(at(1), "", true, 10))
	serve(m, "m1")
	_, _ = m.Apply(Tick(at(2), 500))
	require.Equal(t, StateStuck, m.State())

	m.Hold(at(30), true)
	m.Release(at(31))
	assert.Equal(t, StateStuck, m.State())

	step, err := m.Apply(Simple(KindTheoryDone, at(32)))
	require.NoError(t, err)
	assert.Equal(t, StateServingMedium, step.To)
}

func TestMachine_EaseAndSwitchTopic(t *testing.T) {
	m := newStarted(t)
	assert.False(t, m.Ease(at(1)), "easy cannot drop further")

	_, _ = m.Apply(Answer(at(1), "", true, 10))
	assert.True(t, m.Ease(at(1)))
	assert.Equal(t, StateServingEasy, m.State())

	serve(m, "e2")
	m.Hold(at(2), false)
	m.SwitchTopic(at(2))
	step := m.Release(at(3))
	assert.Equal(t, StateAwaitTopic, step.To)
	assert.Equal(t, CueChooseTopic, step.Cue)
	_, ok := m.Current()
	assert.False(t, ok)
}
