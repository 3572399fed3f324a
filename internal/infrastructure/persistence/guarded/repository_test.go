package guarded

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/circuitbreaker"
	"github.com/jee-coach/tutor/pkg/retry"
)

type flakyRepo struct {
	failures int
	calls    int
	err      error
	saved    *student.Profile
}

func (r *flakyRepo) step() error {
	r.calls++
	if r.calls <= r.failures {
		return r.err
	}
	return nil
}

func (r *flakyRepo) Load(context.Context, shared.StudentID) (*student.Profile, error) {
	if err := r.step(); err != nil {
		return nil, err
	}
	if r.saved == nil {
		return nil, shared.ErrProfileNotFound
	}
	return r.saved, nil
}

func (r *flakyRepo) Save(_ context.Context, p *student.Profile) error {
	if err := r.step(); err != nil {
		return err
	}
	r.saved = p
	return nil
}

func (r *flakyRepo) LoadLatest(ctx context.Context) (*student.Profile, error) {
	return r.Load(ctx, "")
}

func (r *flakyRepo) Delete(context.Context, shared.StudentID) error { return r.step() }
func (r *flakyRepo) Clear(context.Context) error                    { return r.step() }

func quickRetrier() *retry.Retrier {
	return retry.StoreRetrier(retry.WithInitialDelay(time.Millisecond), retry.WithRetryIf(transient))
}

func TestRepository_RetriesTransientFailures(t *testing.T) {
	next := &flakyRepo{failures: 2, err: errors.New("connection reset")}
	repo := New(next, Options{Retrier: quickRetrier()})

	p := &student.Profile{ID: "riya", Name: "Riya"}
	require.NoError(t, repo.Save(context.Background(), p))
	assert.Equal(t, 3, next.calls)
	assert.Same(t, p, next.saved)
}

func TestRepository_ExhaustedRetriesBecomeUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	next := &flakyRepo{failures: 10, err: cause}
	repo := New(next, Options{Retrier: quickRetrier()})

	err := repo.Save(context.Background(), &student.Profile{ID: "riya"})
	assert.ErrorIs(t, err, shared.ErrPersistenceUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestRepository_NotFoundPassesThrough(t *testing.T) {
	next := &flakyRepo{}
	repo := New(next, Options{Retrier: quickRetrier()})

	_, err := repo.Load(context.Background(), "riya")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
	assert.NotErrorIs(t, err, shared.ErrPersistenceUnavailable)
	assert.Equal(t, 1, next.calls)
}

func TestRepository_OpenBreakerFailsFast(t *testing.T) {
	next := &flakyRepo{failures: 100, err: errors.New("down")}
	breaker := circuitbreaker.StoreBreaker(
		circuitbreaker.WithFailureThreshold(1),
		circuitbreaker.WithIsFailure(transient),
	)
	repo := New(next, Options{Retrier: quickRetrier(), Breaker: breaker})

	require.Error(t, repo.Delete(context.Background(), "riya"))
	calls := next.calls

	err := repo.Clear(context.Background())
	assert.ErrorIs(t, err, shared.ErrPersistenceUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, calls, next.calls, "store not called while open")
}
