// Package guarded wraps a profile repository with retries and a circuit
// breaker. Store failures that survive both come back as
// shared.ErrPersistenceUnavailable, which the session layer treats as
// "keep the session open and try again later".
package guarded

import (
	"context"
	"errors"
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/circuitbreaker"
	"github.com/jee-coach/tutor/pkg/logger"
	"github.com/jee-coach/tutor/pkg/retry"
)

// Repository implements student.Repository over another implementation.
type Repository struct {
	next    student.Repository
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

var _ student.Repository = (*Repository)(nil)

// Options tunes the guard. Zero values take the store presets.
type Options struct {
	Retrier *retry.Retrier
	Breaker *circuitbreaker.CircuitBreaker
	Logger  *logger.Logger
}

// New wraps next.
func New(next student.Repository, opts Options) *Repository {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("store_guard")

	r := &Repository{next: next, retrier: opts.Retrier, breaker: opts.Breaker, log: log}
	if r.retrier == nil {
		r.retrier = retry.StoreRetrier(
			retry.WithRetryIf(transient),
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Warn("retrying profile store call",
					logger.Int("attempt", attempt),
					logger.Duration("delay", delay),
					logger.Err(err))
			}),
		)
	}
	if r.breaker == nil {
		r.breaker = circuitbreaker.StoreBreaker(
			circuitbreaker.WithIsFailure(transient),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()))
			}),
		)
	}
	return r
}

// transient reports whether err is worth retrying: anything but a
// domain answer or a cancelled call.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, shared.ErrProfileNotFound),
		errors.Is(err, shared.ErrInvalidProfile),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (r *Repository) call(ctx context.Context, fn func(context.Context) error) error {
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.retrier.Do(ctx, fn)
	})
	if err == nil || !transient(err) {
		return err
	}
	if errors.Is(err, shared.ErrPersistenceUnavailable) {
		return err
	}
	return shared.ErrPersistenceUnavailable.Wrap(err)
}

func (r *Repository) Load(ctx context.Context, id shared.StudentID) (*student.Profile, error) {
	var p *student.Profile
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = r.next.Load(ctx, id)
		return err
	})
	return p, err
}

func (r *Repository) Save(ctx context.Context, p *student.Profile) error {
	return r.call(ctx, func(ctx context.Context) error {
		return r.next.Save(ctx, p)
	})
}

func (r *Repository) LoadLatest(ctx context.Context) (*student.Profile, error) {
	var p *student.Profile
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = r.next.LoadLatest(ctx)
		return err
	})
	return p, err
}

func (r *Repository) Delete(ctx context.Context, id shared.StudentID) error {
	return r.call(ctx, func(ctx context.Context) error {
		return r.next.Delete(ctx, id)
	})
}

func (r *Repository) Clear(ctx context.Context) error {
	return r.call(ctx, r.next.Clear)
}
