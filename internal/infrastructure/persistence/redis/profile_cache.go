package redis

import (
	"context"
	"errors"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/internal/infrastructure/persistence/document"
	"github.com/jee-coach/tutor/pkg/logger"
)

// CachedRepository is a read-through, write-through cache in front of a
// profile repository. Cache failures are logged and never fail a call;
// the underlying repository stays the source of truth.
type CachedRepository struct {
	next  student.Repository
	cache *Cache
	log   *logger.Logger
}

var _ student.Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps next.
func NewCachedRepository(next student.Repository, cache *Cache, log *logger.Logger) *CachedRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedRepository{next: next, cache: cache, log: log.Named("profile_cache")}
}

// Load returns the cached profile, falling back to the repository.
func (r *CachedRepository) Load(ctx context.Context, id shared.StudentID) (*student.Profile, error) {
	data, err := r.cache.GetBytes(ctx, ProfileKey(id.String()))
	if err == nil {
		if p, decErr := document.Decode(data); decErr == nil {
			return p, nil
		}
		r.evict(ctx, id)
	} else if !errors.Is(err, ErrCacheMiss) {
		r.log.Warn("profile cache read failed", logger.String("student_id", id.String()), logger.Err(err))
	}

	p, err := r.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, p)
	return p, nil
}

// Save writes through to the repository, then refreshes the cache.
func (r *CachedRepository) Save(ctx context.Context, p *student.Profile) error {
	if err := r.next.Save(ctx, p); err != nil {
		r.evict(ctx, p.ID)
		return err
	}
	r.store(ctx, p)
	return nil
}

// LoadLatest always asks the repository.
func (r *CachedRepository) LoadLatest(ctx context.Context) (*student.Profile, error) {
	return r.next.LoadLatest(ctx)
}

// Delete removes the profile from both layers.
func (r *CachedRepository) Delete(ctx context.Context, id shared.StudentID) error {
	r.evict(ctx, id)
	return r.next.Delete(ctx, id)
}

// Clear removes every profile from both layers.
func (r *CachedRepository) Clear(ctx context.Context) error {
	if err := r.cache.DeleteByPattern(ctx, PrefixProfile+"*"); err != nil {
		r.log.Warn("profile cache clear failed", logger.Err(err))
	}
	return r.next.Clear(ctx)
}

func (r *CachedRepository) store(ctx context.Context, p *student.Profile) {
	data, err := document.Encode(p)
	if err != nil {
		return
	}
	if err := r.cache.SetBytes(ctx, ProfileKey(p.ID.String()), data, TTLProfileCache); err != nil {
		r.log.Warn("profile cache write failed", logger.String("student_id", p.ID.String()), logger.Err(err))
	}
}

func (r *CachedRepository) evict(ctx context.Context, id shared.StudentID) {
	if err := r.cache.Delete(ctx, ProfileKey(id.String())); err != nil {
		r.log.Warn("profile cache evict failed", logger.String("student_id", id.String()), logger.Err(err))
	}
}
