package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheWithClient(client), mr
}

type countingRepo struct {
	profiles map[shared.StudentID]*student.Profile
	loads    int
	saveErr  error
}

func (r *countingRepo) Load(_ context.Context, id shared.StudentID) (*student.Profile, error) {
	r.loads++
	p, ok := r.profiles[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (r *countingRepo) Save(_ context.Context, p *student.Profile) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.profiles[p.ID] = p.Clone()
	return nil
}

func (r *countingRepo) LoadLatest(context.Context) (*student.Profile, error) {
	return nil, shared.ErrProfileNotFound
}

func (r *countingRepo) Delete(_ context.Context, id shared.StudentID) error {
	delete(r.profiles, id)
	return nil
}

func (r *countingRepo) Clear(context.Context) error {
	r.profiles = make(map[shared.StudentID]*student.Profile)
	return nil
}

func testProfile(t *testing.T) *student.Profile {
	t.Helper()
	p, err := student.NewProfile(student.NewProfileParams{
		Name:     "Riya Sharma",
		ExamDate: timeutil.Date(2026, 4, 2),
		Now:      time.Date(2026, 3, 1, 9, 0, 0, 0, timeutil.IST),
	})
	require.NoError(t, err)
	return p
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	repo := &countingRepo{profiles: make(map[shared.StudentID]*student.Profile)}
	cached := NewCachedRepository(repo, cache, nil)

	p := testProfile(t)
	require.NoError(t, cached.Save(ctx, p))
	assert.True(t, mr.Exists(ProfileKey(p.ID.String())))

	got, err := cached.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Zero(t, repo.loads, "served from cache")

	mr.FlushAll()
	_, err = cached.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loads)
	assert.True(t, mr.Exists(ProfileKey(p.ID.String())))
}

func TestCachedRepository_FailedSaveEvicts(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	repo := &countingRepo{profiles: make(map[shared.StudentID]*student.Profile)}
	cached := NewCachedRepository(repo, cache, nil)

	p := testProfile(t)
	require.NoError(t, cached.Save(ctx, p))

	repo.saveErr = errors.New("db down")
	p.Name = "Changed"
	assert.Error(t, cached.Save(ctx, p))
	assert.False(t, mr.Exists(ProfileKey(p.ID.String())))
}

func TestCachedRepository_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	repo := &countingRepo{profiles: make(map[shared.StudentID]*student.Profile)}
	cached := NewCachedRepository(repo, cache, nil)

	p := testProfile(t)
	require.NoError(t, cached.Save(ctx, p))
	require.NoError(t, cached.Delete(ctx, p.ID))
	assert.False(t, mr.Exists(ProfileKey(p.ID.String())))
	_, err := cached.Load(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	require.NoError(t, cached.Save(ctx, p))
	require.NoError(t, cached.Clear(ctx))
	assert.False(t, mr.Exists(ProfileKey(p.ID.String())))
}

func TestSessionLock(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	lock := NewSessionLock(cache)

	ok, err := lock.Acquire(ctx, "riya", "s-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "riya", "s-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	// Another session cannot free the lock.
	require.NoError(t, lock.Release(ctx, "riya", "s-2"))
	assert.True(t, mr.Exists(LockKey("riya")))

	require.NoError(t, lock.Release(ctx, "riya", "s-1"))
	assert.False(t, mr.Exists(LockKey("riya")))

	ok, err = lock.Acquire(ctx, "riya", "s-3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = lock.Acquire(ctx, "riya", "s-4", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is free")
}

func TestCache_KeyValidation(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	assert.ErrorIs(t, cache.SetBytes(ctx, "", nil, time.Minute), ErrCacheKeyEmpty)
	_, err := cache.GetBytes(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = cache.SetNX(ctx, "k", "v", -time.Second)
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)
}
