package redis

import (
	"context"
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
)

// SessionLock implements student.SessionLock with SET NX and a
// compare-and-delete release, so a process only ever frees its own lock.
type SessionLock struct {
	cache *Cache
}

var _ student.SessionLock = (*SessionLock)(nil)

// NewSessionLock creates a SessionLock.
func NewSessionLock(cache *Cache) *SessionLock {
	return &SessionLock{cache: cache}
}

// Acquire takes the lock for id on behalf of sessionID.
func (l *SessionLock) Acquire(ctx context.Context, id shared.StudentID, sessionID string, ttl time.Duration) (bool, error) {
	return l.cache.SetNX(ctx, LockKey(id.String()), sessionID, ttl)
}

// Release frees the lock if sessionID still holds it.
func (l *SessionLock) Release(ctx context.Context, id shared.StudentID, sessionID string) error {
	_, err := l.cache.DeleteIfEquals(ctx, LockKey(id.String()), sessionID)
	return err
}
