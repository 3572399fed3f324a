package student

import (
	"context"
	"time"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores whole profiles. There are no partial-field updates.
type Repository interface {
	// Load returns the profile for id.
	// Returns ErrProfileNotFound if there is none.
	Load(ctx context.Context, id shared.StudentID) (*Profile, error)

	// Save replaces the stored profile with p.
	Save(ctx context.Context, p *Profile) error

	// LoadLatest returns the most recently saved profile.
	// Returns ErrProfileNotFound if the store is empty.
	LoadLatest(ctx context.Context) (*Profile, error)

	// Delete removes one profile. Deleting a missing profile is not an error.
	Delete(ctx context.Context, id shared.StudentID) error

	// Clear removes every profile.
	Clear(ctx context.Context) error
}

// SessionLock guards against two processes opening a session for the same
// student at once.
type SessionLock interface {
	// Acquire takes the lock for id. It returns false when another session holds it.
	Acquire(ctx context.Context, id shared.StudentID, sessionID string, ttl time.Duration) (bool, error)

	// Release drops the lock if it is still held by sessionID.
	Release(ctx context.Context, id shared.StudentID, sessionID string) error
}
