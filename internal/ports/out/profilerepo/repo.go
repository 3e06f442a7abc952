package profilerepo

import (
	"context"

	"github.com/eilgug/profile-api/internal/domain"
)

// Repository provides access to persisted profiles.
//
// Implementations return ErrNotFound for missing rows and never hand out
// values that alias their internal state.
type Repository interface {
	Create(ctx context.Context, p domain.Profile) error
	// Update replaces the mutable fields of the profile identified by p.Subject.
	Update(ctx context.Context, p domain.Profile) error

	GetByID(ctx context.Context, id domain.ProfileID) (domain.Profile, error)
	GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.Profile, error)

	DeleteBySubject(ctx context.Context, subject domain.SubjectID) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
