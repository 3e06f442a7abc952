package profilerepo

import (
	"context"
	"sync"

	"github.com/eilgug/profile-api/internal/domain"
	"github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID    map[domain.ProfileID]domain.Profile
	idBySub map[domain.SubjectID]domain.ProfileID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.ProfileID]domain.Profile),
		idBySub: make(map[domain.SubjectID]domain.ProfileID),
	}
}

func (r *Repo) Create(ctx context.Context, p domain.Profile) error {
	_ = ctx
	if p.ID == "" {
		return profilerepo.ErrAlreadyExists // empty IDs never come from the service
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return profilerepo.ErrAlreadyExists
	}
	if existingID, ok := r.idBySub[p.Subject]; ok && existingID != "" {
		return profilerepo.ErrSubjectAlreadyBound
	}

	r.byID[p.ID] = p.Clone()
	r.idBySub[p.Subject] = p.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, p domain.Profile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.idBySub[p.Subject]
	if !ok {
		return profilerepo.ErrNotFound
	}
	existing := r.byID[id]

	// Identity columns are immutable.
	next := p.Clone()
	next.ID = existing.ID
	next.Subject = existing.Subject
	next.CreatedAt = existing.CreatedAt

	r.byID[id] = next
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ProfileID) (domain.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Profile{}, profilerepo.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idBySub[subject]
	if !ok {
		return domain.Profile{}, profilerepo.ErrNotFound
	}
	p, ok := r.byID[id]
	if !ok {
		return domain.Profile{}, profilerepo.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *Repo) DeleteBySubject(ctx context.Context, subject domain.SubjectID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idBySub[subject]
	if !ok {
		return profilerepo.ErrNotFound
	}
	delete(r.idBySub, subject)
	delete(r.byID, id)
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return ctx.Err()
}
