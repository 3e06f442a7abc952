// Package profilecache is a read-through Redis cache in front of a
// profilerepo.Repository.
package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eilgug/profile-api/internal/domain"
	"github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

const keyPrefix = "profile-api:profile:"

// Repo caches lookups by subject and by id. Writes go to the backing
// repository first and then evict. Redis failures are logged and never fail
// a request.
type Repo struct {
	next   profilerepo.Repository
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func New(next profilerepo.Repository, client *redis.Client, ttl time.Duration, log *slog.Logger) *Repo {
	if log == nil {
		log = slog.Default()
	}
	return &Repo{next: next, client: client, ttl: ttl, log: log}
}

type entry struct {
	ID          string    `json:"id"`
	Subject     string    `json:"auth_id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEntry(p domain.Profile) entry {
	return entry{
		ID:          string(p.ID),
		Subject:     string(p.Subject),
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (e entry) profile() domain.Profile {
	return domain.Profile{
		ID:          domain.ProfileID(e.ID),
		Subject:     domain.SubjectID(e.Subject),
		Email:       e.Email,
		DisplayName: e.DisplayName,
		AvatarURL:   e.AvatarURL,
		Bio:         e.Bio,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func subjectKey(s domain.SubjectID) string { return keyPrefix + "sub:" + string(s) }
func idKey(id domain.ProfileID) string     { return keyPrefix + "id:" + string(id) }

func (r *Repo) Create(ctx context.Context, p domain.Profile) error {
	return r.next.Create(ctx, p)
}

func (r *Repo) Update(ctx context.Context, p domain.Profile) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	keys := []string{subjectKey(p.Subject)}
	if p.ID != "" {
		keys = append(keys, idKey(p.ID))
	}
	r.evict(ctx, keys...)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ProfileID) (domain.Profile, error) {
	if p, ok := r.lookup(ctx, idKey(id)); ok {
		return p, nil
	}
	p, err := r.next.GetByID(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	r.store(ctx, p)
	return p, nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	if p, ok := r.lookup(ctx, subjectKey(subject)); ok {
		return p, nil
	}
	p, err := r.next.GetBySubject(ctx, subject)
	if err != nil {
		return domain.Profile{}, err
	}
	r.store(ctx, p)
	return p, nil
}

func (r *Repo) DeleteBySubject(ctx context.Context, subject domain.SubjectID) error {
	keys := []string{subjectKey(subject)}
	if existing, err := r.next.GetBySubject(ctx, subject); err == nil {
		keys = append(keys, idKey(existing.ID))
	}
	if err := r.next.DeleteBySubject(ctx, subject); err != nil {
		return err
	}
	r.evict(ctx, keys...)
	return nil
}

// Ping checks the backing store only; the cache is optional.
func (r *Repo) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *Repo) lookup(ctx context.Context, key string) (domain.Profile, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "profile cache read failed", "key", key, "err", err)
		}
		return domain.Profile{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		r.log.WarnContext(ctx, "profile cache entry corrupt", "key", key, "err", err)
		r.evict(ctx, key)
		return domain.Profile{}, false
	}
	return e.profile(), true
}

func (r *Repo) store(ctx context.Context, p domain.Profile) {
	raw, err := json.Marshal(toEntry(p))
	if err != nil {
		return
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, subjectKey(p.Subject), raw, r.ttl)
		pipe.Set(ctx, idKey(p.ID), raw, r.ttl)
		return nil
	})
	if err != nil {
		r.log.WarnContext(ctx, "profile cache write failed", "profile_id", string(p.ID), "err", err)
	}
}

func (r *Repo) evict(ctx context.Context, keys ...string) {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.log.WarnContext(ctx, "profile cache evict failed", "keys", keys, "err", err)
	}
}
