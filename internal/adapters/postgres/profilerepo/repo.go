package profilerepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/eilgug/profile-api/internal/adapters/postgres"
	"github.com/eilgug/profile-api/internal/domain"
	"github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

const selectColumns = `id, auth_id, email, display_name, avatar_url, bio, created_at, updated_at`

// Repo is a Postgres implementation of profilerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p domain.Profile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO profiles (
			id,
			auth_id,
			email,
			display_name,
			avatar_url,
			bio,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		id,
		string(p.Subject),
		p.Email,
		p.DisplayName,
		p.AvatarURL,
		p.Bio,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "profiles_auth_id_unique":
				return profilerepo.ErrSubjectAlreadyBound
			case "profiles_pkey":
				return profilerepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p domain.Profile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET email = $2,
		    display_name = $3,
		    avatar_url = $4,
		    bio = $5,
		    updated_at = $6
		WHERE auth_id = $1
	`,
		string(p.Subject),
		p.Email,
		p.DisplayName,
		p.AvatarURL,
		p.Bio,
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return profilerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ProfileID) (domain.Profile, error) {
	if r.pool == nil {
		return domain.Profile{}, errors.New("nil postgres pool")
	}
	u, err := uuid.Parse(string(id))
	if err != nil {
		// Not a UUID, so no row can match.
		return domain.Profile{}, profilerepo.ErrNotFound
	}
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM profiles WHERE id = $1`, u))
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	if r.pool == nil {
		return domain.Profile{}, errors.New("nil postgres pool")
	}
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM profiles WHERE auth_id = $1`, string(subject)))
}

func (r *Repo) DeleteBySubject(ctx context.Context, subject domain.SubjectID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE auth_id = $1`, string(subject))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return profilerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return r.pool.Ping(ctx)
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p       domain.Profile
		id      uuid.UUID
		subject string
	)
	if err := row.Scan(&id, &subject, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, profilerepo.ErrNotFound
		}
		return domain.Profile{}, err
	}
	p.ID = domain.ProfileID(id.String())
	p.Subject = domain.SubjectID(subject)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
