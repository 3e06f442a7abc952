package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/eilgug/profile-api/internal/apperr"
	"github.com/eilgug/profile-api/internal/domain"
	clockport "github.com/eilgug/profile-api/internal/ports/out/clock"
	"github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

const notFoundMessage = "profile not found"

type Service struct {
	repo profilerepo.Repository
	clk  clockport.Clock

	newProfileID func() domain.ProfileID
}

func NewService(repo profilerepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newProfileID: func() domain.ProfileID {
			return domain.ProfileID(uuid.NewString())
		},
	}
}

// EnsureProfile returns the caller's profile, creating it on first login.
// The bool reports whether a profile was created.
func (s *Service) EnsureProfile(ctx context.Context, in EnsureProfileInput) (domain.Profile, bool, error) {
	subject := domain.SubjectID(in.Subject)

	p, err := s.repo.GetBySubject(ctx, subject)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, profilerepo.ErrNotFound) {
		return domain.Profile{}, false, apperr.Database(err)
	}

	now := s.clk.Now()
	p = domain.Profile{
		ID:        s.newProfileID(),
		Subject:   subject,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, profilerepo.ErrSubjectAlreadyBound) {
			// Lost a concurrent first login; the winner's row is the profile.
			existing, err := s.repo.GetBySubject(ctx, subject)
			if err != nil {
				return domain.Profile{}, false, apperr.Database(err)
			}
			return existing, false, nil
		}
		return domain.Profile{}, false, apperr.Database(err)
	}
	return p, true, nil
}

func (s *Service) GetMyProfile(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		return domain.Profile{}, mapRepoErr(err)
	}
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, id domain.ProfileID) (domain.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Profile{}, mapRepoErr(err)
	}
	return p, nil
}

func (s *Service) UpdateMyProfile(ctx context.Context, subject domain.SubjectID, in UpdateMyProfileInput) (domain.Profile, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		return domain.Profile{}, mapRepoErr(err)
	}

	p.DisplayName = apply(p.DisplayName, in.DisplayName)
	p.Bio = apply(p.Bio, in.Bio)
	p.AvatarURL = apply(p.AvatarURL, in.AvatarURL)
	p.UpdatedAt = s.clk.Now()

	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Profile{}, mapRepoErr(err)
	}
	return p, nil
}

func (s *Service) DeleteMyProfile(ctx context.Context, subject domain.SubjectID) error {
	if err := s.repo.DeleteBySubject(ctx, subject); err != nil {
		return mapRepoErr(err)
	}
	return nil
}

// Ping reports whether the profile store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return apperr.Database(err)
	}
	return nil
}

func mapRepoErr(err error) error {
	if errors.Is(err, profilerepo.ErrNotFound) {
		return apperr.NotFound(notFoundMessage)
	}
	return apperr.Database(err)
}
