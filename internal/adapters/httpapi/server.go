package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/eilgug/profile-api/internal/app/profiles"
	"github.com/eilgug/profile-api/internal/apperr"
	"github.com/eilgug/profile-api/internal/domain"
	"github.com/eilgug/profile-api/internal/platform/validation"
	clockport "github.com/eilgug/profile-api/internal/ports/out/clock"
	"github.com/eilgug/profile-api/internal/ports/out/idempotency"
)

const (
	idempotencyKeyHeader     = "Idempotency-Key"
	idempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLen     = 255

	routeUsersMe = "/users/me"
)

// Server holds the HTTP handlers. Every handler returns an error and leaves
// rendering it to handle.
type Server struct {
	Profiles  *profiles.Service
	Idem      idempotency.Store
	Validator *validation.Validator
	Clock     clockport.Clock
	Log       *slog.Logger
}

func NewServer(svc *profiles.Service, idem idempotency.Store, v *validation.Validator, clk clockport.Clock, log *slog.Logger) *Server {
	return &Server{
		Profiles:  svc,
		Idem:      idem,
		Validator: v,
		Clock:     clk,
		Log:       log,
	}
}

// ProfileResponse is the public view of a profile.
type ProfileResponse struct {
	ID          string  `json:"id"`
	AuthID      string  `json:"auth_id"`
	DisplayName *string `json:"display_name"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatar_url"`
	Bio         *string `json:"bio"`
}

// UpdateProfileRequest is the body of PUT /users/me. Each field is
// tri-state: omitted keeps the stored value, null clears it.
type UpdateProfileRequest struct {
	DisplayName nullable.Nullable[string] `json:"display_name,omitempty" validate:"omitempty,min=2,max=100"`
	Bio         nullable.Nullable[string] `json:"bio,omitempty" validate:"omitempty,max=500"`
	AvatarURL   nullable.Nullable[string] `json:"avatar_url,omitempty" validate:"omitempty,max=2048,url"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) error {
	if err := s.Profiles.Ping(r.Context()); err != nil {
		return apperr.Internal("health check failed", err)
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	return nil
}

// AuthCallback provisions the caller's profile on first login and returns it.
func (s *Server) AuthCallback(w http.ResponseWriter, r *http.Request) error {
	id, err := identityFrom(r.Context())
	if err != nil {
		return err
	}
	p, created, err := s.Profiles.EnsureProfile(r.Context(), profiles.EnsureProfileInput{
		Subject: id.ID(),
		Email:   id.Email(),
	})
	if err != nil {
		return err
	}
	if created && s.Log != nil {
		s.Log.InfoContext(r.Context(), "profile created", slog.String("profile_id", string(p.ID)))
	}
	writeJSON(w, http.StatusOK, profileFromDomain(p))
	return nil
}

func (s *Server) GetMyProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := identityFrom(r.Context())
	if err != nil {
		return err
	}
	p, err := s.Profiles.GetMyProfile(r.Context(), domain.SubjectID(id.ID()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, profileFromDomain(p))
	return nil
}

// UpdateMyProfile applies a partial update. With an Idempotency-Key header a
// retried request replays the first response; the same key with a different
// body is rejected.
func (s *Server) UpdateMyProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := identityFrom(r.Context())
	if err != nil {
		return err
	}
	payload, err := validation.Decode[UpdateProfileRequest](s.Validator, r)
	if err != nil {
		return err
	}
	req := payload.Value()
	subject := domain.SubjectID(id.ID())

	fp, hasKey, err := idempotencyFingerprint(r, subject, http.MethodPut, routeUsersMe)
	if err != nil {
		return err
	}
	var bodyHash string
	if hasKey && s.Idem != nil {
		bodyHash, err = hashBody(req)
		if err != nil {
			return apperr.Internal("hash request body", err)
		}
		rec, ok, err := s.Idem.Get(r.Context(), fp)
		if err != nil {
			return apperr.Database(err)
		}
		if ok {
			if rec.BodyHash != bodyHash {
				return apperr.BadRequest("idempotency key reused with a different payload")
			}
			replay(w, rec)
			return nil
		}
	}

	p, err := s.Profiles.UpdateMyProfile(r.Context(), subject, updateInputFromRequest(req))
	if err != nil {
		return err
	}
	body, err := json.Marshal(profileFromDomain(p))
	if err != nil {
		return apperr.Internal("encode profile", err)
	}

	if hasKey && s.Idem != nil {
		rec := idempotency.Record{
			BodyHash:    bodyHash,
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Body:        body,
			CreatedAt:   s.Clock.Now(),
		}
		if err := s.Idem.Put(r.Context(), fp, rec); err != nil && s.Log != nil {
			s.Log.WarnContext(r.Context(), "store idempotency record", slog.Any("err", err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

func (s *Server) DeleteMyProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := identityFrom(r.Context())
	if err != nil {
		return err
	}
	if err := s.Profiles.DeleteMyProfile(r.Context(), domain.SubjectID(id.ID())); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GetProfile returns any profile by id to an authenticated caller.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) error {
	if _, err := identityFrom(r.Context()); err != nil {
		return err
	}

	var profileID openapi_types.UUID
	if err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &profileID, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	}); err != nil {
		return apperr.BadRequest("invalid profile id")
	}

	p, err := s.Profiles.GetProfile(r.Context(), domain.ProfileID(profileID.String()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, profileFromDomain(p))
	return nil
}

func profileFromDomain(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          string(p.ID),
		AuthID:      string(p.Subject),
		DisplayName: p.DisplayName,
		Email:       p.Email,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
	}
}

func updateInputFromRequest(req UpdateProfileRequest) profiles.UpdateMyProfileInput {
	return profiles.UpdateMyProfileInput{
		DisplayName: optionalFromNullable(req.DisplayName),
		Bio:         optionalFromNullable(req.Bio),
		AvatarURL:   optionalFromNullable(req.AvatarURL),
	}
}

func optionalFromNullable[T any](n nullable.Nullable[T]) profiles.Optional[T] {
	if !n.IsSpecified() {
		return profiles.Unspecified[T]()
	}
	if n.IsNull() {
		return profiles.Null[T]()
	}
	return profiles.Some(n.MustGet())
}

func idempotencyFingerprint(r *http.Request, subject domain.SubjectID, method, route string) (idempotency.Fingerprint, bool, error) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" {
		return idempotency.Fingerprint{}, false, nil
	}
	if len(key) > maxIdempotencyKeyLen {
		return idempotency.Fingerprint{}, false, apperr.BadRequest("idempotency key too long")
	}
	return idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: subject,
		Method:  method,
		Route:   route,
	}, true, nil
}

// hashBody hashes the decoded request, so whitespace and key order in the
// raw body do not matter.
func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func replay(w http.ResponseWriter, rec idempotency.Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(idempotentReplayedHeader, "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(append(rec.Body, '\n'))
}
