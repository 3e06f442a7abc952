package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eilgug/profile-api/internal/domain"
	idempotencyport "github.com/eilgug/profile-api/internal/ports/out/idempotency"
	profilerepoport "github.com/eilgug/profile-api/internal/ports/out/profilerepo"
)

type CleanupFunc = func()

type ProfileRepoFactory func(t *testing.T) (profilerepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:     idempotencyport.Key("k-" + uuid.NewString()),
		Subject: domain.SubjectID("sub-1"),
		Method:  "PUT",
		Route:   "/users/me",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		BodyHash:    "hash-abc",
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"id":"1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"id":"1"}` || got.ContentType != "application/json" || got.StatusCode != 200 || got.BodyHash != "hash-abc" {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Same key, other subject: separate scope.
	other := fp
	other.Subject = "sub-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("key leaked across subjects: ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.BodyHash = "hash-def"
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || got.BodyHash != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v hash=%q", ok, err, got.BodyHash)
	}

	// Expiry: only records created before the cutoff go.
	fresh := fp
	fresh.Key = idempotencyport.Key("k-" + uuid.NewString())
	freshRec := rec
	freshRec.CreatedAt = time.Unix(10_000, 0).UTC()
	if err := store.Put(ctx, fresh, freshRec); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	n, err := store.DeleteBefore(ctx, time.Unix(5_000, 0).UTC())
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n < 1 {
		t.Fatalf("DeleteBefore removed %d records, want at least 1", n)
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expired record still present: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Get(ctx, fresh); err != nil || !ok {
		t.Fatalf("fresh record removed: ok=%v err=%v", ok, err)
	}
}

func strPtr(s string) *string { return &s }

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.ProfileID(uuid.NewString())
	sub := domain.SubjectID("sub-" + uuid.NewString())
	if err := repo.Create(ctx, domain.Profile{
		ID:          aID,
		Subject:     sub,
		Email:       "alice@example.com",
		DisplayName: strPtr("Alice Johnson"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}

	byID, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Subject != sub || byID.Email != "alice@example.com" || byID.DisplayName == nil || *byID.DisplayName != "Alice Johnson" {
		t.Fatalf("unexpected profile: %+v", byID)
	}
	if byID.Bio != nil || byID.AvatarURL != nil {
		t.Fatalf("expected unset optional fields, got %+v", byID)
	}
	if !byID.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt=%v, want %v", byID.CreatedAt, now)
	}

	bySub, err := repo.GetBySubject(ctx, sub)
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if bySub.ID != aID {
		t.Fatalf("GetBySubject().ID=%q, want %q", bySub.ID, aID)
	}

	// Subject uniqueness.
	err = repo.Create(ctx, domain.Profile{
		ID:        domain.ProfileID(uuid.NewString()),
		Subject:   sub,
		Email:     "alice2@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, profilerepoport.ErrSubjectAlreadyBound) {
		t.Fatalf("Create duplicate subject err=%v, want %v", err, profilerepoport.ErrSubjectAlreadyBound)
	}

	// ID uniqueness.
	err = repo.Create(ctx, domain.Profile{
		ID:        aID,
		Subject:   domain.SubjectID("sub-" + uuid.NewString()),
		Email:     "other@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, profilerepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate id err=%v, want %v", err, profilerepoport.ErrAlreadyExists)
	}

	// Update sets and clears optional fields; identity columns stay put.
	later := now.Add(time.Hour)
	upd := bySub
	upd.DisplayName = nil
	upd.Bio = strPtr("Hello")
	upd.AvatarURL = strPtr("https://example.com/a.png")
	upd.UpdatedAt = later
	if err := repo.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetBySubject(ctx, sub)
	if err != nil {
		t.Fatalf("GetBySubject after update: %v", err)
	}
	if got.DisplayName != nil || got.Bio == nil || *got.Bio != "Hello" || got.AvatarURL == nil {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.ID != aID || !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected identity/timestamps after update: %+v", got)
	}

	missing := domain.SubjectID("sub-" + uuid.NewString())
	if err := repo.Update(ctx, domain.Profile{Subject: missing}); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want %v", err, profilerepoport.ErrNotFound)
	}
	if _, err := repo.GetBySubject(ctx, missing); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("GetBySubject missing err=%v, want %v", err, profilerepoport.ErrNotFound)
	}
	if _, err := repo.GetByID(ctx, domain.ProfileID(uuid.NewString())); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want %v", err, profilerepoport.ErrNotFound)
	}

	// Delete frees the subject for a new profile.
	if err := repo.DeleteBySubject(ctx, sub); err != nil {
		t.Fatalf("DeleteBySubject: %v", err)
	}
	if _, err := repo.GetByID(ctx, aID); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("GetByID after delete err=%v, want %v", err, profilerepoport.ErrNotFound)
	}
	if err := repo.DeleteBySubject(ctx, sub); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("second DeleteBySubject err=%v, want %v", err, profilerepoport.ErrNotFound)
	}
	if err := repo.Create(ctx, domain.Profile{
		ID:        domain.ProfileID(uuid.NewString()),
		Subject:   sub,
		Email:     "alice@example.com",
		CreatedAt: later,
		UpdatedAt: later,
	}); err != nil {
		t.Fatalf("re-Create after delete: %v", err)
	}
}
