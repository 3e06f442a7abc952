package domain

// SubjectID is the authenticated subject extracted from token claims ("sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// ProfileID is the surrogate key of a profile record (a UUID string).
type ProfileID string
