package profilerepo

import "errors"

var (
	// ErrNotFound indicates the requested profile does not exist.
	ErrNotFound = errors.New("profile not found")

	// ErrSubjectAlreadyBound indicates a profile already exists for the provided subject.
	ErrSubjectAlreadyBound = errors.New("profile subject already bound")

	// ErrAlreadyExists indicates a profile already exists with the provided ID.
	ErrAlreadyExists = errors.New("profile already exists")
)
