package domain

import "time"

// Profile is the user profile bound to one authenticated subject.
// Optional fields are nil when unset.
type Profile struct {
	ID      ProfileID
	Subject SubjectID

	Email       string
	DisplayName *string
	AvatarURL   *string
	Bio         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers cannot alias stored pointers.
func (p Profile) Clone() Profile {
	out := p
	out.DisplayName = cloneString(p.DisplayName)
	out.AvatarURL = cloneString(p.AvatarURL)
	out.Bio = cloneString(p.Bio)
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
