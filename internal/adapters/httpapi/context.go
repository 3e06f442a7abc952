package httpapi

import (
	"context"

	"github.com/eilgug/profile-api/internal/apperr"
	"github.com/eilgug/profile-api/internal/platform/auth"
)

// identityFrom returns the identity the auth middleware stored. A handler
// mounted outside the auth group gets Unauthorized rather than a zero value.
func identityFrom(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, apperr.Unauthorized(auth.MissingHeaderDetail)
	}
	return id, nil
}
