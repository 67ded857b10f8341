package ports

import "context"

// IdentityStore persists the server-issued user identifier across runs.
// Current returns domain.ErrNoUser when nothing has been stored yet.
type IdentityStore interface {
	Current(ctx context.Context) (string, error)
	Set(ctx context.Context, user string) error
}
