package session

import "context"

// Repository persists sessions keyed by client ID. Loading or deleting a
// missing session returns serviceerr.ErrNotFound.
type Repository interface {
	LoadSession(ctx context.Context, clientID string) (Session, error)
	StoreSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, clientID string) error
	ListSessions(ctx context.Context) ([]Session, error)
}
