// Package sessionmemory keeps sessions in the process. Sessions are lost on
// restart and expire after an idle timeout.
package sessionmemory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/postboard/internal/serviceerr"
	"github.com/openkcm/postboard/pkg/session"
)

type Repository struct {
	cache *cache.Cache
}

var _ = session.Repository(&Repository{})

// NewRepository creates a repository whose entries expire after being
// idle for idleTimeout. A zero timeout keeps entries forever.
func NewRepository(idleTimeout time.Duration) *Repository {
	expiration := idleTimeout
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}

	cleanup := expiration
	if cleanup == cache.NoExpiration {
		cleanup = 0
	}

	return &Repository{
		cache: cache.New(expiration, cleanup),
	}
}

func (r *Repository) LoadSession(_ context.Context, clientID string) (session.Session, error) {
	v, ok := r.cache.Get(clientID)
	if !ok {
		return session.Session{}, serviceerr.ErrNotFound
	}

	s, ok := v.(session.Session)
	if !ok {
		return session.Session{}, serviceerr.ErrNotFound
	}

	// Reading a session keeps it alive.
	r.cache.SetDefault(clientID, s)

	return s, nil
}

func (r *Repository) StoreSession(_ context.Context, s session.Session) error {
	r.cache.SetDefault(s.ClientID, s)
	return nil
}

func (r *Repository) DeleteSession(_ context.Context, clientID string) error {
	if _, ok := r.cache.Get(clientID); !ok {
		return serviceerr.ErrNotFound
	}

	r.cache.Delete(clientID)

	return nil
}

func (r *Repository) ListSessions(_ context.Context) ([]session.Session, error) {
	items := r.cache.Items()

	sessions := make([]session.Session, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(session.Session); ok {
			sessions = append(sessions, s)
		}
	}

	return sessions, nil
}
