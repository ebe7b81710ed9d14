package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/postboard/internal/authapi"
	"github.com/openkcm/postboard/internal/serviceerr"
)

var errIdentityUnavailable = errors.New("identity service unavailable")

// Identity is the part of the identity service the manager relies on.
type Identity interface {
	Me(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (authapi.Tokens, error)
}

// Manager owns the validate, refresh and clear transitions of the sessions
// stored in the repository.
type Manager struct {
	sessions Repository
	identity Identity

	// refreshes runs at most one refresh per client at a time.
	refreshes singleflight.Group

	refreshWindow time.Duration
	jwsSigAlgs    []jose.SignatureAlgorithm
	now           func() time.Time
}

func NewManager(
	sessions Repository,
	identity Identity,
	refreshWindow time.Duration,
	jwsSigAlgs []string,
) *Manager {
	algs := make([]jose.SignatureAlgorithm, 0, len(jwsSigAlgs))
	for _, alg := range jwsSigAlgs {
		algs = append(algs, jose.SignatureAlgorithm(alg))
	}

	return &Manager{
		sessions:      sessions,
		identity:      identity,
		refreshWindow: refreshWindow,
		jwsSigAlgs:    algs,
		now:           time.Now,
	}
}

// CheckAndProceed checks the session of the client and runs onValid when it
// is usable, onInvalid otherwise. Exactly one of them is called unless the
// repository fails.
func (m *Manager) CheckAndProceed(ctx context.Context, clientID string, onValid, onInvalid func(context.Context) error) error {
	status, err := m.CheckAuthStatus(ctx, clientID)
	if err != nil {
		return fmt.Errorf("checking auth status: %w", err)
	}

	if status == StatusValid {
		return onValid(ctx)
	}

	return onInvalid(ctx)
}

// CheckAuthStatus validates a complete session. A missing session is
// invalid; a partial one is cleared and then treated as missing. The check
// completes even when the caller goes away.
func (m *Manager) CheckAuthStatus(ctx context.Context, clientID string) (Status, error) {
	ctx = slogctx.With(context.WithoutCancel(ctx), "client_id", clientID)
	transition(ctx, StatusUnknown, StatusChecking)

	s, err := m.sessions.LoadSession(ctx, clientID)
	if errors.Is(err, serviceerr.ErrNotFound) {
		transition(ctx, StatusChecking, StatusInvalid)
		return StatusInvalid, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("loading session: %w", err)
	}

	slogctx.Debug(ctx, "Loaded session",
		"has_access_token", s.AccessToken != "",
		"has_refresh_token", s.RefreshToken != "",
		"has_user_data", s.UserData != "",
	)

	if !s.Complete() {
		if err := m.ClearSession(ctx, clientID); err != nil {
			return StatusInvalid, err
		}

		transition(ctx, StatusChecking, StatusInvalid)

		return StatusInvalid, nil
	}

	return m.ValidateToken(ctx, s)
}

// ValidateToken probes the identity service with the access token of the
// session. A rejected token is refreshed; a failed probe clears the session.
func (m *Manager) ValidateToken(ctx context.Context, s Session) (Status, error) {
	ctx = context.WithoutCancel(ctx)

	err := m.identity.Me(ctx, s.AccessToken)
	switch {
	case err == nil:
		transition(ctx, StatusChecking, StatusValid)
		return StatusValid, nil
	case errors.Is(err, serviceerr.ErrAuth):
		transition(ctx, StatusChecking, StatusRefreshing)
		return m.RefreshAccessToken(ctx, s.ClientID)
	default:
		slogctx.Warn(ctx, "Failed to validate the access token", "error", err)

		if err := m.ClearSession(ctx, s.ClientID); err != nil {
			return StatusInvalid, err
		}

		transition(ctx, StatusChecking, StatusInvalid)

		return StatusInvalid, nil
	}
}

// RefreshAccessToken replaces the stored tokens with fresh ones. Without a
// refresh token, or when the refresh fails, the session is cleared.
func (m *Manager) RefreshAccessToken(ctx context.Context, clientID string) (Status, error) {
	ctx = context.WithoutCancel(ctx)

	status, err := m.refreshOnce(ctx, clientID)
	if errors.Is(err, errIdentityUnavailable) {
		slogctx.Warn(ctx, "Failed to refresh the access token", "error", err)
		return m.invalidate(ctx, clientID)
	}

	return status, err
}

// refreshOnce joins the refresh already running for the client, or starts
// one.
func (m *Manager) refreshOnce(ctx context.Context, clientID string) (Status, error) {
	v, err, shared := m.refreshes.Do(clientID, func() (any, error) {
		return m.refresh(ctx, clientID)
	})
	if shared {
		slogctx.Debug(ctx, "Joined a running refresh")
	}

	status, _ := v.(Status)

	return status, err
}

// refresh spends the stored refresh token. A rejected token clears the
// session unless another process stored a newer one meanwhile. A transport
// failure leaves the session untouched and returns errIdentityUnavailable.
func (m *Manager) refresh(ctx context.Context, clientID string) (Status, error) {
	s, err := m.sessions.LoadSession(ctx, clientID)
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		return StatusInvalid, fmt.Errorf("loading session: %w", err)
	}

	if s.RefreshToken == "" {
		slogctx.Debug(ctx, "No refresh token stored")
		return m.invalidate(ctx, clientID)
	}

	tokens, err := m.identity.Refresh(ctx, s.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, serviceerr.ErrAuth):
		if m.rotatedSince(ctx, clientID, s.RefreshToken) {
			transition(ctx, StatusRefreshing, StatusValid)
			return StatusValid, nil
		}

		slogctx.Warn(ctx, "Refresh token rejected", "error", err)

		return m.invalidate(ctx, clientID)
	default:
		return StatusRefreshing, fmt.Errorf("%w: %w", errIdentityUnavailable, err)
	}

	if err := m.Establish(ctx, clientID, tokens); err != nil {
		return StatusInvalid, err
	}

	transition(ctx, StatusRefreshing, StatusValid)

	return StatusValid, nil
}

// rotatedSince reports whether a complete session with a refresh token other
// than spent is stored now.
func (m *Manager) rotatedSince(ctx context.Context, clientID, spent string) bool {
	s, err := m.sessions.LoadSession(ctx, clientID)
	if err != nil {
		return false
	}

	if s.Complete() && s.RefreshToken != spent {
		slogctx.Debug(ctx, "Refresh token was rotated by another refresh")
		return true
	}

	return false
}

// Establish writes the tokens and user data of a login or refresh. The
// write completes even when the caller goes away.
func (m *Manager) Establish(ctx context.Context, clientID string, tokens authapi.Tokens) error {
	ctx = context.WithoutCancel(ctx)

	s := Session{
		ClientID:     clientID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserData:     string(tokens.UserData),
		UpdatedAt:    m.now(),
	}

	if err := m.sessions.StoreSession(ctx, s); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	return nil
}

// ClearSession removes the stored session. Clearing a missing session is
// not an error.
func (m *Manager) ClearSession(ctx context.Context, clientID string) error {
	err := m.sessions.DeleteSession(ctx, clientID)
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}

	slogctx.Debug(ctx, "Cleared session")

	return nil
}

// Logout clears the session on behalf of the user. The caller navigates to
// the login surface.
func (m *Manager) Logout(ctx context.Context, clientID string) error {
	ctx = slogctx.With(ctx, "client_id", clientID)

	if err := m.ClearSession(ctx, clientID); err != nil {
		return err
	}

	slogctx.Info(ctx, "Logged out")

	return nil
}

// RefreshExpiringSessions refreshes every stored session whose access token
// expires within the refresh window. Tokens without a readable exp claim
// are left to the check on the next page load, as are sessions whose
// refresh fails because the identity service cannot be reached.
func (m *Manager) RefreshExpiringSessions(ctx context.Context) error {
	sessions, err := m.sessions.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	deadline := m.now().Add(m.refreshWindow)

	var errs []error
	for _, s := range sessions {
		if !s.Complete() {
			continue
		}

		ctx := slogctx.With(ctx, "client_id", s.ClientID)

		expiry, err := tokenExpiry(s.AccessToken, m.jwsSigAlgs)
		if err != nil {
			slogctx.Debug(ctx, "Skipping session without a readable expiry", "error", err)
			continue
		}

		if expiry.After(deadline) {
			continue
		}

		transition(ctx, StatusChecking, StatusRefreshing)

		_, err = m.refreshOnce(ctx, s.ClientID)
		switch {
		case errors.Is(err, errIdentityUnavailable):
			slogctx.Warn(ctx, "Skipping session, identity service unavailable", "error", err)
		case err != nil:
			errs = append(errs, fmt.Errorf("refreshing session %s: %w", s.ClientID, err))
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) invalidate(ctx context.Context, clientID string) (Status, error) {
	if err := m.ClearSession(ctx, clientID); err != nil {
		return StatusInvalid, err
	}

	transition(ctx, StatusRefreshing, StatusInvalid)

	return StatusInvalid, nil
}

func transition(ctx context.Context, from, to Status) {
	slogctx.Debug(ctx, "Session status changed", "from", from.String(), "to", to.String())
}
