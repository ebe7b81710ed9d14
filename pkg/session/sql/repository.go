package sessionsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/postboard/internal/serviceerr"
	"github.com/openkcm/postboard/pkg/session"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ = session.Repository(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) LoadSession(ctx context.Context, clientID string) (s session.Session, _ error) {
	if err := r.db.QueryRow(ctx, `SELECT client_id, access_token, refresh_token, user_data, updated_at
FROM client_sessions
WHERE client_id = $1;`,
		clientID,
	).
		Scan(&s.ClientID, &s.AccessToken, &s.RefreshToken, &s.UserData, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, serviceerr.ErrNotFound
		}

		return session.Session{}, fmt.Errorf("selecting from client_sessions: %w", err)
	}

	return s, nil
}

// StoreSession writes the tokens and user data of a session in one
// statement.
func (r *Repository) StoreSession(ctx context.Context, s session.Session) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `INSERT INTO client_sessions (client_id, access_token, refresh_token, user_data, updated_at)
VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (client_id)
	DO UPDATE SET (access_token, refresh_token, user_data, updated_at) =
		(EXCLUDED.access_token, EXCLUDED.refresh_token, EXCLUDED.user_data, EXCLUDED.updated_at);`,
		s.ClientID, s.AccessToken, s.RefreshToken, s.UserData, s.UpdatedAt,
	); err != nil {
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("inserting into client_sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, clientID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM client_sessions WHERE client_id = $1;`, clientID)
	if err != nil {
		return fmt.Errorf("deleting from client_sessions: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return serviceerr.ErrNotFound
	}

	return nil
}

func (r *Repository) ListSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := r.db.Query(ctx, `SELECT client_id, access_token, refresh_token, user_data, updated_at
FROM client_sessions
ORDER BY updated_at;`)
	if err != nil {
		return nil, fmt.Errorf("selecting from client_sessions: %w", err)
	}

	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (session.Session, error) {
		var s session.Session
		err := row.Scan(&s.ClientID, &s.AccessToken, &s.RefreshToken, &s.UserData, &s.UpdatedAt)

		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning client_sessions: %w", err)
	}

	return sessions, nil
}
