package authRepository

import (
	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"

	"github.com/jmoiron/sqlx"
	"golang.org/x/net/context"
)

func (r *sessionRepository) Create(ctx context.Context, session entity.AuthSession) error {
	query, args, err := sqlx.Named(queryCreateAuthSession, session)
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to create auth session %s: %v", session.SessionID, err)
		return err
	}

	return nil
}

// GetByID filters on expiry in the query itself, so an expired session is
// indistinguishable from an absent one. Stale rows are swept lazily.
func (r *sessionRepository) GetByID(ctx context.Context, sessionID string) (entity.AuthSession, error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.q, queryGetAuthSession, map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		r.log.Errorf("Failed to query auth session %s: %v", sessionID, err)
		return entity.AuthSession{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		return entity.AuthSession{}, auth.ErrSessionNotFound
	}

	var session entity.AuthSession
	if err := rows.StructScan(&session); err != nil {
		return entity.AuthSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	query, args, err := sqlx.Named(queryDeleteAuthSession, map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to delete auth session %s: %v", sessionID, err)
		return err
	}

	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(queryDeleteExpiredAuthSessions))
	if err != nil {
		r.log.Errorf("Failed to sweep expired auth sessions: %v", err)
		return 0, err
	}

	return res.RowsAffected()
}
