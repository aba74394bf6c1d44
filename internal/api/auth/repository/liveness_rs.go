package authRepository

import (
	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"

	"github.com/jmoiron/sqlx"
	"golang.org/x/net/context"
)

func (r *livenessRepository) Create(ctx context.Context, session entity.LivenessSession) error {
	query, args, err := sqlx.Named(queryCreateLivenessSession, session)
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to create liveness session %s: %v", session.SessionID, err)
		return err
	}

	return nil
}

func (r *livenessRepository) GetByID(ctx context.Context, sessionID string) (entity.LivenessSession, error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.q, queryGetLivenessSession, map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		r.log.Errorf("Failed to query liveness session %s: %v", sessionID, err)
		return entity.LivenessSession{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		return entity.LivenessSession{}, auth.ErrLivenessSessionNotFound
	}

	var session entity.LivenessSession
	if err := rows.StructScan(&session); err != nil {
		return entity.LivenessSession{}, err
	}

	return session, nil
}

// RecordResult moves a pending session to success or failed. The status
// guard in the query keeps the transition monotonic under races.
func (r *livenessRepository) RecordResult(ctx context.Context, sessionID, status string, confidence float64, referenceKey string) error {
	query, args, err := sqlx.Named(queryRecordLivenessResult, map[string]interface{}{
		"session_id":             sessionID,
		"status":                 status,
		"confidence":             confidence,
		"reference_image_s3_key": referenceKey,
	})
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to record liveness result for %s: %v", sessionID, err)
		return err
	}

	return nil
}

func (r *livenessRepository) MarkExpired(ctx context.Context, sessionID string) error {
	query, args, err := sqlx.Named(queryMarkLivenessExpired, map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to mark liveness session %s expired: %v", sessionID, err)
		return err
	}

	return nil
}
