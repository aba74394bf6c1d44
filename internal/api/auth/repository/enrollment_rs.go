package authRepository

import (
	"time"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"

	"github.com/jmoiron/sqlx"
	"golang.org/x/net/context"
)

// Create is conditional: a conflicting employee_id leaves the row untouched
// and surfaces ErrEnrollmentExists so the caller can converge to re-enroll.
func (r *enrollmentRepository) Create(ctx context.Context, record entity.EnrollmentRecord) error {
	query, args, err := sqlx.Named(queryCreateEnrollment, record)
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Failed to create enrollment for %s: %v", record.EmployeeID, err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrEnrollmentExists
	}

	return nil
}

func (r *enrollmentRepository) GetByEmployeeID(ctx context.Context, employeeID string) (entity.EnrollmentRecord, error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.q, queryGetEnrollmentByEmployeeID, map[string]interface{}{
		"employee_id": employeeID,
	})
	if err != nil {
		r.log.Errorf("Failed to query enrollment for %s: %v", employeeID, err)
		return entity.EnrollmentRecord{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		return entity.EnrollmentRecord{}, auth.ErrEnrollmentNotFound
	}

	var record entity.EnrollmentRecord
	if err := rows.StructScan(&record); err != nil {
		return entity.EnrollmentRecord{}, err
	}

	return record, nil
}

// Update replaces the face handle on an active record and bumps the
// re-enrollment counter in the same statement. Returns the rows touched so
// callers can detect a vanished or deactivated record.
func (r *enrollmentRepository) Update(ctx context.Context, record entity.EnrollmentRecord) (int, error) {
	query, args, err := sqlx.Named(queryUpdateEnrollment, record)
	if err != nil {
		return 0, err
	}

	query = r.q.Rebind(query)
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Failed to update enrollment for %s: %v", record.EmployeeID, err)
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

func (r *enrollmentRepository) UpdateLastLogin(ctx context.Context, employeeID string, at time.Time) error {
	query, args, err := sqlx.Named(queryUpdateLastLogin, map[string]interface{}{
		"employee_id": employeeID,
		"last_login":  at,
	})
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to update last login for %s: %v", employeeID, err)
		return err
	}

	return nil
}

func (r *enrollmentRepository) SetActive(ctx context.Context, employeeID string, active bool) error {
	query, args, err := sqlx.Named(querySetEnrollmentActive, map[string]interface{}{
		"employee_id": employeeID,
		"is_active":   active,
	})
	if err != nil {
		return err
	}

	query = r.q.Rebind(query)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.Errorf("Failed to set active=%t for %s: %v", active, employeeID, err)
		return err
	}

	return nil
}
