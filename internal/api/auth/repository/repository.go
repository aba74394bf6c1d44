package authRepository

import (
	"time"

	"FaceAuthIdP/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var db sqlx.ExtContext
	var commitFunc, rollbackFunc func() error

	db = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		db = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Templates:   &templateRepository{q: db, log: r.log},
		Enrollments: &enrollmentRepository{q: db, log: r.log},
		Sessions:    &sessionRepository{q: db, log: r.log},
		Liveness:    &livenessRepository{q: db, log: r.log},
		Commit:      commitFunc,
		Rollback:    rollbackFunc,
	}, nil
}

type Client struct {
	Templates interface {
		GetActive(ctx context.Context) ([]entity.CardTemplate, error)
	}

	Enrollments interface {
		Create(ctx context.Context, record entity.EnrollmentRecord) error
		GetByEmployeeID(ctx context.Context, employeeID string) (entity.EnrollmentRecord, error)
		Update(ctx context.Context, record entity.EnrollmentRecord) (int, error)
		UpdateLastLogin(ctx context.Context, employeeID string, at time.Time) error
		SetActive(ctx context.Context, employeeID string, active bool) error
	}

	Sessions interface {
		Create(ctx context.Context, session entity.AuthSession) error
		GetByID(ctx context.Context, sessionID string) (entity.AuthSession, error)
		Delete(ctx context.Context, sessionID string) error
		DeleteExpired(ctx context.Context) (int64, error)
	}

	Liveness interface {
		Create(ctx context.Context, session entity.LivenessSession) error
		GetByID(ctx context.Context, sessionID string) (entity.LivenessSession, error)
		RecordResult(ctx context.Context, sessionID, status string, confidence float64, referenceKey string) error
		MarkExpired(ctx context.Context, sessionID string) error
	}

	Commit   func() error
	Rollback func() error
}

type templateRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}

type enrollmentRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}

type sessionRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}

type livenessRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}
