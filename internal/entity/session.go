package entity

import (
	"database/sql"
	"time"
)

const (
	AuthMethodFace      = "face"
	AuthMethodEmergency = "emergency"
)

// AuthSession is the persisted record of one issued bearer token.
type AuthSession struct {
	SessionID   string    `db:"session_id"`
	EmployeeID  string    `db:"employee_id"`
	AuthMethod  string    `db:"auth_method"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
	AccessToken string    `db:"access_token"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
}

// Valid holds strictly before ExpiresAt; a session at exactly its expiry is
// already invalid.
func (s AuthSession) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

const (
	LivenessStatusPending = "pending"
	LivenessStatusSuccess = "success"
	LivenessStatusFailed  = "failed"
	LivenessStatusExpired = "expired"
)

// LivenessSession tracks one short-lived liveness verification handle.
// Status moves pending -> {success, failed}; any state may move to expired.
type LivenessSession struct {
	SessionID           string          `db:"session_id"`
	EmployeeID          string          `db:"employee_id"`
	Status              string          `db:"status"`
	Confidence          sql.NullFloat64 `db:"confidence"`
	ReferenceImageS3Key sql.NullString  `db:"reference_image_s3_key"`
	CreatedAt           time.Time       `db:"created_at"`
	ExpiresAt           time.Time       `db:"expires_at"`
}

func (s LivenessSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
