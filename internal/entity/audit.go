package entity

import "time"

const (
	EventEnrollment    = "ENROLLMENT"
	EventFaceLogin     = "FACE_LOGIN"
	EventReEnrollment  = "RE_ENROLLMENT"
	EventEmergencyAuth = "EMERGENCY_AUTH"
)

// AuditEvent is an append-only log line; the core never queries these back.
type AuditEvent struct {
	Event      string                 `json:"event"`
	EmployeeID string                 `json:"employee_id,omitempty"`
	RequestID  string                 `json:"request_id"`
	ClientIP   string                 `json:"client_ip,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Details    map[string]interface{} `json:"details,omitempty"`
}
