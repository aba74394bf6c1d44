package liveness

import "time"

type CreateSessionRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,len=7,numeric"`
}

type CreateSessionResponse struct {
	LivenessSessionID string    `json:"liveness_session_id"`
	ExpiresAt         time.Time `json:"expires_at"`
}

type ResultResponse struct {
	SessionID  string  `json:"session_id"`
	IsLive     bool    `json:"is_live"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}
