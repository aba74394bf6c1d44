package auth

import "time"

// RequestMeta carries per-request identity derived by the handlers.
type RequestMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
}

type EnrollRequest struct {
	IDCardImage string `json:"id_card_image" validate:"required,base64"`
	FaceImage   string `json:"face_image" validate:"required,base64"`
}

type EnrollResponse struct {
	Success        bool    `json:"success"`
	EmployeeID     string  `json:"employee_id"`
	EmployeeName   string  `json:"employee_name"`
	FaceHandle     string  `json:"face_handle"`
	RequestID      string  `json:"request_id"`
	ProcessingTime float64 `json:"processing_time"`
}

type LoginRequest struct {
	FaceImage         string `json:"face_image" validate:"required,base64"`
	LivenessSessionID string `json:"liveness_session_id" validate:"required"`
}

type LoginResponse struct {
	Success        bool      `json:"success"`
	EmployeeID     string    `json:"employee_id"`
	SessionID      string    `json:"session_id"`
	AccessToken    string    `json:"access_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	Similarity     float64   `json:"similarity"`
	ProcessingTime float64   `json:"processing_time"`
}

type EmergencyRequest struct {
	IDCardImage string `json:"id_card_image" validate:"required,base64"`
	Password    string `json:"password" validate:"required"`
}

type EmergencyResponse struct {
	Success        bool      `json:"success"`
	EmployeeID     string    `json:"employee_id"`
	EmployeeName   string    `json:"employee_name"`
	SessionID      string    `json:"session_id"`
	AccessToken    string    `json:"access_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	ProcessingTime float64   `json:"processing_time"`
}

type ReEnrollRequest struct {
	IDCardImage string `json:"id_card_image" validate:"required,base64"`
	FaceImage   string `json:"face_image" validate:"required,base64"`
}

type ReEnrollResponse struct {
	Success           bool    `json:"success"`
	EmployeeID        string  `json:"employee_id"`
	OldFaceHandle     string  `json:"old_face_handle"`
	NewFaceHandle     string  `json:"new_face_handle"`
	ReEnrollmentCount int     `json:"re_enrollment_count"`
	ProcessingTime    float64 `json:"processing_time"`
}

// StatusRequest accepts any one of the three identifiers.
type StatusRequest struct {
	SessionID   string
	AccessToken string
	EmployeeID  string
}

type StatusResponse struct {
	Authenticated     bool       `json:"authenticated"`
	SessionValid      bool       `json:"session_valid"`
	TokenValid        bool       `json:"token_valid"`
	AccountActive     bool       `json:"account_active"`
	EmployeeID        string     `json:"employee_id,omitempty"`
	AuthMethod        string     `json:"auth_method,omitempty"`
	SessionExpiresAt  *time.Time `json:"session_expires_at,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	EnrollmentDate    *time.Time `json:"enrollment_date,omitempty"`
	ReEnrollmentCount int        `json:"re_enrollment_count"`
}
