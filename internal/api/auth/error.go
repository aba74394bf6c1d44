package auth

import (
	"net/http"

	"FaceAuthIdP/pkg/response"
)

var (
	ErrMissingIdentifier       = response.NewError(http.StatusBadRequest, "session_id, access_token or employee_id is required")
	ErrInvalidImageEncoding    = response.NewError(http.StatusBadRequest, "image is not valid base64")
	ErrEnrollmentExists        = response.NewError(http.StatusConflict, "enrollment already exists")
	ErrEnrollmentNotFound      = response.NewError(http.StatusNotFound, "enrollment not found")
	ErrSessionNotFound         = response.NewError(http.StatusNotFound, "session not found")
	ErrLivenessSessionNotFound = response.NewError(http.StatusNotFound, "liveness session not found")
	ErrTemplateNotFound        = response.NewError(http.StatusNotFound, "card template not found")
)
