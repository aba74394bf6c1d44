package rekognition

import "errors"

var ErrSessionNotFound = errors.New("liveness session not found")

const (
	LivenessStatusCreated    = "CREATED"
	LivenessStatusInProgress = "IN_PROGRESS"
	LivenessStatusSucceeded  = "SUCCEEDED"
	LivenessStatusFailed     = "FAILED"
	LivenessStatusExpired    = "EXPIRED"
)
