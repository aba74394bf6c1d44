package auth

import (
	"os"
	"strconv"
	"time"
)

// Config carries the recognized tuning options, read once at startup.
type Config struct {
	SessionTimeout              time.Duration
	LivenessSessionTimeout      time.Duration
	LivenessConfidenceThreshold float64
	FaceMatchThreshold          float64
	OCRConfidenceThreshold      float64
	DirectoryTimeout            time.Duration
	OverallTimeout              time.Duration
	RateLimitMaxAttempts        int64
	RateLimitWindow             time.Duration
}

func LoadConfig() Config {
	return Config{
		SessionTimeout:              time.Duration(envInt("SESSION_TIMEOUT_HOURS", 8)) * time.Hour,
		LivenessSessionTimeout:      time.Duration(envInt("LIVENESS_SESSION_TIMEOUT_MINUTES", 10)) * time.Minute,
		LivenessConfidenceThreshold: envFloat("LIVENESS_CONFIDENCE_THRESHOLD", 90),
		FaceMatchThreshold:          envFloat("FACE_MATCH_THRESHOLD", 90),
		OCRConfidenceThreshold:      envFloat("OCR_CONFIDENCE_THRESHOLD", 0.8),
		DirectoryTimeout:            time.Duration(envInt("AD_TIMEOUT_SECONDS", 10)) * time.Second,
		OverallTimeout:              time.Duration(envInt("OVERALL_TIMEOUT_SECONDS", 15)) * time.Second,
		RateLimitMaxAttempts:        int64(envInt("RATE_LIMIT_MAX_ATTEMPTS", 5)),
		RateLimitWindow:             time.Duration(envInt("RATE_LIMIT_WINDOW_MINUTES", 15)) * time.Minute,
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}
