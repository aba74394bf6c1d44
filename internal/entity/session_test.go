package entity

import (
	"testing"
	"time"
)

func TestAuthSessionValid(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"before expiry", now.Add(time.Second), true},
		{"exactly at expiry", now, false},
		{"past expiry", now.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AuthSession{ExpiresAt: tt.expiresAt}
			if got := s.Valid(now); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLivenessSessionExpired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	s := LivenessSession{ExpiresAt: now}
	if !s.Expired(now) {
		t.Fatal("session exactly at expiry must count as expired")
	}

	s.ExpiresAt = now.Add(time.Second)
	if s.Expired(now) {
		t.Fatal("session before expiry must not count as expired")
	}
}
