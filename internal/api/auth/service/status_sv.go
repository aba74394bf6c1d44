package authService

import (
	"context"
	"errors"
	"time"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/pkg/cognito"

	"github.com/sirupsen/logrus"
)

// Status composes three independent checks. Each identifier contributes what
// it can; authenticated requires a live credential and an active account.
func (s *authService) Status(c context.Context, req auth.StatusRequest) (auth.StatusResponse, error) {
	if req.SessionID == "" && req.AccessToken == "" && req.EmployeeID == "" {
		return auth.StatusResponse{}, auth.ErrMissingIdentifier
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to create repository client")
		return auth.StatusResponse{}, err
	}

	res := auth.StatusResponse{}
	employeeID := req.EmployeeID

	if req.SessionID != "" {
		session, err := repo.Sessions.GetByID(c, req.SessionID)
		switch {
		case err == nil:
			if session.Valid(time.Now()) {
				res.SessionValid = true
				res.AuthMethod = session.AuthMethod
				expires := session.ExpiresAt
				res.SessionExpiresAt = &expires
				if employeeID == "" {
					employeeID = session.EmployeeID
				}
			}
		case errors.Is(err, auth.ErrSessionNotFound):
			// expired or never existed; session_valid stays false
		default:
			return auth.StatusResponse{}, err
		}
	}

	if req.AccessToken != "" {
		claims, err := s.issuer.ValidateToken(c, req.AccessToken)
		switch {
		case err == nil:
			res.TokenValid = true
			if !claims.ExpiresAt.IsZero() {
				expires := claims.ExpiresAt
				res.TokenExpiresAt = &expires
			}
			if employeeID == "" {
				employeeID = claims.Subject
			}
		case errors.Is(err, cognito.ErrInvalidToken):
			// token_valid stays false
		default:
			return auth.StatusResponse{}, err
		}
	}

	if employeeID != "" {
		record, err := repo.Enrollments.GetByEmployeeID(c, employeeID)
		switch {
		case err == nil:
			res.EmployeeID = employeeID
			res.AccountActive = record.IsActive
			res.ReEnrollmentCount = record.ReEnrollmentCount
			enrolled := record.EnrollmentDate
			res.EnrollmentDate = &enrolled
			if record.LastLogin.Valid {
				last := record.LastLogin.Time
				res.LastLogin = &last
			}
		case errors.Is(err, auth.ErrEnrollmentNotFound):
			// account_active stays false
		default:
			return auth.StatusResponse{}, err
		}
	}

	res.Authenticated = (res.SessionValid || res.TokenValid) && res.AccountActive

	return res, nil
}
