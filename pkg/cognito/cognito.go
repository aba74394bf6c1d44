package cognito

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	cip "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

type TokenBundle struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

type ItfCognito interface {
	EnsureSubject(ctx context.Context, employeeID, displayName string) error
	IssueToken(ctx context.Context, employeeID string) (TokenBundle, error)
	ValidateToken(ctx context.Context, accessToken string) (Claims, error)
	RevokeAll(ctx context.Context, employeeID string) error
	SetSubjectEnabled(ctx context.Context, employeeID string, enabled bool) error
}

type cognitoClient struct {
	client     *cip.CognitoIdentityProvider
	userPoolID string
	clientID   string
}

func New() (ItfCognito, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &cognitoClient{
		client:     cip.New(sess),
		userPoolID: os.Getenv("COGNITO_USER_POOL_ID"),
		clientID:   os.Getenv("COGNITO_CLIENT_ID"),
	}, nil
}

func newSession() (*session.Session, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "ap-northeast-2"
	}

	cfg := aws.NewConfig().WithRegion(region)
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return sess, nil
}

// EnsureSubject creates the pool user for the employee if it does not exist.
// Safe to call on every authentication.
func (c *cognitoClient) EnsureSubject(ctx context.Context, employeeID, displayName string) error {
	_, err := c.client.AdminGetUserWithContext(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(employeeID),
	})
	if err == nil {
		return nil
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) || aerr.Code() != cip.ErrCodeUserNotFoundException {
		return fmt.Errorf("failed to look up subject %s: %w", employeeID, err)
	}

	_, err = c.client.AdminCreateUserWithContext(ctx, &cip.AdminCreateUserInput{
		UserPoolId:    aws.String(c.userPoolID),
		Username:      aws.String(employeeID),
		MessageAction: aws.String(cip.MessageActionTypeSuppress),
		UserAttributes: []*cip.AttributeType{
			{Name: aws.String("name"), Value: aws.String(displayName)},
			{Name: aws.String("custom:employee_id"), Value: aws.String(employeeID)},
		},
	})
	if err != nil {
		if errors.As(err, &aerr) && aerr.Code() == cip.ErrCodeUsernameExistsException {
			return nil
		}
		return fmt.Errorf("failed to create subject %s: %w", employeeID, err)
	}

	return nil
}

// IssueToken grants a bearer token for a subject that was verified out of
// band (face match or directory password). The pool has no password-less
// admin grant, so a fresh one-time password is set and immediately used.
func (c *cognitoClient) IssueToken(ctx context.Context, employeeID string) (TokenBundle, error) {
	password, err := oneTimePassword()
	if err != nil {
		return TokenBundle{}, err
	}

	_, err = c.client.AdminSetUserPasswordWithContext(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(employeeID),
		Password:   aws.String(password),
		Permanent:  aws.Bool(true),
	})
	if err != nil {
		return TokenBundle{}, fmt.Errorf("failed to rotate one-time credential: %w", err)
	}

	out, err := c.client.AdminInitiateAuthWithContext(ctx, &cip.AdminInitiateAuthInput{
		UserPoolId: aws.String(c.userPoolID),
		ClientId:   aws.String(c.clientID),
		AuthFlow:   aws.String(cip.AuthFlowTypeAdminNoSrpAuth),
		AuthParameters: map[string]*string{
			"USERNAME": aws.String(employeeID),
			"PASSWORD": aws.String(password),
		},
	})
	if err != nil {
		return TokenBundle{}, fmt.Errorf("failed to initiate auth: %w", err)
	}
	if out.AuthenticationResult == nil {
		return TokenBundle{}, errors.New("auth challenge not supported for service subjects")
	}

	result := out.AuthenticationResult
	return TokenBundle{
		AccessToken:  aws.StringValue(result.AccessToken),
		IDToken:      aws.StringValue(result.IdToken),
		RefreshToken: aws.StringValue(result.RefreshToken),
		ExpiresAt:    time.Now().Add(time.Duration(aws.Int64Value(result.ExpiresIn)) * time.Second),
	}, nil
}

// ValidateToken asks the pool to resolve the token to its subject. The pool
// performs the signature check; the exp claim is read locally for reporting.
func (c *cognitoClient) ValidateToken(ctx context.Context, accessToken string) (Claims, error) {
	out, err := c.client.GetUserWithContext(ctx, &cip.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case cip.ErrCodeNotAuthorizedException, cip.ErrCodeUserNotFoundException, cip.ErrCodePasswordResetRequiredException:
				return Claims{}, ErrInvalidToken
			}
		}
		return Claims{}, fmt.Errorf("failed to validate token: %w", err)
	}

	claims := Claims{Subject: aws.StringValue(out.Username)}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(accessToken, jwt.MapClaims{})
	if err == nil {
		if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
			claims.ExpiresAt = exp.Time
		}
	}

	return claims, nil
}

func (c *cognitoClient) RevokeAll(ctx context.Context, employeeID string) error {
	_, err := c.client.AdminUserGlobalSignOutWithContext(ctx, &cip.AdminUserGlobalSignOutInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(employeeID),
	})
	if err != nil {
		return fmt.Errorf("failed to revoke sessions for %s: %w", employeeID, err)
	}

	return nil
}

func (c *cognitoClient) SetSubjectEnabled(ctx context.Context, employeeID string, enabled bool) error {
	var err error
	if enabled {
		_, err = c.client.AdminEnableUserWithContext(ctx, &cip.AdminEnableUserInput{
			UserPoolId: aws.String(c.userPoolID),
			Username:   aws.String(employeeID),
		})
	} else {
		_, err = c.client.AdminDisableUserWithContext(ctx, &cip.AdminDisableUserInput{
			UserPoolId: aws.String(c.userPoolID),
			Username:   aws.String(employeeID),
		})
	}
	if err != nil {
		return fmt.Errorf("failed to set enabled=%t for %s: %w", enabled, employeeID, err)
	}

	return nil
}

func oneTimePassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate one-time credential: %w", err)
	}

	// Suffix satisfies pool complexity rules regardless of the random part.
	return base64.RawURLEncoding.EncodeToString(buf) + "aA1!", nil
}
