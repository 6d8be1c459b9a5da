// Package token issues and validates the bearer tokens used by the
// coordinator and admin surfaces. Tokens are opaque to clients beyond
// "valid until expiry".
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Dibyendu78/Brain-O-Math/internal/platform/middleware"
	dErrors "github.com/Dibyendu78/Brain-O-Math/pkg/domainerrors"
)

// Claims is the JWT payload for coordinator and admin tokens.
type Claims struct {
	CoordinatorID  string `json:"coordinator_id,omitempty"`
	Email          string `json:"email"`
	SchoolName     string `json:"school_name,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

const (
	roleCoordinator = "coordinator"
	roleAdmin       = "admin"
)

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     "brain-o-math",
		ttl:        ttl,
	}
}

// IssueCoordinatorToken signs a token carrying the coordinator identity.
func (s *Service) IssueCoordinatorToken(coordinatorID, email, schoolName, registrationID string) (string, error) {
	return s.sign(Claims{
		CoordinatorID:  coordinatorID,
		Email:          email,
		SchoolName:     schoolName,
		RegistrationID: registrationID,
		Role:           roleCoordinator,
	})
}

// IssueAdminToken signs a token carrying the admin role.
func (s *Service) IssueAdminToken(email string) (string, error) {
	return s.sign(Claims{
		Email: email,
		Role:  roleAdmin,
	})
}

func (s *Service) sign(claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token, returning the identity
// claims the middleware stores in context.
func (s *Service) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.Claims{
		CoordinatorID:  claims.CoordinatorID,
		Email:          claims.Email,
		SchoolName:     claims.SchoolName,
		RegistrationID: claims.RegistrationID,
		Admin:          claims.Role == roleAdmin,
	}, nil
}
