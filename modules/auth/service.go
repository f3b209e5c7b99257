package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
)

// ErrInvalidUsername is returned when a requested username is unusable.
var ErrInvalidUsername = errors.New("username must be 1-32 letters, digits, '_', '-' or '.'")

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// Guest is an issued guest identity with its token.
type Guest struct {
	Identity  domain.Identity
	Token     string
	ExpiresIn int64
}

// AuthService issues and validates chat identities.
type AuthService struct {
	jwt *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwt *JWTManager) *AuthService {
	return &AuthService{jwt: jwt}
}

// IssueGuest creates a new guest identity with a random user id.
func (s *AuthService) IssueGuest(_ context.Context, username string) (*Guest, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	identity := domain.Identity{ID: uuid.New().String(), Username: username}
	token, err := s.jwt.GenerateToken(identity.ID, identity.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Guest{
		Identity:  identity,
		Token:     token,
		ExpiresIn: s.jwt.TokenDuration(),
	}, nil
}

// ResolveIdentity maps a bearer token to the identity it was issued for.
func (s *AuthService) ResolveIdentity(_ context.Context, token string) (domain.Identity, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{ID: claims.UserID, Username: claims.Username}, nil
}
