package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	IssueGuestToken(ctx context.Context, username string) (*GuestTokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*ValidateTokenResponse, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// IssueGuestToken requests a token for a new guest identity.
// A rejected username is returned as ErrInvalidUsername.
func (a *AuthAdapter) IssueGuestToken(ctx context.Context, username string) (*GuestTokenResponse, error) {
	req := GuestTokenRequest{Username: username}
	var resp GuestTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceIssueGuestToken,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceIssueGuestToken, err)
	}

	if resp.Error != "" {
		return nil, ErrInvalidUsername
	}
	if resp.Token == "" {
		return nil, errors.New("empty token in response")
	}

	return &resp, nil
}

// ValidateToken checks a bearer token. A rejected token is returned as
// ErrInvalidToken wrapping the reason.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*ValidateTokenResponse, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceValidateToken,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceValidateToken, err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, resp.Error)
	}

	return &resp, nil
}
