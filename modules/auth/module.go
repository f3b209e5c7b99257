package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
)

// AuthModule provides chat identities.
type AuthModule struct {
	service *AuthService
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(config JWTConfig, logger types.Logger) *AuthModule {
	return &AuthModule{
		service: NewAuthService(NewJWTManager(config)),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start starts the module.
func (m *AuthModule) Start(_ context.Context) error {
	m.logger.Info("Auth module started", "token_ttl_seconds", m.service.jwt.TokenDuration())
	return nil
}

// Stop stops the module.
func (m *AuthModule) Stop(_ context.Context) error {
	m.logger.Info("Auth module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"issuer": m.service.jwt.config.Issuer,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceIssueGuestToken,
		json.Unmarshal,
		json.Marshal,
		m.handleIssueGuestToken,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceIssueGuestToken, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceValidateToken,
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceValidateToken, err)
	}

	m.logger.Info("Registered services",
		"services", []string{ServiceIssueGuestToken, ServiceValidateToken})
	return nil
}

// ResolveIdentity implements the chat session's identity resolver.
func (m *AuthModule) ResolveIdentity(ctx context.Context, token string) (domain.Identity, error) {
	return m.service.ResolveIdentity(ctx, token)
}

// handleIssueGuestToken handles guest token requests.
// Validation failures are reported in the response so callers can tell them apart
// from transport errors.
func (m *AuthModule) handleIssueGuestToken(ctx context.Context, req GuestTokenRequest, _ *mono.Msg) (GuestTokenResponse, error) {
	guest, err := m.service.IssueGuest(ctx, req.Username)
	if errors.Is(err, ErrInvalidUsername) {
		return GuestTokenResponse{Error: err.Error()}, nil
	}
	if err != nil {
		return GuestTokenResponse{}, err
	}

	m.logger.Debug("Issued guest token", "user", guest.Identity.ID, "username", guest.Identity.Username)
	return GuestTokenResponse{
		Token:     guest.Token,
		UserID:    guest.Identity.ID,
		Username:  guest.Identity.Username,
		ExpiresIn: guest.ExpiresIn,
	}, nil
}

// handleValidateToken handles token validation.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	identity, err := m.service.ResolveIdentity(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		return ValidateTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   identity.ID,
		Username: identity.Username,
	}, nil
}
