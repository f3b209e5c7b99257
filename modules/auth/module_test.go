package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

func TestAuthModule_ValidateToken(t *testing.T) {
	m := NewModule(testJWTConfig(), &mockLogger{})
	ctx := context.Background()

	guest, err := m.handleIssueGuestToken(ctx, GuestTokenRequest{Username: "alice"}, nil)
	if err != nil {
		t.Fatalf("handleIssueGuestToken() error = %v", err)
	}

	expired := NewJWTManager(testJWTConfig())
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.GenerateToken("user-1", "bob")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name      string
		token     string
		wantValid bool
		wantError string
	}{
		{"issued guest token", guest.Token, true, ""},
		{"expired token", stale, false, "token expired"},
		{"garbage", "not-a-jwt", false, "invalid token"},
		{"empty", "", false, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: tt.token}, nil)
			if err != nil {
				t.Fatalf("handleValidateToken() error = %v", err)
			}
			if resp.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", resp.Valid, tt.wantValid)
			}
			if resp.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantError)
			}
			if tt.wantValid && (resp.UserID != guest.UserID || resp.Username != "alice") {
				t.Errorf("identity = %s/%s, want %s/alice", resp.UserID, resp.Username, guest.UserID)
			}
		})
	}
}

func TestAuthModule_IssueGuestTokenRejectsUsername(t *testing.T) {
	m := NewModule(testJWTConfig(), &mockLogger{})

	resp, err := m.handleIssueGuestToken(context.Background(), GuestTokenRequest{Username: "bad name"}, nil)
	if err != nil {
		t.Fatalf("handleIssueGuestToken() error = %v", err)
	}
	if resp.Error == "" || resp.Token != "" {
		t.Errorf("response = %+v, want a validation error and no token", resp)
	}
}
