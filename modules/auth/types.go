package auth

// Service names registered by the auth module.
const (
	ServiceIssueGuestToken = "issue-guest-token"
	ServiceValidateToken   = "validate-token"
)

// GuestTokenRequest asks for a token bound to a fresh guest identity.
type GuestTokenRequest struct {
	Username string `json:"username"`
}

// GuestTokenResponse carries the issued token.
type GuestTokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ExpiresIn int64  `json:"expires_in"`
	Error     string `json:"error,omitempty"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}
