package dto

import "github.com/spec-kit/tr4ction-console/internal/domain"

// RegisterRequest is the public sign-up payload. Role is accepted but
// downgraded to founder.
type RegisterRequest struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Name        string      `json:"name"`
	CompanyName string      `json:"company_name"`
	Role        domain.Role `json:"role"`
}

// TokenResponse is returned by POST /auth/login.
type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}
