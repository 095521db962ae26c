package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Login    string `json:"login" form:"login" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RequestMeta describes where a request came from.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          int64    `json:"id"`
	Login       string   `json:"login"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID int64    `json:"user_id"`
	Login  string   `json:"login"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasAnyRole reports whether the token grants one of roles.
func (c *JWTClaims) HasAnyRole(roles ...UserRole) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == string(want) {
				return true
			}
		}
	}
	return false
}
