package models

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionFree    SubscriptionStatus = "free"
	SubscriptionPremium SubscriptionStatus = "premium"
)

type User struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	FullName           string             `json:"full_name"`
	Password           string             `json:"-"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (u User) IsPremium() bool {
	return u.SubscriptionStatus == SubscriptionPremium
}

// FirstName returns the first word of the user's full name, or the email's
// local part when no name is set.
func (u User) FirstName() string {
	for _, p := range strings.Split(strings.TrimSpace(u.FullName), " ") {
		if p != "" {
			return p
		}
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
