package model

import "time"

// Role is what a user may do in the portal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDriver  Role = "driver"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDriver, RoleStudent:
		return true
	}
	return false
}

// User is an account of the transport portal.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`

	// Subscribed marks a paying rider ("abonado"). SubscriptionExpiresAt is
	// optional; a zero value never expires.
	Subscribed            bool      `json:"subscribed"`
	SubscriptionExpiresAt time.Time `json:"subscriptionExpiresAt,omitzero"`
}

// Abonado reports whether the user holds a subscription valid at now.
func (u *User) Abonado(now time.Time) bool {
	if !u.Subscribed {
		return false
	}
	return u.SubscriptionExpiresAt.IsZero() || now.Before(u.SubscriptionExpiresAt)
}

// Session binds an opaque cookie token to a user.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
