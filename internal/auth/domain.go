package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// ApprovalApproved marks a user allowed to sign in.
const ApprovalApproved = "approved"

// User represents an account able to call the API.
type User struct {
	ID             int64
	Email          string
	PasswordHash   string
	Designation    string
	ApprovalStatus string
	IsActive       bool
	CreatedAt      time.Time
}

// Principal converts the user into the request principal.
func (u User) Principal() shared.Principal {
	return shared.Principal{ID: u.ID, Designation: u.Designation, ApprovalStatus: u.ApprovalStatus}
}

// Claims is the bearer token payload.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Session is returned by a successful login.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Principal shared.Principal `json:"principal"`
}
