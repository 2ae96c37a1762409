package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser is an operator account for the admin API. Accounts are seeded out
// of band; there is no self-service registration.
type AdminUser struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RefreshToken is a long-lived token exchangeable for a fresh access token.
type RefreshToken struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AdminUserID uuid.UUID `json:"admin_user_id" db:"admin_user_id"`
	Token       string    `json:"token" db:"token"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
	Revoked     bool      `json:"revoked" db:"revoked"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
