package model

import "time"

// Role values stored in users.role and carried in the JWT "role" claim.
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
)

// User is an account that can authenticate against the API.  Buyers own
// cart lines and orders; sellers own shops and manage incoming orders.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique login email.
//	PasswordHash – bcrypt hash of the password.
//	Role         – BUYER or SELLER.
//	CreatedAt    – creation timestamp.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}
