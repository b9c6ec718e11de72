package model

import "time"

// Role is the account type stored on a user profile.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// UserProfile is the application-level record paired 1:1 with an auth
// identity.  ID is the identity's id.
//
// Fields:
//  ID        – auth identity id (uuid).
//  FullName  – display name.
//  Phone     – contact phone.
//  Email     – contact email.
//  Role      – customer, owner or admin.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type UserProfile struct {
	ID        string    `json:"id"`         // user_profiles.id
	FullName  string    `json:"full_name"`  // user_profiles.full_name
	Phone     string    `json:"phone"`      // user_profiles.phone
	Email     string    `json:"email"`      // user_profiles.email
	Role      Role      `json:"role"`       // user_profiles.role
	CreatedAt time.Time `json:"created_at"` // user_profiles.created_at
	UpdatedAt time.Time `json:"updated_at"` // user_profiles.updated_at
}

// ProfileFields are the profile values supplied at sign-up.  An empty
// Role means customer.
type ProfileFields struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Role     Role   `json:"role,omitempty"`
}

// ProfileUpdate is a partial update of a profile.  Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Identity is an auth subsystem account.  Passwords never leave the
// backend; only the hash is stored.
//
// Fields:
//  ID           – uuid primary key, shared with user_profiles.id.
//  Email        – unique, normalized to lower case.
//  PasswordHash – bcrypt hash.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Identity struct {
	ID           string    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
