package identity

import "time"

// Role is the coarse access tier gating which pages and actions are
// available to an authenticated caller.
type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// User is the account record held by the hosted identity provider.
type User struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"user_metadata,omitempty"`
}

// Session is a bearer session issued by the identity provider. The role
// is derived, not stored authoritatively; see ResolveRole.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MetadataRole returns the role stored in signup metadata, if any.
func (u *User) MetadataRole() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	return u.Metadata["role"]
}
