package identity

import "strings"

// ResolveRole derives the caller's role from signup metadata, falling back
// to a substring match against the account email. Metadata always takes
// precedence; the email heuristic only applies when no role was recorded
// at signup.
//
// The substring fallback is a legacy defect kept for compatibility with
// accounts created before roles were written to metadata: a patient who
// registers as admin.joe@mail.com is silently granted the admin tier by
// pages that rely on it. New accounts always carry a metadata role.
func ResolveRole(metadataRole, email string) Role {
	if r := strings.ToLower(strings.TrimSpace(metadataRole)); r != "" {
		return Role(r)
	}
	email = strings.ToLower(email)
	switch {
	case strings.Contains(email, "admin"):
		return RoleAdmin
	case strings.Contains(email, "doctor"):
		return RoleDoctor
	default:
		return RoleUser
	}
}

// ResolveUserRole derives the role for a provider user record.
func ResolveUserRole(u *User) Role {
	if u == nil {
		return RoleUser
	}
	return ResolveRole(u.MetadataRole(), u.Email)
}
