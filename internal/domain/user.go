package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role separates the admin console from the founder portal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFounder Role = "founder"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleFounder
}

// ID is a backend identifier. The backend has emitted both numeric and
// string ids over time, so either form decodes into the same string.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// User is the authenticated user record persisted next to the session token.
type User struct {
	ID          ID     `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Role        Role   `json:"role"`
	CompanyName string `json:"company_name,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// DisplayName picks the friendliest label available.
func (u User) DisplayName() string {
	for _, candidate := range []string{u.Name, u.CompanyName, u.Email} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return string(u.ID)
}

// IsAdmin reports whether the user can reach the admin console.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
