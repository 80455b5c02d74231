package users

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RoleType represents a dashboard role as reported by the backend
type RoleType string

const (
	RoleAdmin   RoleType = "admin"   // School administrator, full dashboard access
	RoleTeacher RoleType = "teacher" // Teacher, calendar and messaging access
	RoleStaff   RoleType = "staff"   // Non-teaching staff
	RoleUnknown RoleType = ""        // Identity came from the provider without backend role data
)

// Identity is the authenticated user record exposed to the rest of the application.
// It is sourced either from the federated provider or from the backend.
type Identity struct {
	ID          string   `json:"id,omitempty"`          // Unique identifier (provider subject or backend user id)
	DisplayName string   `json:"displayName,omitempty"` // Human readable name
	Email       string   `json:"email,omitempty"`       // User's email address
	Role        RoleType `json:"role,omitempty"`        // Dashboard role, empty when unknown
}

// Validate checks the required fields of an identity.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" && strings.TrimSpace(i.Email) == "" {
		return fmt.Errorf("identity requires an id or an email")
	}
	return nil
}

// HasRole reports whether the identity carries the given role
func (i Identity) HasRole(role RoleType) bool {
	return role != RoleUnknown && i.Role == role
}

// IsAdmin returns true if the identity has administrator privileges
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// Name returns the display name, falling back to the email address.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Marshal serializes the identity into the snapshot format kept in durable storage.
func Marshal(i Identity) (string, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("[users.Marshal] %w", err)
	}
	return string(b), nil
}

// Unmarshal parses a stored identity snapshot. The backend and the provider
// use different field names for the same data, so both spellings are accepted.
func Unmarshal(snapshot string) (Identity, error) {
	var raw struct {
		Identity
		UID      string `json:"uid"`
		Name     string `json:"name"`
		UserID   string `json:"_id"`
		UserRole string `json:"userRole"`
	}
	if err := json.Unmarshal([]byte(snapshot), &raw); err != nil {
		return Identity{}, fmt.Errorf("[users.Unmarshal] %w", err)
	}

	id := raw.Identity
	if id.ID == "" {
		id.ID = firstNonEmpty(raw.UserID, raw.UID)
	}
	if id.DisplayName == "" {
		id.DisplayName = raw.Name
	}
	if id.Role == RoleUnknown {
		id.Role = RoleType(raw.UserRole)
	}
	return id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
