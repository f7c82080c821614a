package users

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abase/abase-manager/internal/utils"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// RoleType is a console staff role. The set is fixed by the backend.
type RoleType string

const (
	RoleAdmin      RoleType = "ADMIN"      // Full console access
	RoleAnalista   RoleType = "ANALISTA"   // Reviews submitted cadastros
	RoleTesouraria RoleType = "TESOURARIA" // Payments and contracts
	RoleAgente     RoleType = "AGENTE"     // Registers associados in the field
	RoleAssociado  RoleType = "ASSOCIADO"  // Member self-service
)

// DefaultRole is the primary role assumed when the API lists none.
const DefaultRole = RoleAgente

func (r RoleType) Valid() bool {
	switch r {
	case RoleAdmin, RoleAnalista, RoleTesouraria, RoleAgente, RoleAssociado:
		return true
	}
	return false
}

// Profile is the authenticated user as reported by the auth collaborator.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Active    bool       `json:"is_active"`
	Roles     []RoleType `json:"roles"`
	Role      RoleType   `json:"perfil"` // Primary role (first listed)
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// profilePayload is the loose wire shape; ids can be numeric and the name can
// arrive as either full_name or name.
type profilePayload struct {
	ID        any    `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Name      string `json:"name"`
	Active    *bool  `json:"is_active"`
	Roles     []any  `json:"roles"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UnmarshalJSON maps the API user payload, filling the same defaults the
// console applies: first role is primary (AGENTE when none), active unless
// stated otherwise, timestamps default to now.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw profilePayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("[users.Profile] decode: %w", err)
	}

	now := NowTimeFunc().UTC()
	*p = Profile{
		Email:     raw.Email,
		FullName:  raw.FullName,
		Active:    true,
		Roles:     make([]RoleType, 0, len(raw.Roles)),
		CreatedAt: parseTime(raw.CreatedAt, now),
		UpdatedAt: parseTime(raw.UpdatedAt, now),
	}
	if raw.ID != nil {
		switch id := raw.ID.(type) {
		case float64:
			p.ID = fmt.Sprintf("%.0f", id)
		default:
			p.ID = fmt.Sprint(id)
		}
	}
	if p.FullName == "" {
		p.FullName = raw.Name
	}
	if raw.Active != nil {
		p.Active = *raw.Active
	}
	for _, r := range utils.NonEmptyStrings(raw.Roles) {
		p.Roles = append(p.Roles, RoleType(r))
	}
	p.Role = DefaultRole
	if len(p.Roles) > 0 {
		p.Role = p.Roles[0]
	}
	return nil
}

func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return t
}

// DisplayName is the name shown in the console, falling back to the email.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// HasRole checks if the user holds role, primary or not
func (p *Profile) HasRole(role RoleType) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return p.Role == role
}

// IsAdmin returns true if the user has admin privileges
func (p *Profile) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (p *Profile) HasAnyRole(roles ...RoleType) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}
