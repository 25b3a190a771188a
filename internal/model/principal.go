package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of actor roles. The zero value is not a valid role.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleTechnician
	RoleClient
)

var roleNames = map[Role]string{
	RoleAdmin:      "admin",
	RoleTechnician: "technician",
	RoleClient:     "client",
}

// ParseRole accepts the stored role strings. "user" is the legacy name of client.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "technician":
		return RoleTechnician, nil
	case "client", "user":
		return RoleClient, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", r)
	}
	return r.String(), nil
}

func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}

// Principal is the authenticated actor behind a command.
type Principal struct {
	UserID uint64
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsTechnician() bool {
	return p.Role == RoleTechnician
}

func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}
