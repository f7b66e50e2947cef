package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies which identity context a token belongs to
type Role string

const (
	// RoleNone marks an unauthenticated call
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ErrUnknownRole is returned when a role string or value is not user or admin
var ErrUnknownRole = errors.New("unknown role")

// Roles lists the roles that own a credential, in a stable order
var Roles = []Role{RoleUser, RoleAdmin}

// ParseRole parses "user" or "admin" (case-insensitive)
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is a role that can hold a credential
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

func checkRole(r Role) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return nil
}
