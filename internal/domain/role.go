package domain

import "fmt"

// Role represents what a connected client is allowed to do
type Role string

const (
	RoleOperator    Role = "operator"
	RoleParticipant Role = "participant"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsOperator returns true if this role can drive the round
func (r Role) IsOperator() bool {
	return r == RoleOperator
}

// ParseRole validates a role name coming from a client
func ParseRole(name string) (Role, error) {
	switch Role(name) {
	case RoleOperator, RoleParticipant:
		return Role(name), nil
	case "":
		return RoleParticipant, nil
	default:
		return "", fmt.Errorf("unknown role %q", name)
	}
}
