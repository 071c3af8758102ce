package models

import (
	"fmt"
	"strings"
)

// Role is a staff level. Roles form a total order; compare them with AtLeast
// and Below instead of their numeric values.
type Role uint8

const (
	RoleUser        Role = 1
	RoleFactChecker Role = 2
	RoleModerator   Role = 3
	RoleAdmin       Role = 4
)

// roleOrder lists every role from least to most privileged.
var roleOrder = []Role{RoleUser, RoleFactChecker, RoleModerator, RoleAdmin}

var roleNames = map[Role]string{
	RoleUser:        "user",
	RoleFactChecker: "fact_checker",
	RoleModerator:   "moderator",
	RoleAdmin:       "admin",
}

// Roles returns the closed set of roles in ascending order.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

func (r Role) rank() int {
	for i, v := range roleOrder {
		if v == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	return r.rank() >= 0
}

// AtLeast reports whether r is min or more privileged. Unknown roles never qualify.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && min.Valid() && r.rank() >= min.rank()
}

// Below reports whether r is strictly less privileged than other.
func (r Role) Below(other Role) bool {
	return r.Valid() && other.Valid() && r.rank() < other.rank()
}

// IsStaff reports whether r is FactChecker or above.
func (r Role) IsStaff() bool {
	return r.AtLeast(RoleFactChecker)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole accepts the role names used in the roles table.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, NewValidationError(fmt.Sprintf("unknown role %q", s))
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
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

// RoleRecord is a row of the roles lookup table.
type RoleRecord struct {
	RoleID Role   `gorm:"column:role_id;primaryKey;autoIncrement:false" json:"role_id"`
	Name   string `gorm:"uniqueIndex;not null;size:32" json:"name"`
}

// TableName returns the database table name for RoleRecord.
func (RoleRecord) TableName() string {
	return "roles"
}
