package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is the authorization class of a caller. The same type is stored in
// the users table, carried in token claims and returned by the API.
type UserRole string

const (
	RoleInvestigator UserRole = "investigator"
	RoleAdmin        UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleInvestigator || r == RoleAdmin
}

func (r UserRole) String() string { return string(r) }

// ParseRole converts a raw string into a UserRole.
func ParseRole(s string) (UserRole, error) {
	r := UserRole(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Username     string    `gorm:"column:username;size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:hashed_password;not null" json:"-"`
	Role         UserRole  `gorm:"column:role;size:32;not null;default:investigator" json:"role"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleInvestigator
	}
	return nil
}

// HasRole reports whether the user holds any of roles.
func (u *User) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
