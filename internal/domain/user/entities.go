package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type User struct {
	ID           string    `gorm:"primaryKey;type:char(32)"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `gorm:"size:255;not null"`
	Roles        string    `gorm:"size:255;not null;default:''"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) RoleList() []string {
	out := []string{}
	for _, r := range strings.Split(u.Roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// AuthenticatedUser is what the identity provider hands to the token issuer.
type AuthenticatedUser struct {
	ID    string   `json:"user_id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (u *User) Authenticated() AuthenticatedUser {
	return AuthenticatedUser{ID: u.ID, Email: u.Email, Roles: u.RoleList()}
}
