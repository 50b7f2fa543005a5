package user

import "context"

type Repository interface {
	// Create fails with ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, u *User) error
	// GetByEmail returns ErrNotFound when no row matches.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
