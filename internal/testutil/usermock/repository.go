package usermock

import (
	"context"

	domain "loan-service/internal/domain/user"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn     func(ctx context.Context, u *domain.User) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, u *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}

func (m *Repo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, domain.ErrNotFound
}

// InMemory returns a Repo backed by a map keyed by email.
func InMemory() *Repo {
	byEmail := map[string]*domain.User{}
	return &Repo{
		CreateFn: func(_ context.Context, u *domain.User) error {
			if _, ok := byEmail[u.Email]; ok {
				return domain.ErrDuplicateEmail
			}
			cp := *u
			byEmail[u.Email] = &cp
			return nil
		},
		GetByEmailFn: func(_ context.Context, email string) (*domain.User, error) {
			u, ok := byEmail[email]
			if !ok {
				return nil, domain.ErrNotFound
			}
			cp := *u
			return &cp, nil
		},
	}
}
