package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"loan-service/internal/apperror"
	"loan-service/internal/domain/user"
	"loan-service/pkg/id"
)

const minPasswordLength = 6

// Service is the identity provider backed by the users table.
type Service struct {
	users user.Repository
	cost  int
}

// NewService hashes with bcrypt.DefaultCost when cost is not positive.
func NewService(users user.Repository, cost int) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, cost: cost}
}

func (s *Service) CreateUser(ctx context.Context, email, password string) (*user.AuthenticatedUser, error) {
	if err := checkPassword(password); err != nil {
		return nil, apperror.NewBusinessError(apperror.CodeWeakPassword, err.Error(), nil)
	}
	email = normalizeEmail(email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, emailInUse(nil)
	case !errors.Is(err, user.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{ID: id.NewID32(), Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, emailInUse(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	au := u.Authenticated()
	return &au, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.AuthenticatedUser, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, user.ErrNotFound):
		return nil, apperror.Unauthorized("Invalid Credentials")
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Unauthorized("Invalid Credentials")
	}

	au := u.Authenticated()
	return &au, nil
}

func emailInUse(cause error) error {
	return apperror.NewBusinessError(apperror.CodeEmailInUse, "Email is in use already", cause)
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func checkPassword(p string) error {
	if len(p) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	for _, r := range p {
		if unicode.IsDigit(r) {
			return nil
		}
	}
	return errors.New("password must contain at least one digit")
}
