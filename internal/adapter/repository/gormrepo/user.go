package gormrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	userDomain "loan-service/internal/domain/user"
)

// UserRepository needs a *gorm.DB opened with TranslateError so that unique
// violations surface as gorm.ErrDuplicatedKey.
type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

var _ userDomain.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *userDomain.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return userDomain.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	var out userDomain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, userDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
