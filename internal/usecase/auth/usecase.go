package auth

import (
	"context"
	"fmt"
	"strings"

	"loan-service/internal/apperror"
	"loan-service/internal/domain/user"
	"loan-service/internal/logger"
	"loan-service/internal/validation"
)

// IdentityProvider creates and authenticates accounts. CreateUser reports a taken
// email as an *apperror.BusinessError; Authenticate reports bad credentials as
// apperror.ErrUnauthorized.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password string) (*user.AuthenticatedUser, error)
	Authenticate(ctx context.Context, email, password string) (*user.AuthenticatedUser, error)
}

type TokenIssuer interface {
	Issue(u user.AuthenticatedUser) (string, error)
}

type Usecase struct {
	identity IdentityProvider
	tokens   TokenIssuer
	validate *validation.Validator
}

func NewUsecase(identity IdentityProvider, tokens TokenIssuer, v *validation.Validator) *Usecase {
	return &Usecase{identity: identity, tokens: tokens, validate: v}
}

func (u *Usecase) CreateUser(ctx context.Context, in CredentialsRequest) (*TokenResponse, error) {
	in.Email = strings.TrimSpace(in.Email)
	logger.Info("create user started", logger.Fields{"email": in.Email})

	if err := u.validate.Struct(in); err != nil {
		logger.Warn("create user validation failed", validationFields(err))
		return nil, err
	}

	au, err := u.identity.CreateUser(ctx, in.Email, in.Password)
	if err != nil {
		logger.Warn("create user rejected", logger.Fields{"email": in.Email, "error": err.Error()})
		return nil, err
	}

	token, err := u.tokens.Issue(*au)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	logger.Info("create user finished", logger.Fields{"user_id": au.ID})
	return &TokenResponse{Token: token}, nil
}

func (u *Usecase) Login(ctx context.Context, in CredentialsRequest) (*TokenResponse, error) {
	in.Email = strings.TrimSpace(in.Email)
	logger.Info("login started", logger.Fields{"email": in.Email})

	if err := u.validate.Struct(in); err != nil {
		logger.Warn("login validation failed", validationFields(err))
		return nil, err
	}

	au, err := u.identity.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		logger.Warn("login rejected", logger.Fields{"email": in.Email, "error": err.Error()})
		return nil, err
	}

	token, err := u.tokens.Issue(*au)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	logger.Info("login finished", logger.Fields{"user_id": au.ID})
	return &TokenResponse{Token: token}, nil
}

func validationFields(err error) logger.Fields {
	if ve, ok := apperror.AsValidation(err); ok {
		return logger.Fields{"errors": ve.Errors()}
	}
	return logger.Fields{"error": err.Error()}
}
