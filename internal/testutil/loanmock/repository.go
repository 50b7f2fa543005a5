package loanmock

import (
	"context"

	domain "loan-service/internal/domain/loan"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Getters without a func fail with context.Canceled; writers default to success.
type Repo struct {
	GetAllFn        func(ctx context.Context) ([]domain.Loan, error)
	GetByIDFn       func(ctx context.Context, id uint64) (*domain.Loan, error)
	CreateFn        func(ctx context.Context, l *domain.Loan) error
	UpdatePaymentFn func(ctx context.Context, l *domain.Loan) error

	CreateCalls        int
	UpdatePaymentCalls int
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) GetAll(ctx context.Context) ([]domain.Loan, error) {
	if m.GetAllFn != nil {
		return m.GetAllFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	m.CreateCalls++
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) UpdatePayment(ctx context.Context, l *domain.Loan) error {
	m.UpdatePaymentCalls++
	if m.UpdatePaymentFn != nil {
		return m.UpdatePaymentFn(ctx, l)
	}
	return nil
}
