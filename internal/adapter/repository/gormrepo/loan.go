package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	loanDomain "loan-service/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

var _ loanDomain.Repository = (*LoanRepository)(nil)

func (r *LoanRepository) GetAll(ctx context.Context) ([]loanDomain.Loan, error) {
	out := []loanDomain.Loan{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// UpdatePayment is a compare-and-swap on the version column so that two
// payments read from the same snapshot cannot both land.
func (r *LoanRepository) UpdatePayment(ctx context.Context, l *loanDomain.Loan) error {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Updates(map[string]any{
			"current_balance": l.CurrentBalance,
			"status":          l.Status,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("update payment for loan %d: %w", l.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrConcurrentUpdate
	}
	l.Version++
	return nil
}
