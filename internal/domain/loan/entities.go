package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status int8

const (
	StatusNone   Status = 0
	StatusActive Status = 1
	StatusPaid   Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaid:
		return "paid"
	default:
		return "none"
	}
}

var (
	ErrNotFound         = errors.New("loan not found")
	ErrExceedsBalance   = errors.New("amount should not be greater than current balance")
	ErrAlreadySettled   = errors.New("loan is already settled")
	ErrConcurrentUpdate = errors.New("loan was modified concurrently")
)

// Loan is both the domain record and its gorm mapping.
// Status == StatusPaid exactly when CurrentBalance is zero.
type Loan struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"id"`
	ApplicantName  string          `gorm:"size:150;not null" json:"applicant_name"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"current_balance"`
	Status         Status          `gorm:"type:smallint;not null;index:idx_loans_status" json:"status"`
	Version        uint64          `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// New returns an active loan whose balance equals the principal.
func New(applicantName string, amount decimal.Decimal) *Loan {
	return &Loan{
		ApplicantName:  applicantName,
		Amount:         amount,
		CurrentBalance: amount,
		Status:         StatusActive,
	}
}

func (l *Loan) IsSettled() bool { return l.Status == StatusPaid }

// ApplyPayment subtracts amount from the balance and settles the loan when the
// balance reaches exactly zero. The loan is left untouched when an error is returned.
func (l *Loan) ApplyPayment(amount decimal.Decimal) error {
	if l.IsSettled() {
		return ErrAlreadySettled
	}
	if amount.GreaterThan(l.CurrentBalance) {
		return ErrExceedsBalance
	}
	l.CurrentBalance = l.CurrentBalance.Sub(amount)
	if l.CurrentBalance.IsZero() {
		l.Status = StatusPaid
	}
	return nil
}
