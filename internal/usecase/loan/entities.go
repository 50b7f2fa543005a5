package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"loan-service/internal/domain/loan"
)

// CreateLoanRequest carries current_balance for compatibility; the created loan
// always starts with a balance equal to amount.
type CreateLoanRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"money,decimal_gt=0,dec2"`
	CurrentBalance decimal.Decimal `json:"current_balance" validate:"money,decimal_gt=0,dec2"`
	ApplicantName  string          `json:"applicant_name" validate:"required,notblank,max=150"`
}

type CreateLoanResponse struct {
	Success bool   `json:"success"`
	ID      uint64 `json:"id,omitempty"`
}

type GetAllLoansResponse struct {
	Loans []LoanDTO `json:"loans"`
}

type GetLoanRequest struct {
	ID uint64 `json:"id" validate:"required"`
}

// GetLoanResponse wraps a blank loan when Found is false.
type GetLoanResponse struct {
	Loan  LoanDTO `json:"loan"`
	Found bool    `json:"found"`
}

type PayLoanRequest struct {
	ID     uint64          `json:"id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"money,decimal_gt=0,dec2"`
}

type PayOutcome string

const (
	OutcomePaid              PayOutcome = "paid"
	OutcomePaymentApplied    PayOutcome = "payment_applied"
	OutcomeNotFound          PayOutcome = "not_found"
	OutcomeExceedsBalance    PayOutcome = "exceeds_balance"
	OutcomePersistenceFailed PayOutcome = "persistence_failed"
)

type PayLoanResponse struct {
	Success bool       `json:"success"`
	Outcome PayOutcome `json:"outcome"`
}

// LoanDTO renders current_balance as null for the blank loan of a not-found lookup.
type LoanDTO struct {
	ID             uint64              `json:"id"`
	ApplicantName  string              `json:"applicant_name"`
	Amount         decimal.Decimal     `json:"amount"`
	CurrentBalance decimal.NullDecimal `json:"current_balance"`
	Status         loan.Status         `json:"status"`
	StatusName     string              `json:"status_name"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toDTO(l *loan.Loan) LoanDTO {
	return LoanDTO{
		ID:             l.ID,
		ApplicantName:  l.ApplicantName,
		Amount:         l.Amount,
		CurrentBalance: decimal.NewNullDecimal(l.CurrentBalance),
		Status:         l.Status,
		StatusName:     l.Status.String(),
		CreatedAt:      l.CreatedAt,
	}
}

func blankDTO() LoanDTO {
	return LoanDTO{StatusName: loan.StatusNone.String()}
}
