package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loan-service/internal/apperror"
	"loan-service/internal/domain/loan"
	"loan-service/internal/logger"
	"loan-service/internal/validation"
)

type Usecase struct {
	repo     loan.Repository
	validate *validation.Validator
}

func NewUsecase(r loan.Repository, v *validation.Validator) *Usecase {
	return &Usecase{repo: r, validate: v}
}

// Create reports a repository failure as Success=false, not as an error.
func (u *Usecase) Create(ctx context.Context, in CreateLoanRequest) (*CreateLoanResponse, error) {
	logger.Info("create loan started", logger.Fields{"applicant_name": in.ApplicantName})

	if err := u.validate.Struct(in); err != nil {
		logger.Warn("create loan validation failed", validationFields(err))
		return nil, err
	}

	l := loan.New(strings.TrimSpace(in.ApplicantName), in.Amount)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, l); err != nil {
		logger.Error("create loan failed", err, logger.Fields{"applicant_name": l.ApplicantName})
		return &CreateLoanResponse{Success: false}, nil
	}

	logger.Info("create loan finished", logger.Fields{"loan_id": l.ID, "amount": l.Amount.String()})
	return &CreateLoanResponse{Success: true, ID: l.ID}, nil
}

func (u *Usecase) GetAll(ctx context.Context) (*GetAllLoansResponse, error) {
	logger.Info("get all loans started", nil)

	loans, err := u.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all loans: %w", err)
	}

	out := make([]LoanDTO, 0, len(loans))
	for i := range loans {
		out = append(out, toDTO(&loans[i]))
	}
	if len(out) == 0 {
		logger.Warn("empty loans", nil)
	}

	logger.Info("get all loans finished", logger.Fields{"count": len(out)})
	return &GetAllLoansResponse{Loans: out}, nil
}

func (u *Usecase) GetByID(ctx context.Context, in GetLoanRequest) (*GetLoanResponse, error) {
	logger.Info("get loan started", logger.Fields{"loan_id": in.ID})

	if err := u.validate.Struct(in); err != nil {
		logger.Warn("get loan validation failed", validationFields(err))
		return nil, err
	}

	l, err := u.repo.GetByID(ctx, in.ID)
	switch {
	case errors.Is(err, loan.ErrNotFound):
		logger.Warn("loan not found", logger.Fields{"loan_id": in.ID})
		return &GetLoanResponse{Loan: blankDTO(), Found: false}, nil
	case err != nil:
		return nil, fmt.Errorf("get loan %d: %w", in.ID, err)
	}

	logger.Info("get loan finished", logger.Fields{"loan_id": l.ID})
	return &GetLoanResponse{Loan: toDTO(l), Found: true}, nil
}

// Pay applies one payment. Steps run strictly in order: validate, fetch,
// decide, mutate, persist. A rejected payment never reaches UpdatePayment.
func (u *Usecase) Pay(ctx context.Context, in PayLoanRequest) (*PayLoanResponse, error) {
	logger.Info("pay loan started", logger.Fields{"loan_id": in.ID})

	if err := u.validate.Struct(in); err != nil {
		logger.Warn("pay loan validation failed", validationFields(err))
		return nil, err
	}

	l, err := u.repo.GetByID(ctx, in.ID)
	switch {
	case errors.Is(err, loan.ErrNotFound):
		logger.Warn("loan not found", logger.Fields{"loan_id": in.ID})
		return &PayLoanResponse{Success: false, Outcome: OutcomeNotFound}, nil
	case err != nil:
		return nil, fmt.Errorf("pay loan %d: %w", in.ID, err)
	}

	if err := l.ApplyPayment(in.Amount); err != nil {
		fields := logger.Fields{"loan_id": l.ID, "amount": in.Amount.String(), "current_balance": l.CurrentBalance.String()}
		switch {
		case errors.Is(err, loan.ErrAlreadySettled):
			logger.Warn("loan already settled", fields)
			return nil, apperror.NewBusinessError(apperror.CodeLoanAlreadySettled, "Loan is already settled", err)
		case errors.Is(err, loan.ErrExceedsBalance):
			logger.Warn("amount exceeds current balance", fields)
			return &PayLoanResponse{Success: false, Outcome: OutcomeExceedsBalance}, nil
		default:
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// the in-memory loan is not rolled back on failure
	if err := u.repo.UpdatePayment(ctx, l); err != nil {
		logger.Error("update payment failed", err, logger.Fields{"loan_id": l.ID})
		return &PayLoanResponse{Success: false, Outcome: OutcomePersistenceFailed}, nil
	}

	outcome := OutcomePaymentApplied
	if l.IsSettled() {
		outcome = OutcomePaid
	}
	logger.Info("pay loan finished", logger.Fields{"loan_id": l.ID, "current_balance": l.CurrentBalance.String(), "status": l.Status.String()})
	return &PayLoanResponse{Success: true, Outcome: outcome}, nil
}

func validationFields(err error) logger.Fields {
	if ve, ok := apperror.AsValidation(err); ok {
		return logger.Fields{"errors": ve.Errors()}
	}
	return logger.Fields{"error": err.Error()}
}
