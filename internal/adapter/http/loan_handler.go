package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loan-service/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type payLoanReq struct {
	Amount decimal.Decimal `json:"amount"`
}

var payStatus = map[loan.PayOutcome]int{
	loan.OutcomePaid:              http.StatusOK,
	loan.OutcomePaymentApplied:    http.StatusOK,
	loan.OutcomeNotFound:          http.StatusNotFound,
	loan.OutcomeExceedsBalance:    http.StatusUnprocessableEntity,
	loan.OutcomePersistenceFailed: http.StatusConflict,
}

func (h *LoanHandler) GetLoans(c echo.Context) error {
	res, err := h.uc.GetAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, ok := loanID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan id"})
	}
	res, err := h.uc.GetByID(c.Request().Context(), loan.GetLoanRequest{ID: id})
	if err != nil {
		return err
	}
	if !res.Found {
		return c.JSON(http.StatusNotFound, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req loan.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	res, err := h.uc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	if !res.Success {
		return c.JSON(http.StatusInternalServerError, res)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *LoanHandler) PayLoan(c echo.Context) error {
	id, ok := loanID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid loan id"})
	}
	var req payLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	res, err := h.uc.Pay(c.Request().Context(), loan.PayLoanRequest{ID: id, Amount: req.Amount})
	if err != nil {
		return err
	}
	code, known := payStatus[res.Outcome]
	if !known {
		code = http.StatusInternalServerError
	}
	return c.JSON(code, res)
}

func loanID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil
}
