package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-service/internal/adapter/middleware"
	"loan-service/internal/apperror"
	"loan-service/internal/usecase/auth"
)

type AuthHandler struct{ uc *auth.Usecase }

func NewAuthHandler(uc *auth.Usecase) *AuthHandler { return &AuthHandler{uc: uc} }

func (h *AuthHandler) Register(c echo.Context) error {
	var req auth.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	res, err := h.uc.CreateUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req auth.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	res, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return apperror.Unauthorized("missing bearer token")
	}
	return c.JSON(http.StatusOK, claims.User())
}
