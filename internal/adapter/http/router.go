package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"loan-service/internal/adapter/middleware"
)

type Routes struct {
	Health   *Handler
	Loans    *LoanHandler
	Auth     *AuthHandler
	Tokens   middleware.TokenParser
	Redis    *redis.Client
	IdempTTL time.Duration
}

func Register(e *echo.Echo, r Routes) {
	e.GET("/health", r.Health.Health)
	e.GET("/ready", r.Health.Ready)

	requireAuth := middleware.JWTAuth(r.Tokens)
	idempotent := middleware.IdempotencyMiddleware(r.Redis, r.IdempTTL)

	a := e.Group("/api/auth")
	a.POST("/register", r.Auth.Register)
	a.POST("/login", r.Auth.Login)
	a.GET("/me", r.Auth.Me, requireAuth)

	l := e.Group("/loans", requireAuth)
	l.GET("", r.Loans.GetLoans)
	l.GET("/:id", r.Loans.GetLoan)
	l.POST("", r.Loans.CreateLoan, idempotent)
	l.POST("/:id/payment", r.Loans.PayLoan, idempotent)
}
