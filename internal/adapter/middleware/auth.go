package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"loan-service/internal/adapter/token"
	"loan-service/internal/apperror"
)

const claimsKey = "auth.claims"

type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// JWTAuth requires "Authorization: Bearer <token>" and stores the parsed claims
// on the context. Failures are returned as apperror unauthorized errors.
func JWTAuth(p TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scheme, raw, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			raw = strings.TrimSpace(raw)
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return apperror.Unauthorized("missing bearer token")
			}
			claims, err := p.Parse(raw)
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
				return apperror.Unauthorized(err.Error())
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) (*token.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*token.Claims)
	return claims, ok && claims != nil
}
