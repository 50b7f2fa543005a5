package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-service/internal/apperror"
	"loan-service/internal/logger"
)

// ErrorResponse is the payload for request problems detected by the handlers themselves.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProblemResponse is the payload written by the error handler.
type ProblemResponse struct {
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	TraceID string              `json:"trace_id,omitempty"`
	Code    string              `json:"code,omitempty"`
	Detail  string              `json:"detail,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// NewErrorHandler maps errors returned by handlers and middleware to HTTP
// responses. Details of unexpected errors are only exposed when exposeDetail is set.
func NewErrorHandler(exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		p := problemFor(err, exposeDetail)
		p.TraceID = c.Response().Header().Get(echo.HeaderXRequestID)
		if p.TraceID == "" {
			p.TraceID = c.Request().Header.Get(echo.HeaderXRequestID)
		}
		if p.Status >= http.StatusInternalServerError {
			logger.Error("request failed", err, logger.Fields{
				"method":   c.Request().Method,
				"path":     c.Request().URL.Path,
				"trace_id": p.TraceID,
			})
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(p.Status)
		} else {
			werr = c.JSON(p.Status, p)
		}
		if werr != nil {
			logger.Error("write error response", werr, nil)
		}
	}
}

func problemFor(err error, exposeDetail bool) ProblemResponse {
	if ve, ok := apperror.AsValidation(err); ok {
		return ProblemResponse{
			Title:  "Validation failed",
			Status: http.StatusBadRequest,
			Errors: ve.Errors(),
		}
	}
	if be, ok := apperror.AsBusiness(err); ok {
		return ProblemResponse{
			Title:  "Business rule violation",
			Status: http.StatusBadRequest,
			Code:   be.Code,
			Detail: be.Message,
		}
	}
	if apperror.IsUnauthorized(err) {
		return ProblemResponse{
			Title:  "Unauthorized",
			Status: http.StatusUnauthorized,
			Detail: err.Error(),
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		p := ProblemResponse{Title: http.StatusText(he.Code), Status: he.Code}
		if he.Code < http.StatusInternalServerError || exposeDetail {
			p.Detail = fmt.Sprint(he.Message)
		}
		return p
	}

	p := ProblemResponse{Title: "Internal server error", Status: http.StatusInternalServerError}
	if exposeDetail {
		p.Detail = err.Error()
	}
	return p
}
