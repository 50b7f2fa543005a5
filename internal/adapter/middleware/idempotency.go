package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"loan-service/internal/logger"
)

const (
	headerKey       = "Idempotency-Key"
	headerRequestAt = "Idempotency-At"
	headerReplayed  = "Idempotent-Replayed"

	// How long the "in-progress" marker lives if the handler never finishes.
	provisionalLockTTL = 60 * time.Second
	// Allowed client/server clock skew for Idempotency-At.
	maxClockSkew = 10 * time.Minute

	anonymous = "anonymous"
)

// MaxBodyBytes caps the request body hashed and stored per key.
const MaxBodyBytes = 1 << 20

type idempEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	Key        string    `json:"key"`
	CreatedAt  time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// IdempotencyMiddleware makes retried writes safe: the first response for a
// (method, path, caller, Idempotency-Key) tuple is stored in Redis and replayed
// for identical retries. Place it after JWTAuth so the caller is known.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	store := entryStore{rdb: rdb, lockTTL: provisionalLockTTL, ttl: ttl}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			method := req.Method

			switch method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			idemKey := strings.ToLower(strings.TrimSpace(req.Header.Get(headerKey)))
			if idemKey == "" {
				return errJSON(c, http.StatusBadRequest, "missing "+headerKey)
			}
			if !validKey(idemKey) {
				return errJSON(c, http.StatusBadRequest, "invalid "+headerKey+" format")
			}

			if raw := req.Header.Get(headerRequestAt); raw != "" {
				reqAt, err := parseRequestAt(raw)
				if err != nil {
					return errJSON(c, http.StatusBadRequest, err.Error())
				}
				now := nowUTC()
				if reqAt.Before(now.Add(-maxClockSkew)) || reqAt.After(now.Add(maxClockSkew)) {
					return errJSON(c, http.StatusBadRequest, headerRequestAt+" too skewed")
				}
			}

			subject := anonymous
			if claims, ok := ClaimsFrom(c); ok {
				subject = claims.Subject
			}

			var body []byte
			if req.Body != nil {
				var err error
				body, err = io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, MaxBodyBytes))
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						return errJSON(c, http.StatusRequestEntityTooLarge, "request body too large")
					}
					return errJSON(c, http.StatusBadRequest, "unreadable request body")
				}
			}
			req.Body = io.NopCloser(bytes.NewBuffer(body))
			bhash := bodyHash(body)

			key := buildKey(method, req.URL.Path, subject, idemKey)
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			ok, err := store.reserve(ctx, key, idempEntry{
				InProgress: true,
				BodySHA256: bhash,
				Key:        idemKey,
				CreatedAt:  nowUTC(),
			})
			if err != nil {
				logger.Error("idempotency store unavailable", err, logger.Fields{"key": key})
				return errJSON(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !ok {
				cur, errLoad := store.load(ctx, key)
				if errLoad != nil {
					logger.Warn("idempotency entry unreadable", logger.Fields{"key": key, "error": errLoad.Error()})
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
					return errJSON(c, http.StatusConflict, headerKey+" reused with different body")
				}
				if !cur.InProgress && cur.Code != 0 && len(cur.Body) > 0 {
					c.Response().Header().Set(headerReplayed, "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return errJSON(c, http.StatusConflict, "request is already in progress")
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be done; finish bookkeeping regardless
			bg, cancelBg := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancelBg()
			if !replayable(rec.code) {
				if err := store.release(bg, key); err != nil {
					logger.Warn("idempotency release failed", logger.Fields{"key": key, "error": err.Error()})
				}
				return nil
			}
			final := idempEntry{
				Code:       rec.code,
				Body:       rec.buf.Bytes(),
				BodySHA256: bhash,
				Key:        idemKey,
				CreatedAt:  nowUTC(),
			}
			if err := store.complete(bg, key, final); err != nil {
				logger.Warn("idempotency save failed", logger.Fields{"key": key, "error": err.Error()})
			}
			return nil
		}
	}
}
