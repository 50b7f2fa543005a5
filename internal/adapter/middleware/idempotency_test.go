package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"loan-service/internal/adapter/token"
)

const testKey = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

// setupEcho mounts the middleware behind a fake auth step that marks the caller as subject.
func setupEcho(rdb *redis.Client, subject string, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	fakeAuth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if subject != "" {
				c.Set(claimsKey, &token.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}})
			}
			return next(c)
		}
	}
	g := e.Group("/loans", fakeAuth, IdempotencyMiddleware(rdb, 2*time.Minute))
	g.POST("", handler)
	g.POST("/:id/payment", handler)
	g.GET("", handler)
	return e
}

func doReq(e *echo.Echo, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// countingHandler answers 201 with the number of times it ran.
func countingHandler(n *int) echo.HandlerFunc {
	return func(c echo.Context) error {
		*n++
		return c.JSON(http.StatusCreated, map[string]any{"success": true, "n": *n})
	}
}

func Test_BypassOnGET(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))

	rec := doReq(e, http.MethodGet, "/loans", "", nil)
	if rec.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("GET should pass through: code=%d calls=%d", rec.Code, calls)
	}
}

func Test_HeaderValidation(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))

	cases := map[string]map[string]string{
		"missing key":    {},
		"invalid key":    {headerKey: "NOT-VALID"},
		"bad request-at": {headerKey: testKey, headerRequestAt: "not-a-time"},
		"skewed past":    {headerKey: testKey, headerRequestAt: time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)},
		"skewed future":  {headerKey: testKey, headerRequestAt: time.Now().UTC().Add(maxClockSkew + time.Minute).Format(time.RFC3339)},
	}
	for name, hdr := range cases {
		rec := doReq(e, http.MethodPost, "/loans", `{"x":1}`, hdr)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s => want 400, got %d", name, rec.Code)
		}
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times on invalid headers", calls)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))
	hdr := map[string]string{headerKey: testKey, headerRequestAt: time.Now().UTC().Format(time.RFC3339)}

	rec1 := doReq(e, http.MethodPost, "/loans/7/payment", `{"amount":"10"}`, hdr)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	rec2 := doReq(e, http.MethodPost, "/loans/7/payment", `{"amount":"10"}`, hdr)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d", rec2.Code)
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get(headerReplayed) != "true" {
		t.Fatal("replay header missing")
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func Test_KeyScopedByPathAndCaller(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	hdr := map[string]string{headerKey: testKey}

	e1 := setupEcho(rdb, "user-1", countingHandler(&calls))
	doReq(e1, http.MethodPost, "/loans/7/payment", `{"amount":"10"}`, hdr)
	doReq(e1, http.MethodPost, "/loans/8/payment", `{"amount":"10"}`, hdr)

	e2 := setupEcho(rdb, "user-2", countingHandler(&calls))
	doReq(e2, http.MethodPost, "/loans/7/payment", `{"amount":"10"}`, hdr)

	if calls != 3 {
		t.Fatalf("handler ran %d times, want 3 (distinct loans and callers)", calls)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))
	body := []byte(`{"x":1}`)

	key := buildKey(http.MethodPost, "/loans", "user-1", testKey)
	store := entryStore{rdb: rdb, lockTTL: provisionalLockTTL, ttl: time.Minute}
	if ok, err := store.reserve(context.Background(), key, idempEntry{InProgress: true, BodySHA256: bodyHash(body)}); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(e, http.MethodPost, "/loans", string(body), map[string]string{headerKey: testKey})
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	if calls != 0 {
		t.Fatal("handler must not run while in progress")
	}
}

func Test_Conflict_When_SameKey_DifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))

	key := buildKey(http.MethodPost, "/loans", "user-1", testKey)
	final := idempEntry{Code: http.StatusCreated, Body: []byte(`{"success":true}`), BodySHA256: bodyHash([]byte(`{"x":1}`))}
	store := entryStore{rdb: rdb, lockTTL: provisionalLockTTL, ttl: 5 * time.Minute}
	if err := store.complete(context.Background(), key, final); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(e, http.MethodPost, "/loans", `{"x":2}`, map[string]string{headerKey: testKey})
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same key => want 409, got %d", rec.Code)
	}
}

func Test_ServerErrorReleasesKey(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", func(c echo.Context) error {
		calls++
		if calls == 1 {
			return echo.NewHTTPError(http.StatusInternalServerError, "boom")
		}
		return c.JSON(http.StatusCreated, map[string]bool{"success": true})
	})
	hdr := map[string]string{headerKey: testKey}

	if rec := doReq(e, http.MethodPost, "/loans", `{}`, hdr); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first => want 500, got %d", rec.Code)
	}
	if rec := doReq(e, http.MethodPost, "/loans", `{}`, hdr); rec.Code != http.StatusCreated {
		t.Fatalf("retry after 500 => want 201, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func Test_BodyLimit(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))

	big := `{"applicant_name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	rec := doReq(e, http.MethodPost, "/loans", big, map[string]string{headerKey: testKey})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body => want 413, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatal("handler must not run for an oversized body")
	}
	if n := rdb.Exists(context.Background(), buildKey(http.MethodPost, "/loans", "user-1", testKey)).Val(); n != 0 {
		t.Fatal("oversized body must not reserve the key")
	}

	if rec := doReq(e, http.MethodPost, "/loans", `{}`, map[string]string{headerKey: testKey}); rec.Code != http.StatusCreated {
		t.Fatalf("small body with same key => want 201, got %d", rec.Code)
	}
}

func Test_UnreadableBody_Returns400(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/loans", iotest.ErrReader(errors.New("connection reset")))
	req.Header.Set(headerKey, testKey)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unreadable body => want 400, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatal("handler must not run")
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	calls := 0
	e := setupEcho(rdb, "user-1", countingHandler(&calls))

	rec := doReq(e, http.MethodPost, "/loans", `{}`, map[string]string{headerKey: testKey})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
}
