package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"loan-service/pkg/id"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

// buildKey scopes a key to the concrete request path (loan id included) and the caller.
func buildKey(method, path, subject, key string) string {
	return "idemp:loans:" + strings.ToLower(method) + ":" + path + ":" + subject + ":" + key
}

// validKey accepts a canonical dashed UUID or 32 lowercase hex characters.
func validKey(k string) bool {
	k = strings.ToLower(strings.TrimSpace(k))
	if id.IsID32(k) {
		return true
	}
	if len(k) != 36 {
		return false
	}
	_, err := uuid.Parse(k)
	return err == nil
}

// parseRequestAt accepts epoch seconds, epoch milliseconds, or RFC3339 with a zone.
// Naive local timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing " + headerRequestAt)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New(headerRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
}

// replayable reports whether a final response may be served again for the same key.
// Server errors and conflicts are released so the client can retry.
func replayable(code int) bool { return code < 500 && code != 409 }

// entryStore keeps idempotency entries as JSON values in Redis.
type entryStore struct {
	rdb     *redis.Client
	lockTTL time.Duration
	ttl     time.Duration
}

// reserve writes an in-progress marker unless the key is already taken.
func (s entryStore) reserve(ctx context.Context, key string, e idempEntry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, payload, s.lockTTL).Result()
}

func (s entryStore) load(ctx context.Context, key string) (idempEntry, error) {
	var e idempEntry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

// complete replaces the marker with the final response for the full TTL.
func (s entryStore) complete(ctx context.Context, key string, e idempEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, s.ttl).Err()
}

func (s entryStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
