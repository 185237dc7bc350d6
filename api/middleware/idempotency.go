package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/herbstore-backend/api/responses"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/herbstore-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	maxPendingHold        = 2 * time.Minute
)

type idempotencyPolicy struct {
	method string
	route  string
	// required rejects matching requests that carry no key.
	required bool
}

var idempotencyPolicies = []idempotencyPolicy{
	{method: http.MethodPost, route: "/api/checkout"},
	{method: http.MethodPost, route: "/api/admin/products", required: true},
}

// storedResponse is what Redis holds under an idempotency key. A pending entry
// marks a request that is still executing.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"requestHash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the covered POST routes safe to retry. The first request
// with a key reserves it, runs, and stores a 2xx response for ttl; later
// requests with the same key and body get that response replayed. A failed
// response releases the key so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy, ok := lookupPolicy(r.Method, patternOrPath(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				if policy.required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyKeyHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := bufferBody(w, r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			entry := idempotencyEntry{
				store: store,
				key:   store.IdempotencyKey(idempotencyScope(r), clientKey),
				hash:  hashBody(body),
				ttl:   ttl,
			}

			reserved, existing, err := entry.reserve(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !reserved {
				switch {
				case existing.RequestHash != entry.hash:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.Pending:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still running"))
				default:
					replay(w, existing)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if err := entry.finish(context.WithoutCancel(ctx), capture); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

type idempotencyEntry struct {
	store pkgredis.IdempotencyStore
	key   string
	hash  string
	ttl   time.Duration
}

// reserve claims the key with a pending marker. When the key is taken it
// returns the stored entry instead.
func (e idempotencyEntry) reserve(ctx context.Context) (bool, *storedResponse, error) {
	marker, err := json.Marshal(storedResponse{Pending: true, RequestHash: e.hash})
	if err != nil {
		return false, nil, err
	}
	hold := min(e.ttl, maxPendingHold)

	// the second attempt covers a pending marker expiring between SetNX and Get
	for range 2 {
		ok, err := e.store.SetNX(ctx, e.key, string(marker), hold)
		if err != nil {
			return false, nil, err
		}
		if ok {
			return true, nil, nil
		}

		raw, err := e.store.Get(ctx, e.key)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, nil, err
		}
		var existing storedResponse
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return false, nil, fmt.Errorf("decode idempotency entry: %w", err)
		}
		return false, &existing, nil
	}
	return false, nil, errors.New("idempotency key contended")
}

// finish stores a 2xx response or releases the key.
func (e idempotencyEntry) finish(ctx context.Context, capture *responseCapture) error {
	status := capture.statusCode()
	if status < 200 || status >= 300 {
		return e.store.Del(ctx, e.key)
	}
	payload, err := json.Marshal(storedResponse{
		RequestHash: e.hash,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err != nil {
		return err
	}
	return e.store.Set(ctx, e.key, string(payload), e.ttl)
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// idempotencyScope keeps keys from colliding across admins, cart sessions
// and routes.
func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{
		SubjectFromContext(r.Context()),
		CartSessionFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func patternOrPath(r *http.Request) string {
	if pattern := routePattern(r); pattern != "unmatched" {
		return pattern
	}
	return r.URL.Path
}

func lookupPolicy(method, route string) (idempotencyPolicy, bool) {
	for _, policy := range idempotencyPolicies {
		if policy.method == method && policy.route == route {
			return policy, true
		}
	}
	return idempotencyPolicy{}, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
