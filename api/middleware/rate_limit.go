package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// maxKeyedBody bounds how much of a request body a KeyFunc may buffer.
const maxKeyedBody = 64 << 10

// KeyFunc derives the counter key for a request. An empty key skips the rule.
type KeyFunc func(r *http.Request) (string, error)

// RateRule is one fixed-window counter. Rules with a zero limit or window are
// ignored so limits can be switched off from config.
type RateRule struct {
	Scope  string
	Limit  int
	Window time.Duration
	Key    KeyFunc
}

func (rule RateRule) active() bool {
	return rule.Limit > 0 && rule.Window > 0 && rule.Key != nil
}

// RateLimit rejects requests with 429 once any rule's counter exceeds its
// limit. Rules are checked in order and each hit counts against its window.
func RateLimit(store pkgredis.RateLimiter, logg *logger.Logger, rules ...RateRule) func(http.Handler) http.Handler {
	var live []RateRule
	for _, rule := range rules {
		if rule.active() {
			live = append(live, rule)
		}
	}

	return func(next http.Handler) http.Handler {
		if store == nil || len(live) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, rule := range live {
				key, err := rule.Key(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request"))
					return
				}
				if key == "" {
					continue
				}
				allowed, count, err := store.FixedWindowAllow(ctx, rule.Scope+":"+key, int64(rule.Limit), rule.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if allowed {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"rule":     rule.Scope,
						"attempts": count,
						"limit":    rule.Limit,
					}), "rate limit exceeded")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window.Round(time.Second)/time.Second)))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ByClientIP keys on the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func ByClientIP(r *http.Request) (string, error) {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip, nil
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip, nil
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host, nil
	}
	return r.RemoteAddr, nil
}

// ByUser keys on the authenticated user and skips anonymous requests.
func ByUser(r *http.Request) (string, error) {
	return UserIDFromContext(r.Context()), nil
}

// ByJSONField keys on a hashed, lower-cased string field of the JSON body.
// The body is restored for the next handler.
func ByJSONField(field string) KeyFunc {
	return func(r *http.Request) (string, error) {
		if r.Body == nil {
			return "", nil
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxKeyedBody+1))
		if err != nil {
			return "", err
		}
		if len(body) > maxKeyedBody {
			return "", errors.New("request body too large")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) != nil {
			return "", nil
		}
		var value string
		if json.Unmarshal(fields[field], &value) != nil {
			return "", nil
		}
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			return "", nil
		}
		sum := sha256.Sum256([]byte(value))
		return hex.EncodeToString(sum[:12]), nil
	}
}
