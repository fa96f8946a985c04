package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/uniquery/uniquery/internal/observability"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// Schemes lists where an API key may be presented.
var Schemes = []string{"X-API-Key", "Bearer"}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// CheckRole passes requests without an identity, which only happens when
// authentication is disabled.
func CheckRole(ctx context.Context, role string) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("subject %q is missing required role %q", identity.Subject, role)
}

// Middleware authenticates API, MCP-over-HTTP and CLI callers by API key.
// Rejected keys are logged by fingerprint only.
func Middleware(logger *slog.Logger, validator APIKeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := extractAPIKey(r)
			if err != nil {
				writeUnauthorized(w, r, err.Error())
				return
			}
			if apiKey == "" {
				writeUnauthorized(w, r, "missing API key")
				return
			}

			identity, ok := validator.Validate(r.Context(), apiKey)
			if !ok {
				observability.ObserveAuthFailure()
				if log := observability.WithTrace(r.Context(), logger); log != nil {
					log.WarnContext(r.Context(), "authentication failed",
						slog.String("path", r.URL.Path),
						slog.String("key_fingerprint", KeyFingerprint(apiKey)),
					)
				}
				writeUnauthorized(w, r, "invalid API key")
				return
			}
			if log := observability.WithTrace(r.Context(), logger); log != nil {
				log.DebugContext(r.Context(), "authenticated", slog.String("subject", identity.Subject))
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// KeyFingerprint identifies a presented key in logs without revealing it.
func KeyFingerprint(apiKey string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(apiKey))[:12]
}

func extractAPIKey(r *http.Request) (string, error) {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key, nil
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if authorization == "" {
		return "", nil
	}
	scheme, credentials, _ := strings.Cut(authorization, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("unsupported authorization scheme %q", scheme)
	}
	return strings.TrimSpace(credentials), nil
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="uniquery"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": "UNAUTHORIZED",
		"message":    message,
		"retryable":  false,
		"context":    map[string]any{"schemes": Schemes},
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}
