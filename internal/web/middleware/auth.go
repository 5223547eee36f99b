package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parttrace/kicadbridge/internal/config"
)

type contextKey int

const principalKey contextKey = iota

// Principal returns the name of the API key the request authenticated
// with. Empty when auth is disabled or the key entry carried no name.
func Principal(ctx context.Context) string {
	name, _ := ctx.Value(principalKey).(string)
	return name
}

// apiKeyEntry is one parsed "name:secret" credential. The name doubles
// as the import username so history rows show who uploaded what.
type apiKeyEntry struct {
	name   string
	secret string
}

func parseAPIKeys(raw []string) []apiKeyEntry {
	entries := make([]apiKeyEntry, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		name, secret, found := strings.Cut(v, ":")
		if !found {
			// Bare secret with no principal name.
			entries = append(entries, apiKeyEntry{secret: v})
			continue
		}
		entries = append(entries, apiKeyEntry{name: name, secret: secret})
	}
	return entries
}

// APIKeyAuth returns middleware that validates the X-API-Key header
// against the configured keys and stores the matching key's name in the
// request context. If RequireAPIKey is false, all requests pass through
// anonymously. If RequireAPIKey is true but no keys are configured, all
// requests are rejected.
func APIKeyAuth(cfg config.AuthConfig) func(http.Handler) http.Handler {
	entries := parseAPIKeys(cfg.APIKeys)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			name, ok := matchAPIKey(apiKey, entries)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchAPIKey compares the presented key against every configured
// secret, so the comparison time does not depend on which entry matches
// (or none). Returns the matching entry's name.
func matchAPIKey(key string, entries []apiKeyEntry) (string, bool) {
	matched := ""
	valid := 0
	for _, e := range entries {
		m := subtle.ConstantTimeCompare([]byte(key), []byte(e.secret))
		valid |= m
		if m == 1 {
			matched = e.name
		}
	}
	return matched, valid == 1
}
