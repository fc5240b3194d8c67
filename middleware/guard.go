package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth"
)

// DefaultPublicPrefixes are served without authentication. Each entry
// matches the path itself and everything below it.
var DefaultPublicPrefixes = []string{
	"/api/auth/",
	"/swagger",
	"/api-docs",
	"/health",
	"/metrics",
}

// Authenticator is the part of *accountauth.Engine the guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, rawHeader string) (*accountauth.Identity, error)
}

type guardConfig struct {
	public []string
	log    *zap.Logger
}

// Option customises Guard.
type Option func(*guardConfig)

// WithPublicPrefixes replaces DefaultPublicPrefixes.
func WithPublicPrefixes(prefixes ...string) Option {
	return func(c *guardConfig) {
		c.public = append([]string(nil), prefixes...)
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *guardConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// Guard authenticates requests with engine. Requests whose path starts with a
// public prefix pass through untouched. Every other request must carry a
// valid bearer token; any failure is answered with the same 401 body.
func Guard(engine Authenticator, opts ...Option) func(http.Handler) http.Handler {
	cfg := guardConfig{
		public: DefaultPublicPrefixes,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log.Named("guard")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path, cfg.public) {
				next.ServeHTTP(w, r)
				return
			}
			if engine == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			id, err := engine.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				log.Debug("request rejected",
					zap.String("path", r.URL.Path),
					zap.String("reason", string(accountauth.ReasonOf(err))))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(accountauth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets through requests whose Identity carries one of roles.
// It must run after Guard.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := accountauth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range roles {
				if id.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

// isPublic matches whole path segments: "/health" covers "/health" and
// "/health/live" but not "/healthcheck-admin".
func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		base := strings.TrimSuffix(p, "/")
		if base == "" {
			continue
		}
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
