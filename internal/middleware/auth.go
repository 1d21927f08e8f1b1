package middleware

import (
	"context"
	"net/http"
	"strings"

	"imaginify/internal/apperror"
	"imaginify/internal/util"

	"github.com/rs/zerolog"
)

// Injected key type to avoid context collisions
type contextKey string

// UserContextKey holds the identity provider subject of the caller.
const UserContextKey = contextKey("user")

// TokenValidator verifies a session token.
type TokenValidator interface {
	Validate(token string) (*util.Claims, error)
}

// AuthMiddleware requires a valid bearer session token. Browsers without a
// token are redirected to signInURL; API clients get a 401 carrying the
// redirect target.
func AuthMiddleware(verifier TokenValidator, signInURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if wantsHTML(r) {
					http.Redirect(w, r, signInURL, http.StatusFound)
					return
				}
				logger.Debug().Msg("Authorization header missing")
				writeUnauthenticated(w, "authorization header missing", signInURL)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn().Msg("Invalid authorization header")
				writeUnauthenticated(w, "invalid authorization header", signInURL)
				return
			}
			claims, err := verifier.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				logger.Warn().Err(err).Msg("Invalid session token")
				writeUnauthenticated(w, "invalid session token", signInURL)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated subject, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(UserContextKey).(string)
	return sub, ok && sub != ""
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeUnauthenticated(w http.ResponseWriter, msg, signInURL string) {
	WriteError(w, apperror.Unauthenticated(msg), map[string]string{"redirect": signInURL})
}
