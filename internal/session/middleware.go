package session

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

// unauthorizedMessage is shared by every rejection so callers cannot tell
// a revoked token from an expired or forged one.
const unauthorizedMessage = "Invalid or expired token"

// Validator is the subset of Service the gate needs.
type Validator interface {
	Validate(ctx context.Context, raw string) (*Claims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return c, ok && c != nil
}

// WithClaims returns a copy of ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// RequireAuth rejects requests without a valid, unrevoked bearer token before
// next runs.
func RequireAuth(v Validator, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				utilities.WriteMessage(w, http.StatusUnauthorized, unauthorizedMessage)
				return
			}
			claims, err := v.Validate(r.Context(), raw)
			if err != nil {
				logger.Debugw("token rejected", "path", r.URL.Path, "err", err)
				utilities.WriteMessage(w, http.StatusUnauthorized, unauthorizedMessage)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
