package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "docscan/pkg/domain-errors"
	"docscan/pkg/platform/httputil"
	"docscan/pkg/requestcontext"
)

// OwnerResolver validates a bearer token and resolves the owning identity.
// Authentication itself is an external concern; the core only needs the
// opaque owner ID the token carries.
type OwnerResolver interface {
	ResolveOwner(tokenString string) (int64, error)
}

// JWTResolver resolves owners from HS256-signed JWTs whose subject claim is
// the numeric owner ID.
type JWTResolver struct {
	signingKey []byte
}

func NewJWTResolver(signingKey string) *JWTResolver {
	return &JWTResolver{signingKey: []byte(signingKey)}
}

func (r *JWTResolver) ResolveOwner(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.signingKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("read subject claim: %w", err)
	}
	ownerID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || ownerID <= 0 {
		return 0, fmt.Errorf("subject %q is not a valid owner id", subject)
	}
	return ownerID, nil
}

// RequireOwner rejects requests without a valid bearer token and injects the
// resolved owner ID into the request context.
func RequireOwner(resolver OwnerResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, ok := resolveFromHeader(resolver, r)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized request",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or missing bearer token"))
				return
			}
			ctx := requestcontext.WithOwnerID(r.Context(), ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalOwner injects the owner ID when a valid token is present but lets
// anonymous requests through. Scan submission works unauthenticated; only
// history persistence needs an owner.
func OptionalOwner(resolver OwnerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ownerID, ok := resolveFromHeader(resolver, r); ok {
				r = r.WithContext(requestcontext.WithOwnerID(r.Context(), ownerID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveFromHeader(resolver OwnerResolver, r *http.Request) (int64, bool) {
	const bearerPrefix = "Bearer "
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok || token == "" {
		return 0, false
	}
	ownerID, err := resolver.ResolveOwner(token)
	if err != nil {
		return 0, false
	}
	return ownerID, true
}
