// Package auth validates bearer tokens issued by the identity provider and
// exposes the authenticated principal through the request context. Any
// authenticated identity is sufficient to authorize reads and writes; there
// is no finer-grained permission model.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/advisorly/feetrack/internal/httpx"
)

type ctxKey string

const principalCtxKey = ctxKey("principal")

// Principal is the authenticated caller extracted from a validated token.
type Principal struct {
	UserID   string
	Email    string
	Name     string
	TenantID string
	Roles    []string
}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}

// Authenticator turns inbound requests into principals.
type Authenticator struct {
	validator *Validator
	devBypass bool
}

// New builds an authenticator for the given tenant/audience. With devBypass a
// static local principal is injected and tokens are never checked; only for
// development.
func New(tenantID, audience string, devBypass bool) *Authenticator {
	return &Authenticator{
		validator: NewValidator(tenantID, audience),
		devBypass: devBypass,
	}
}

// Middleware attaches the principal to the request context when a valid
// bearer token is present. Invalid or absent credentials degrade to an
// unauthenticated request here; enforcement happens in RequireAuth.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.devBypass {
			p := Principal{UserID: "dev-user", Email: "dev@localhost", Name: "Local Developer"}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		p, err := a.validator.Validate(r.Context(), token)
		if err != nil {
			// Leave the request unauthenticated; RequireAuth decides.
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAuth rejects unauthenticated requests with the error envelope.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func principalFromClaims(claims jwt.MapClaims) Principal {
	p := Principal{
		UserID:   stringClaim(claims, "oid"),
		Email:    stringClaim(claims, "preferred_username"),
		Name:     stringClaim(claims, "name"),
		TenantID: stringClaim(claims, "tid"),
	}
	if p.UserID == "" {
		p.UserID = stringClaim(claims, "sub")
	}
	if p.Email == "" {
		p.Email = stringClaim(claims, "email")
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
