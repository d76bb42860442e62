package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"little-lemon/internal/apperror"
	"little-lemon/internal/models"
	"little-lemon/internal/store"
)

type principalKey struct{}

// UserLookup finds the account owning an API token
type UserLookup interface {
	GetUserByToken(ctx context.Context, token string) (models.User, error)
}

// Authenticator resolves the principal for a request from its token
type Authenticator struct {
	users UserLookup
}

func NewAuthenticator(users UserLookup) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate resolves the principal for a raw Authorization header value.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (models.Principal, error) {
	token, ok := parseToken(header)
	if !ok {
		return models.Principal{}, apperror.Unauthorized()
	}

	user, err := a.users.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Principal{}, &apperror.Error{Kind: apperror.KindUnauthorized, Message: "Invalid token."}
		}
		return models.Principal{}, fmt.Errorf("lookup token: %w", err)
	}
	return user.Principal(), nil
}

// Middleware authenticates every request and stores the principal in its context.
// Failures are reported through onError.
func (a *Authenticator) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func parseToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithPrincipal attaches p to ctx
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}
