package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
	"github.com/hyptrb/messaging/internal/httpx/response"
)

type contextKey string

const principalContextKey contextKey = "principal"

// identityClaims are the token claims issued by the identity provider
type identityClaims struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	PhoneNumber   string `json:"phone_number"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens and injects the caller's
// identity into the request context
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates a new authenticator with the given HMAC secret
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware rejects requests without a valid bearer token
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		principal, err := a.verify(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) verify(tokenString string) (*entity.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &identityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*identityClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &entity.Principal{
		UID:           claims.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		AvatarURL:     claims.Picture,
		Phone:         claims.PhoneNumber,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// PrincipalFromContext extracts the authenticated caller from the
// request context. Returns nil when the middleware did not run.
func PrincipalFromContext(ctx context.Context) *entity.Principal {
	p, _ := ctx.Value(principalContextKey).(*entity.Principal)
	return p
}

// ContextWithPrincipal returns a context carrying the given principal.
// Exposed for handler tests.
func ContextWithPrincipal(ctx context.Context, p *entity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
