package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSigningKey means no JWT signing key was configured. An empty HMAC
// key would verify tokens anyone can mint, so serving the API without one is
// fatal.
var ErrMissingSigningKey = errors.New("middleware: no JWT signing key configured")

type contextKeyActor struct{}

// ContextKeyActor carries the authenticated principal for audit attribution.
var ContextKeyActor = contextKeyActor{}

// GetActor retrieves the authenticated principal from the context, empty when
// the request was not authenticated.
func GetActor(ctx context.Context) string {
	actor, ok := ctx.Value(ContextKeyActor).(string)
	if !ok {
		return ""
	}
	return actor
}

// JWTValidator verifies HS256 bearer tokens issued for the ingest API and
// returns the subject they identify.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) (*JWTValidator, error) {
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}
	return &JWTValidator{signingKey: []byte(signingKey)}, nil
}

// ValidateToken parses and verifies a token, returning its subject.
func (v *JWTValidator) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject in the context as the acting principal.
func RequireAuth(validator *JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			subject, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized request", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyActor, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","error_description":%q}`, description)
}
