package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedOperatorContextKey = ContextKey("authenticatedOperator")

// Operator holds the identity and roles of an authenticated human operator.
type Operator struct {
	Subject string
	Roles   []string
}

// OperatorFromContext extracts the authenticated operator, if any.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(AuthenticatedOperatorContextKey).(Operator)
	return op, ok
}

// commandRoles is the static command→allowed-roles table. The gate sits
// entirely in front of the workflows; the app layer never sees roles.
var commandRoles = map[string][]string{
	"sipstatus":   {"admin", "supervisor"},
	"issue_mask":  {"admin"},
	"mask_lookup": {"admin"},
}

// Authenticate validates the HS256 bearer token and stores the Operator in
// the request context. 401 on any missing/invalid credential.
func Authenticate(jwtSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			operator := Operator{}
			if sub, err := claims.GetSubject(); err == nil {
				operator.Subject = sub
			}
			if rawRoles, ok := claims["roles"].([]interface{}); ok {
				for _, raw := range rawRoles {
					if role, ok := raw.(string); ok {
						operator.Roles = append(operator.Roles, role)
					}
				}
			}

			ctx := context.WithValue(r.Context(), AuthenticatedOperatorContextKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCommand gates a route behind the static command→roles table.
// Must run after Authenticate.
func RequireCommand(command string, logger *slog.Logger) func(next http.Handler) http.Handler {
	allowed := commandRoles[command]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, ok := OperatorFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			for _, role := range operator.Roles {
				for _, want := range allowed {
					if role == want {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			logger.WarnContext(r.Context(), "Operator not permitted for command",
				"command", command, "operator", operator.Subject, "roles", operator.Roles)
			http.Error(w, "Command not permitted for your role", http.StatusForbidden)
		})
	}
}
