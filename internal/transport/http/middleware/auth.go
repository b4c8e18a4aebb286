package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrops/internal/domain/auth"
)

// SessionChecker reports whether the session a token was minted for is
// still active. A nil checker skips the lookup.
type SessionChecker interface {
	SessionActive(ctx context.Context, userID, sessionID string) (bool, error)
}

func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if sessions != nil && claims.SessionID != "" {
				active, err := sessions.SessionActive(r.Context(), claims.UserID, claims.SessionID)
				if err != nil || !active {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{
				UserID:    claims.UserID,
				TenantID:  claims.TenantID,
				RoleID:    claims.RoleID,
				RoleName:  claims.RoleName,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
