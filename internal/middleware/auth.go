package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/obras-ledger/internal/auth"
	"github.com/josh-kwaku/obras-ledger/internal/handler"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
)

// Auth requires a Bearer token issued by the PIN login.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			if claims.Role != auth.RoleOperator {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.With(ctx, "operator", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
