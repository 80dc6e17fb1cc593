package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/auth"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// RequireUser はサインイン済みユーザーを要求するミドルウェアです
// Authorization: Bearer のIDトークンを検証し、ユーザーをリクエストコンテキストに載せます
// 未サインインの書き込みはストアに届く前にここで401になります
func RequireUser(provider auth.Provider, fallbackAvatar string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				respondError(w, http.StatusUnauthorized, auth.ErrNotAuthenticated.Error())
				return
			}

			profile, err := provider.Verify(r.Context(), strings.TrimSpace(raw))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			user, err := auth.ResolveUser(profile, fallbackAvatar)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "incomplete account profile")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom はリクエストコンテキストからユーザーを取り出します
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userContextKey).(models.User)
	return u, ok
}
