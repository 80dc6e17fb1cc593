package handlers

import (
	"errors"
	"net/http"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/auth"
	"github.com/rs/zerolog"
)

// AuthHandler はサインインを処理するハンドラー
type AuthHandler struct {
	adapter *auth.Adapter
	log     zerolog.Logger
}

func NewAuthHandler(a *auth.Adapter, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{adapter: a, log: log.With().Str("component", "auth").Logger()}
}

type signInRequest struct {
	Token string `json:"token"` // IDプロバイダ発行のIDトークン
}

// SignIn はIDトークンを検証してユーザー情報を返します
// プロバイダ成功でも表示名が欠けている場合は失敗にします（アイコンURLの欠損のみ補完）
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if normalizeID(in.Token) == "" {
		respondError(w, http.StatusBadRequest, "token required")
		return
	}

	user, err := h.adapter.SignIn(r.Context(), normalizeID(in.Token))
	switch {
	case errors.Is(err, auth.ErrMissingProfileField):
		respondError(w, http.StatusUnprocessableEntity, "account profile is missing a display name")
		return
	case errors.Is(err, auth.ErrProviderFailure):
		respondError(w, http.StatusUnauthorized, "sign-in rejected by identity provider")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("sign-in failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}
