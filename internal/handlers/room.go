package handlers

import (
	"errors"
	"net/http"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/roomsync"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RoomHandler struct {
	svc     *service.RoomService
	watcher *roomsync.Watcher
	log     zerolog.Logger
}

func NewRoomHandler(s *service.RoomService, w *roomsync.Watcher, log zerolog.Logger) *RoomHandler {
	return &RoomHandler{svc: s, watcher: w, log: log.With().Str("component", "handlers").Logger()}
}

type createRoomRequest struct {
	Title string `json:"title"`
}

type submitQuestionRequest struct {
	Content string `json:"content"`
}

// Create は新しいルームを作成します
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var in createRoomRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	roomId, err := h.svc.CreateRoom(r.Context(), in.Title, user)
	if err != nil {
		h.log.Error().Err(err).Msg("create room failed")
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "roomId": roomId})
}

// Get はルームの現在の投影（タイトル・質問一覧）を返します
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, ok, err := h.svc.GetRoom(r.Context(), roomId)
	if err != nil {
		h.log.Error().Err(err).Str("roomId", roomId).Msg("get room failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}

	view, err := h.watcher.ReadRoom(r.Context(), roomId)
	if err != nil {
		h.log.Error().Err(err).Str("roomId", roomId).Msg("read room failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"roomId": roomId, "room": view})
}

// SubmitQuestion は質問を投稿します
func (h *RoomHandler) SubmitQuestion(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var in submitQuestionRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	questionId, err := h.svc.SubmitQuestion(r.Context(), roomId, in.Content, user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "questionId": questionId})
}

// DeleteQuestion は質問を削除します（オーナーのみ）
func (h *RoomHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, func(roomId, questionId, actorId string) error {
		return h.svc.DeleteQuestion(r.Context(), roomId, questionId, actorId)
	})
}

// MarkAnswered は質問を回答済みにします（オーナーのみ）
func (h *RoomHandler) MarkAnswered(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, func(roomId, questionId, actorId string) error {
		return h.svc.MarkAnswered(r.Context(), roomId, questionId, actorId)
	})
}

// MarkHighlighted は質問をハイライトにします（オーナーのみ）
func (h *RoomHandler) MarkHighlighted(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, func(roomId, questionId, actorId string) error {
		return h.svc.MarkHighlighted(r.Context(), roomId, questionId, actorId)
	})
}

// moderate はオーナー操作系ハンドラーの共通処理です
func (h *RoomHandler) moderate(w http.ResponseWriter, r *http.Request, op func(roomId, questionId, actorId string) error) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	questionId := normalizeID(chi.URLParam(r, "questionId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateQuestionId(questionId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := op(roomId, questionId, user.UserId); err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Like は質問にいいねを付けます
func (h *RoomHandler) Like(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	questionId := normalizeID(chi.URLParam(r, "questionId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateQuestionId(questionId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	likeId, err := h.svc.LikeQuestion(r.Context(), roomId, questionId, user.UserId)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "likeId": likeId})
}

// Unlike はいいねを取り消します
func (h *RoomHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	questionId := normalizeID(chi.URLParam(r, "questionId"))
	likeId := normalizeID(chi.URLParam(r, "likeId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateQuestionId(questionId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if likeId == "" {
		respondError(w, http.StatusBadRequest, "likeId required")
		return
	}
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.svc.UnlikeQuestion(r.Context(), roomId, questionId, likeId, user.UserId); err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// End はルームを終了します（オーナーのみ）
func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.svc.EndRoom(r.Context(), roomId, user.UserId); err != nil {
		h.log.Error().Err(err).Str("roomId", roomId).Msg("end room failed")
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoomHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotRoomOwner), errors.Is(err, service.ErrNotLikeOwner):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrQuestionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRoomEnded):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrEmptyTitle):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("store operation failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
