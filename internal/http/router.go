package http

import (
	"net/http"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter はAPIのルーティングを構築します
// requireUser はサインイン済みユーザーを要求するミドルウェアです（変更系はすべて必須）
func NewRouter(
	h *handlers.RoomHandler,
	ah *handlers.AuthHandler,
	wsHandler *handlers.WebSocketHandler,
	requireUser func(http.Handler) http.Handler,
	logger zerolog.Logger,
	allowedOrigins []string,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(logger), middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/api/v1/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/signin", ah.SignIn)

	r.Route("/api/v1/rooms", func(r chi.Router) {
		// 読み取り系は未サインインでも可（参加者はサインインせずに傍聴できる）
		r.Get("/{roomId}", h.Get)
		r.Get("/{roomId}/ws", wsHandler.HandleWebSocket)

		// 変更系はサインイン必須
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", h.Create)
			r.Post("/{roomId}/end", h.End)
			r.Post("/{roomId}/questions", h.SubmitQuestion)
			r.Delete("/{roomId}/questions/{questionId}", h.DeleteQuestion)
			r.Post("/{roomId}/questions/{questionId}/answered", h.MarkAnswered)
			r.Post("/{roomId}/questions/{questionId}/highlight", h.MarkHighlighted)
			r.Post("/{roomId}/questions/{questionId}/likes", h.Like)
			r.Delete("/{roomId}/questions/{questionId}/likes/{likeId}", h.Unlike)
		})
	})

	return r
}
