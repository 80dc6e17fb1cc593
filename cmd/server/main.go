package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/auth"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/config"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/handlers"
	httpx "github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/http"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/roomsync"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/service"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("AUTH_JWT_SECRET is required")
	}

	// ストアの選択（単一ノード実行ではmemoryも選べる）
	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemoryStore()
		logger.Info().Msg("using in-memory store")
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			PoolSize:     10,              // 接続プールサイズ
			MinIdleConns: 5,               // 最小アイドル接続数
			MaxRetries:   3,               // リトライ回数
			DialTimeout:  5 * time.Second, // 接続タイムアウト
			ReadTimeout:  3 * time.Second, // 読み込みタイムアウト
			WriteTimeout: 3 * time.Second, // 書き込みタイムアウト
			PoolTimeout:  4 * time.Second, // プールからの取得タイムアウト
		})

		// Redis接続確認
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		st = store.NewRedisStore(rdb)
	}

	provider := auth.NewJWTProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	adapter := auth.NewAdapter(provider, cfg.FallbackAvatar)

	svc := service.NewRoomService(st, service.NewRoomCodeGenerator())
	watcher := roomsync.NewWatcher(st, logger)

	h := handlers.NewRoomHandler(svc, watcher, logger)
	ah := handlers.NewAuthHandler(adapter, logger)
	ws := handlers.NewWebSocketHandler(watcher, logger)
	requireUser := handlers.RequireUser(provider, cfg.FallbackAvatar)
	router := httpx.NewRouter(h, ah, ws, requireUser, logger, cfg.AllowedOrigin)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown用のシグナルチャネル
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// サーバーを別goroutineで起動
	go func() {
		logger.Info().Str("addr", cfg.APIAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// シャットダウンシグナルを待つ
	<-sigChan
	logger.Info().Msg("shutdown signal received, shutting down gracefully...")

	// 30秒のタイムアウトでGraceful Shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("server stopped")
}
