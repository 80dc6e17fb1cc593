// Package config はアプリケーションの設定を管理します
// 環境変数から設定を読み込み、デフォルト値を提供します
// 開発時は .env ファイルがあれば先に読み込みます
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultAPIAddr        = ":8080"          // APIサーバーのデフォルトリッスンアドレス
	defaultRedisAddr      = "localhost:6379" // Redisのデフォルト接続先
	defaultStoreBackend   = "redis"          // ストアのバックエンド（redis | memory）
	defaultJWTIssuer      = "liveask-id"     // IDトークンの発行者
	defaultFallbackAvatar = "https://static.liveask.app/images/profile.svg" // アイコン未設定時のフォールバック画像
)

// defaultAllowedOrigins はCORSで許可するデフォルトのオリジン一覧
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
}

// Config はアプリケーションの設定を保持します
type Config struct {
	APIAddr        string   // APIサーバーのリッスンアドレス
	RedisAddr      string   // Redisの接続先
	StoreBackend   string   // "redis" または "memory"
	AllowedOrigin  []string // CORSで許可するオリジン一覧
	JWTSecret      string   // IDトークン検証用の共有鍵
	JWTIssuer      string   // IDトークンの発行者
	FallbackAvatar string   // アイコンURL欠損時に使う画像URL
}

// Load は環境変数から設定を読み込みます
// 環境変数が設定されていない場合はデフォルト値を使用します
func Load() Config {
	// .env があれば読み込む（開発用）
	_ = godotenv.Load()

	return Config{
		APIAddr:        envOr("API_ADDR", defaultAPIAddr),
		RedisAddr:      envOr("REDIS_ADDR", defaultRedisAddr),
		StoreBackend:   envOr("STORE_BACKEND", defaultStoreBackend),
		AllowedOrigin:  envCSV("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		JWTSecret:      envOr("AUTH_JWT_SECRET", ""),
		JWTIssuer:      envOr("AUTH_JWT_ISSUER", defaultJWTIssuer),
		FallbackAvatar: envOr("FALLBACK_AVATAR_URL", defaultFallbackAvatar),
	}
}

// envOr は環境変数から文字列を取得します
// 環境変数が設定されていない場合はデフォルト値を返します
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envCSV は環境変数からカンマ区切りの文字列リストを取得します
// 環境変数が設定されていない、または空の場合はデフォルト値を返します
func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
