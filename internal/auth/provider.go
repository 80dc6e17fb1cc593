// Package auth は外部IDプロバイダへの委譲を担当します
// サインインの成否とプロフィール内容はプロバイダの結果のみで決まり、
// このパッケージは独自のユーザーデータベースを持ちません
package auth

import (
	"context"
	"errors"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
)

var (
	// ErrMissingProfileField はプロバイダが成功を返したのに必須項目（表示名）が
	// 欠けていた場合のエラーです。黙ってデフォルト値で埋めずに呼び出し側へ返します
	ErrMissingProfileField = errors.New("auth: missing profile field")
	// ErrProviderFailure はプロバイダ側の失敗（トークン不正・期限切れなど）を表します
	ErrProviderFailure = errors.New("auth: provider failure")
	// ErrNotAuthenticated は未サインインでの操作を表します
	ErrNotAuthenticated = errors.New("auth: not authenticated")
)

// Profile は外部IDプロバイダが返すサインイン結果です
type Profile struct {
	UID         string // プロバイダが割り当てたユーザーID
	DisplayName string // 表示名（欠けている場合はサインイン失敗として扱う）
	PhotoURL    string // アイコン画像URL（欠けている場合のみフォールバックに置換される）
}

// Provider は外部IDプロバイダのトークン検証を抽象化します
type Provider interface {
	// Verify はプロバイダ発行のIDトークンを検証しプロフィールを返します
	Verify(ctx context.Context, rawToken string) (Profile, error)
}

// ResolveUser はプロフィールをユーザーに変換します
// 表示名の欠損はErrMissingProfileField、アイコンURLの欠損のみフォールバックで補います
func ResolveUser(p Profile, fallbackAvatar string) (models.User, error) {
	if p.DisplayName == "" {
		return models.User{}, ErrMissingProfileField
	}
	avatar := p.PhotoURL
	if avatar == "" {
		avatar = fallbackAvatar
	}
	return models.User{UserId: p.UID, UserName: p.DisplayName, UserAvatar: avatar}, nil
}
