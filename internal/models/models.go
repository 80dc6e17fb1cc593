// Package models はアプリケーションで使用するデータ構造を定義します
package models

// User は認証済みユーザーの情報を表します
// 外部IDプロバイダのサインイン結果から生成され、セッション中は不変です
type User struct {
	UserId     string `json:"userId"`     // プロバイダが割り当てたユーザーの一意な識別子
	UserName   string `json:"userName"`   // 表示名（必須、空は不可）
	UserAvatar string `json:"userAvatar"` // アイコン画像URL（欠損時はフォールバック画像に置換済み）
}

// Room はQ&Aルームの情報を表します
type Room struct {
	RoomId   string `json:"roomId"`            // ルームの一意な識別子
	Title    string `json:"title"`             // ルームのタイトル
	AuthorId string `json:"authorId"`          // ルームのオーナー（作成者）のユーザーID
	EndedAt  int64  `json:"endedAt,omitempty"` // ルーム終了日時（Unixタイムスタンプ、0は未終了）
}

// Ended はルームが終了済みかどうかを返します
func (r Room) Ended() bool { return r.EndedAt != 0 }

// Author は質問の投稿者を表します
// 投稿時点の表示名とアイコンを質問側に保持します（ユーザー情報は永続化しないため）
type Author struct {
	Name   string `json:"name"`   // 投稿者の表示名
	Avatar string `json:"avatar"` // 投稿者のアイコン画像URL
}

// Question はルーム内の1つの質問を表します
type Question struct {
	QuestionId    string `json:"questionId"`    // ストアが割り当てた質問の一意な識別子
	Content       string `json:"content"`       // 質問の本文（空は不可）
	Author        Author `json:"author"`        // 投稿者情報
	IsAnswered    bool   `json:"isAnswered"`    // 回答済みフラグ
	IsHighlighted bool   `json:"isHighlighted"` // ハイライト（回答中）フラグ
	LikeCount     int    `json:"likeCount"`     // いいね数（0以上）
}

// RoomView はルームと質問一覧から導出される読み取り専用ビューです
// ストアの変更通知のたびに丸ごと再計算され、部分更新はされません
type RoomView struct {
	Title     string     `json:"title"`             // ルームのタイトル
	EndedAt   int64      `json:"endedAt,omitempty"` // ルーム終了日時（0は未終了）
	Questions []Question `json:"questions"`         // 質問一覧（ストアの挿入順）
}
