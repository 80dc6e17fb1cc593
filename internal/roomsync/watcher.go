// Package roomsync はルーム同期レイヤを提供します
// ストアの変更通知のたびにルームと質問一覧を読み直し、RoomViewとして導出します
// RoomViewは毎回丸ごと作り直され、購読者側で部分更新されることはありません
package roomsync

import (
	"context"
	"strconv"
	"sync"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/metrics"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/store"
	"github.com/rs/zerolog"
)

// Watcher はルームのライブ購読と一回読みの投影を提供します
type Watcher struct {
	store store.Store
	log   zerolog.Logger
}

func NewWatcher(st store.Store, log zerolog.Logger) *Watcher {
	return &Watcher{store: st, log: log.With().Str("component", "roomsync").Logger()}
}

// ReadRoom はルームの現在状態を読み、RoomViewに投影して返します
// 存在しないルームはエラーではなく空のビュー（空タイトル・空の質問一覧）になります
func (w *Watcher) ReadRoom(ctx context.Context, roomId string) (models.RoomView, error) {
	snap, err := w.store.Read(ctx, store.RoomPath(roomId))
	if err != nil {
		return models.RoomView{}, err
	}
	return Project(snap), nil
}

// WatchRoom はルームのライブ購読を開始します
// 初回スナップショットをこの呼び出しの中で配信し、以降はストアの変更通知のたびに
// 再計算したRoomViewをonUpdateへ渡します（バッファリングや間引きはしません）
// 返した解除関数はいつ呼んでも安全で、戻った後にonUpdateが呼ばれることはありません
func (w *Watcher) WatchRoom(roomId string, onUpdate func(models.RoomView)) (store.UnsubscribeFunc, error) {
	// 読み取りと配信を同じロックで直列化する
	// 初回スナップショットの読み取り中に入った変更通知は初回配信の完了を待ってから
	// 読み直すため、古いビューが新しいビューを後から上書きすることはない
	var mu sync.Mutex
	deliver := func() error {
		view, err := w.ReadRoom(context.Background(), roomId)
		if err != nil {
			return err
		}
		onUpdate(view)
		return nil
	}

	mu.Lock()
	unsub, err := w.store.Subscribe(store.RoomPath(roomId), func() {
		mu.Lock()
		defer mu.Unlock()
		if err := deliver(); err != nil {
			// 読み取り失敗時はこの回の配信を見送る。次の変更通知で追い付く
			w.log.Warn().Err(err).Str("roomId", roomId).Msg("failed to re-read room on change")
		}
	})
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	if err := deliver(); err != nil {
		mu.Unlock()
		unsub()
		return nil, err
	}
	mu.Unlock()

	metrics.RoomWatchers.Inc()
	var once sync.Once
	return func() {
		unsub()
		once.Do(metrics.RoomWatchers.Dec)
	}, nil
}

// Project はストアのスナップショットをRoomViewに投影します
// 欠損フィールドはデフォルト値（false / 0 / 空文字）に落とし、エラーにはしません
func Project(snap store.Snapshot) models.RoomView {
	view := models.RoomView{
		Title:     snap.Field("title"),
		EndedAt:   parseInt64(snap.Field("endedAt")),
		Questions: []models.Question{},
	}
	for _, q := range snap.Children {
		view.Questions = append(view.Questions, projectQuestion(q))
	}
	return view
}

func projectQuestion(snap store.Snapshot) models.Question {
	return models.Question{
		QuestionId: snap.ID,
		Content:    snap.Field("content"),
		Author: models.Author{
			Name:   snap.Field("authorName"),
			Avatar: snap.Field("authorAvatar"),
		},
		IsAnswered:    parseBool(snap.Field("isAnswered")),
		IsHighlighted: parseBool(snap.Field("isHighlighted")),
		LikeCount:     len(snap.Children),
	}
}

// LikeIdOf は質問スナップショットから指定ユーザーのいいねIDを返します
// 未いいねなら空文字です
func LikeIdOf(question store.Snapshot, userId string) string {
	for _, like := range question.Children {
		if like.Field("authorId") == userId {
			return like.ID
		}
	}
	return ""
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func parseInt64(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
