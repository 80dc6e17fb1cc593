// Package service はルーム変更レイヤを担当します
// 質問の投稿・削除・フラグ更新・ルーム終了などの意図をストアへの書き込みに変換します
// 結果の正否はストアのみが決めます（ここで結果を先取りして保持することはありません）
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/idgen"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/metrics"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/roomsync"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/store"
)

// RoomService はルームと質問に対する変更操作を提供します
type RoomService struct {
	store store.Store   // 唯一の信頼できる情報源であるリアルタイムストア
	codes CodeGenerator // ルームコード生成器
}

// CodeGenerator はルームコードを生成するインターフェース
type CodeGenerator interface {
	New() (string, error) // 新しいルームコードを生成
}

// roomCodeGen はCodeGeneratorの実装
type roomCodeGen struct{}

func (roomCodeGen) New() (string, error) { return idgen.NewRoomCode() }

// NewRoomCodeGenerator は新しいCodeGeneratorを作成します
func NewRoomCodeGenerator() CodeGenerator {
	return roomCodeGen{}
}

// NewRoomService は新しいRoomServiceを作成します
func NewRoomService(st store.Store, codes CodeGenerator) *RoomService {
	return &RoomService{store: st, codes: codes}
}

// CreateRoom は新しいルームを作成します
// 処理の流れ:
// 1. ユニークなルームコードを生成（重複チェック付き、最大10回リトライ）
// 2. ルームのメタデータをストアに書き込み
// 戻り値: 生成されたルームID、エラー
func (s *RoomService) CreateRoom(ctx context.Context, title string, owner models.User) (string, error) {
	const maxRetries = 10 // コード生成の最大リトライ回数

	if strings.TrimSpace(title) == "" {
		return "", ErrEmptyTitle
	}

	var roomId string
	for i := 0; i < maxRetries; i++ {
		code, err := s.codes.New()
		if err != nil {
			return "", err
		}
		snap, err := s.store.Read(ctx, store.RoomPath(code))
		if err != nil {
			return "", err
		}
		if !snap.Exists {
			roomId = code
			break
		}
		if i == maxRetries-1 {
			return "", ErrRoomCodeGenerationFailed
		}
	}

	err := s.store.Update(ctx, store.RoomPath(roomId), map[string]string{
		"title":    title,
		"authorId": owner.UserId,
	})
	if err != nil {
		return "", err
	}
	metrics.RoomsCreated.Inc()
	return roomId, nil
}

// GetRoom は指定されたルームのメタデータを取得します
// 戻り値: ルーム情報、存在フラグ、エラー
func (s *RoomService) GetRoom(ctx context.Context, roomId string) (models.Room, bool, error) {
	snap, err := s.store.Read(ctx, store.RoomPath(roomId))
	if err != nil {
		return models.Room{}, false, err
	}
	if !snap.Exists {
		return models.Room{}, false, nil
	}
	endedAt, _ := strconv.ParseInt(snap.Field("endedAt"), 10, 64)
	return models.Room{
		RoomId:   roomId,
		Title:    snap.Field("title"),
		AuthorId: snap.Field("authorId"),
		EndedAt:  endedAt,
	}, true, nil
}

// SubmitQuestion は質問をルームに投稿します
// 空白のみの本文はストアに書き込む前にローカルで弾きます
// 終了済みルームへの投稿はErrRoomEndedになります
func (s *RoomService) SubmitQuestion(ctx context.Context, roomId, content string, author models.User) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}

	room, ok, err := s.GetRoom(ctx, roomId)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrRoomNotFound
	}
	if room.Ended() {
		return "", ErrRoomEnded
	}

	id, err := s.store.Push(ctx, store.QuestionsPath(roomId), map[string]string{
		"content":       content,
		"authorName":    author.UserName,
		"authorAvatar":  author.UserAvatar,
		"isAnswered":    "false",
		"isHighlighted": "false",
	})
	if err != nil {
		return "", err
	}
	metrics.QuestionsSubmitted.Inc()
	return id, nil
}

// DeleteQuestion は質問を削除します（オーナーのみ実行可能）
// 存在しない質問IDの削除はストアのセマンティクスに従いno-opです
// 終了済みルームでも後片付けのために削除は許可します
func (s *RoomService) DeleteQuestion(ctx context.Context, roomId, questionId, actorId string) error {
	if _, err := s.requireOwner(ctx, roomId, actorId); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, store.QuestionPath(roomId, questionId)); err != nil {
		return err
	}
	metrics.QuestionsDeleted.Inc()
	return nil
}

// MarkAnswered は質問を回答済みにします（オーナーのみ実行可能）
// すでに回答済みでも結果は変わりません（冪等）
// 終了済みルームではErrRoomEndedになります
func (s *RoomService) MarkAnswered(ctx context.Context, roomId, questionId, actorId string) error {
	return s.setFlag(ctx, roomId, questionId, actorId, "isAnswered", "answered")
}

// MarkHighlighted は質問をハイライト（回答中）にします（オーナーのみ実行可能）
// 終了済みルームではErrRoomEndedになります
func (s *RoomService) MarkHighlighted(ctx context.Context, roomId, questionId, actorId string) error {
	return s.setFlag(ctx, roomId, questionId, actorId, "isHighlighted", "highlighted")
}

func (s *RoomService) setFlag(ctx context.Context, roomId, questionId, actorId, field, action string) error {
	room, err := s.requireOwner(ctx, roomId, actorId)
	if err != nil {
		return err
	}
	if room.Ended() {
		return ErrRoomEnded
	}
	snap, err := s.store.Read(ctx, store.QuestionPath(roomId, questionId))
	if err != nil {
		return err
	}
	if !snap.Exists {
		return ErrQuestionNotFound
	}
	if err := s.store.Update(ctx, store.QuestionPath(roomId, questionId), map[string]string{field: "true"}); err != nil {
		return err
	}
	metrics.QuestionsModerated.WithLabelValues(action).Inc()
	return nil
}

// LikeQuestion は質問にいいねを付けます
// 同じユーザーが二度いいねしても増えず、既存のいいねIDを返します
func (s *RoomService) LikeQuestion(ctx context.Context, roomId, questionId, userId string) (string, error) {
	room, ok, err := s.GetRoom(ctx, roomId)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrRoomNotFound
	}
	if room.Ended() {
		return "", ErrRoomEnded
	}

	snap, err := s.store.Read(ctx, store.QuestionPath(roomId, questionId))
	if err != nil {
		return "", err
	}
	if !snap.Exists {
		return "", ErrQuestionNotFound
	}
	if likeId := roomsync.LikeIdOf(snap, userId); likeId != "" {
		return likeId, nil
	}

	id, err := s.store.Push(ctx, store.LikesPath(roomId, questionId), map[string]string{
		"authorId": userId,
	})
	if err != nil {
		return "", err
	}
	metrics.QuestionLikes.Inc()
	return id, nil
}

// UnlikeQuestion はいいねを取り消します。取り消せるのは本人のいいねだけです
// 存在しないいいねIDはno-opです
func (s *RoomService) UnlikeQuestion(ctx context.Context, roomId, questionId, likeId, userId string) error {
	snap, err := s.store.Read(ctx, store.LikePath(roomId, questionId, likeId))
	if err != nil {
		return err
	}
	if !snap.Exists {
		return nil
	}
	if snap.Field("authorId") != userId {
		return ErrNotLikeOwner
	}
	return s.store.Remove(ctx, store.LikePath(roomId, questionId, likeId))
}

// EndRoom はルームを終了します（オーナーのみ実行可能）
// 終了済みルームの再終了は何もしません（冪等）
func (s *RoomService) EndRoom(ctx context.Context, roomId, actorId string) error {
	room, err := s.requireOwner(ctx, roomId, actorId)
	if err != nil {
		return err
	}
	if room.Ended() {
		return nil
	}

	err = s.store.Update(ctx, store.RoomPath(roomId), map[string]string{
		"endedAt": strconv.FormatInt(time.Now().Unix(), 10),
	})
	if err != nil {
		return err
	}
	metrics.RoomsEnded.Inc()
	return nil
}

// requireOwner はルームの存在とオーナー本人であることを確認し、ルームを返します
func (s *RoomService) requireOwner(ctx context.Context, roomId, actorId string) (models.Room, error) {
	room, ok, err := s.GetRoom(ctx, roomId)
	if err != nil {
		return models.Room{}, err
	}
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	if room.AuthorId != actorId {
		return models.Room{}, ErrNotRoomOwner
	}
	return room, nil
}
