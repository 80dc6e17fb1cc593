package service

import (
	"context"
	"errors"
	"testing"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/store"
)

// countingStore は書き込み系の呼び出し回数を数えるテスト用ラッパー
type countingStore struct {
	store.Store
	pushes  int
	updates int
	removes int
}

func (c *countingStore) Push(ctx context.Context, path string, fields map[string]string) (string, error) {
	c.pushes++
	return c.Store.Push(ctx, path, fields)
}

func (c *countingStore) Update(ctx context.Context, path string, fields map[string]string) error {
	c.updates++
	return c.Store.Update(ctx, path, fields)
}

func (c *countingStore) Remove(ctx context.Context, path string) error {
	c.removes++
	return c.Store.Remove(ctx, path)
}

func (c *countingStore) writes() int { return c.pushes + c.updates + c.removes }

// fixedCodeGen は決まったコード列を返すテスト用のCodeGenerator
type fixedCodeGen struct {
	codes []string
	i     int
}

func (g *fixedCodeGen) New() (string, error) {
	code := g.codes[g.i%len(g.codes)]
	g.i++
	return code, nil
}

var (
	admin = models.User{UserId: "admin", UserName: "Admin", UserAvatar: "a.png"}
	guest = models.User{UserId: "guest", UserName: "Guest", UserAvatar: "g.png"}
)

func newTestService(t *testing.T) (*RoomService, *countingStore, string) {
	t.Helper()
	cs := &countingStore{Store: store.NewMemoryStore()}
	svc := NewRoomService(cs, &fixedCodeGen{codes: []string{"abc123"}})

	roomId, err := svc.CreateRoom(context.Background(), "Go Q&A", admin)
	if err != nil {
		t.Fatalf("CreateRoom: unexpected error: %v", err)
	}
	if roomId != "abc123" {
		t.Fatalf("roomId = %q, want %q", roomId, "abc123")
	}
	return svc, cs, roomId
}

func TestCreateRoomRejectsEmptyTitle(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	svc := NewRoomService(cs, NewRoomCodeGenerator())

	if _, err := svc.CreateRoom(context.Background(), "   ", admin); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("err = %v, want ErrEmptyTitle", err)
	}
	if cs.writes() != 0 {
		t.Errorf("writes = %d, want 0 (empty title must not reach the store)", cs.writes())
	}
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	svc := NewRoomService(cs, &fixedCodeGen{codes: []string{"dup", "dup2"}})

	ctx := context.Background()
	first, err := svc.CreateRoom(ctx, "one", admin)
	if err != nil {
		t.Fatalf("CreateRoom: unexpected error: %v", err)
	}
	if first != "dup" {
		t.Fatalf("first roomId = %q, want %q", first, "dup")
	}

	// 1回目の候補 "dup" は衝突するので次の候補が使われる
	gen := &fixedCodeGen{codes: []string{"dup", "dup2"}}
	svc2 := NewRoomService(cs, gen)
	second, err := svc2.CreateRoom(ctx, "two", admin)
	if err != nil {
		t.Fatalf("CreateRoom: unexpected error: %v", err)
	}
	if second != "dup2" {
		t.Errorf("second roomId = %q, want %q", second, "dup2")
	}
}

func TestSubmitQuestionWhitespaceNeverWrites(t *testing.T) {
	svc, cs, roomId := newTestService(t)
	before := cs.writes()

	if _, err := svc.SubmitQuestion(context.Background(), roomId, "   ", guest); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
	if cs.writes() != before {
		t.Errorf("writes = %d, want %d (whitespace-only content must not reach the store)", cs.writes(), before)
	}
}

func TestSubmitQuestionUnknownRoom(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.SubmitQuestion(context.Background(), "nope", "why?", guest); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestMarkAnsweredIsIdempotent(t *testing.T) {
	svc, cs, roomId := newTestService(t)
	ctx := context.Background()

	qid, err := svc.SubmitQuestion(ctx, roomId, "why?", guest)
	if err != nil {
		t.Fatalf("SubmitQuestion: unexpected error: %v", err)
	}

	if err := svc.MarkAnswered(ctx, roomId, qid, admin.UserId); err != nil {
		t.Fatalf("MarkAnswered: unexpected error: %v", err)
	}
	if err := svc.MarkAnswered(ctx, roomId, qid, admin.UserId); err != nil {
		t.Fatalf("MarkAnswered (second call): unexpected error: %v", err)
	}

	snap, err := cs.Read(ctx, store.QuestionPath(roomId, qid))
	if err != nil {
		t.Fatalf("Read: unexpected error: %v", err)
	}
	if got := snap.Field("isAnswered"); got != "true" {
		t.Errorf("isAnswered = %q, want %q", got, "true")
	}
	if got := snap.Field("isHighlighted"); got == "true" {
		t.Errorf("isHighlighted flipped by MarkAnswered")
	}
}

func TestModerationRequiresOwner(t *testing.T) {
	svc, _, roomId := newTestService(t)
	ctx := context.Background()

	qid, err := svc.SubmitQuestion(ctx, roomId, "why?", guest)
	if err != nil {
		t.Fatalf("SubmitQuestion: unexpected error: %v", err)
	}

	if err := svc.MarkAnswered(ctx, roomId, qid, guest.UserId); !errors.Is(err, ErrNotRoomOwner) {
		t.Errorf("MarkAnswered by guest: err = %v, want ErrNotRoomOwner", err)
	}
	if err := svc.MarkHighlighted(ctx, roomId, qid, guest.UserId); !errors.Is(err, ErrNotRoomOwner) {
		t.Errorf("MarkHighlighted by guest: err = %v, want ErrNotRoomOwner", err)
	}
	if err := svc.DeleteQuestion(ctx, roomId, qid, guest.UserId); !errors.Is(err, ErrNotRoomOwner) {
		t.Errorf("DeleteQuestion by guest: err = %v, want ErrNotRoomOwner", err)
	}
	if err := svc.EndRoom(ctx, roomId, guest.UserId); !errors.Is(err, ErrNotRoomOwner) {
		t.Errorf("EndRoom by guest: err = %v, want ErrNotRoomOwner", err)
	}
}

func TestMarkMissingQuestion(t *testing.T) {
	svc, _, roomId := newTestService(t)

	if err := svc.MarkAnswered(context.Background(), roomId, "nope", admin.UserId); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("err = %v, want ErrQuestionNotFound", err)
	}
}

func TestDeleteMissingQuestionIsNoop(t *testing.T) {
	svc, _, roomId := newTestService(t)

	if err := svc.DeleteQuestion(context.Background(), roomId, "nope", admin.UserId); err != nil {
		t.Errorf("DeleteQuestion of missing id: unexpected error: %v", err)
	}
}

func TestEndRoomBlocksFurtherSubmissions(t *testing.T) {
	svc, _, roomId := newTestService(t)
	ctx := context.Background()

	if err := svc.EndRoom(ctx, roomId, admin.UserId); err != nil {
		t.Fatalf("EndRoom: unexpected error: %v", err)
	}
	room, ok, err := svc.GetRoom(ctx, roomId)
	if err != nil || !ok {
		t.Fatalf("GetRoom: ok=%t err=%v", ok, err)
	}
	if !room.Ended() {
		t.Fatalf("room not marked ended")
	}

	// 再終了は冪等
	if err := svc.EndRoom(ctx, roomId, admin.UserId); err != nil {
		t.Errorf("EndRoom (second call): unexpected error: %v", err)
	}

	if _, err := svc.SubmitQuestion(ctx, roomId, "too late", guest); !errors.Is(err, ErrRoomEnded) {
		t.Errorf("SubmitQuestion after end: err = %v, want ErrRoomEnded", err)
	}
}

func TestLikeQuestionOncePerUser(t *testing.T) {
	svc, _, roomId := newTestService(t)
	ctx := context.Background()

	qid, err := svc.SubmitQuestion(ctx, roomId, "why?", guest)
	if err != nil {
		t.Fatalf("SubmitQuestion: unexpected error: %v", err)
	}

	first, err := svc.LikeQuestion(ctx, roomId, qid, "u2")
	if err != nil {
		t.Fatalf("LikeQuestion: unexpected error: %v", err)
	}
	second, err := svc.LikeQuestion(ctx, roomId, qid, "u2")
	if err != nil {
		t.Fatalf("LikeQuestion (repeat): unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("repeat like created a new like: %q != %q", first, second)
	}

	if err := svc.UnlikeQuestion(ctx, roomId, qid, first, "u2"); err != nil {
		t.Fatalf("UnlikeQuestion: unexpected error: %v", err)
	}
	again, err := svc.LikeQuestion(ctx, roomId, qid, "u2")
	if err != nil {
		t.Fatalf("LikeQuestion after unlike: unexpected error: %v", err)
	}
	if again == first {
		t.Errorf("like id reused after unlike")
	}
}

func TestUnlikeRequiresLikeOwner(t *testing.T) {
	svc, _, roomId := newTestService(t)
	ctx := context.Background()

	qid, err := svc.SubmitQuestion(ctx, roomId, "why?", guest)
	if err != nil {
		t.Fatalf("SubmitQuestion: unexpected error: %v", err)
	}
	likeId, err := svc.LikeQuestion(ctx, roomId, qid, "u2")
	if err != nil {
		t.Fatalf("LikeQuestion: unexpected error: %v", err)
	}

	// 他人のいいねは取り消せない（ルームオーナーでも不可）
	if err := svc.UnlikeQuestion(ctx, roomId, qid, likeId, "u3"); !errors.Is(err, ErrNotLikeOwner) {
		t.Errorf("UnlikeQuestion by u3: err = %v, want ErrNotLikeOwner", err)
	}
	if err := svc.UnlikeQuestion(ctx, roomId, qid, likeId, admin.UserId); !errors.Is(err, ErrNotLikeOwner) {
		t.Errorf("UnlikeQuestion by room owner: err = %v, want ErrNotLikeOwner", err)
	}

	// いいねは残っている（再いいねは同じIDを返す）
	still, err := svc.LikeQuestion(ctx, roomId, qid, "u2")
	if err != nil {
		t.Fatalf("LikeQuestion: unexpected error: %v", err)
	}
	if still != likeId {
		t.Errorf("like removed by non-owner: %q != %q", still, likeId)
	}

	// 本人は取り消せる。存在しないIDの取り消しはno-op
	if err := svc.UnlikeQuestion(ctx, roomId, qid, likeId, "u2"); err != nil {
		t.Fatalf("UnlikeQuestion by owner: unexpected error: %v", err)
	}
	if err := svc.UnlikeQuestion(ctx, roomId, qid, likeId, "u3"); err != nil {
		t.Errorf("UnlikeQuestion of missing like: unexpected error: %v", err)
	}
}

func TestEndedRoomBlocksModerationButAllowsDelete(t *testing.T) {
	svc, _, roomId := newTestService(t)
	ctx := context.Background()

	qid, err := svc.SubmitQuestion(ctx, roomId, "why?", guest)
	if err != nil {
		t.Fatalf("SubmitQuestion: unexpected error: %v", err)
	}
	if err := svc.EndRoom(ctx, roomId, admin.UserId); err != nil {
		t.Fatalf("EndRoom: unexpected error: %v", err)
	}

	if err := svc.MarkAnswered(ctx, roomId, qid, admin.UserId); !errors.Is(err, ErrRoomEnded) {
		t.Errorf("MarkAnswered after end: err = %v, want ErrRoomEnded", err)
	}
	if err := svc.MarkHighlighted(ctx, roomId, qid, admin.UserId); !errors.Is(err, ErrRoomEnded) {
		t.Errorf("MarkHighlighted after end: err = %v, want ErrRoomEnded", err)
	}
	if _, err := svc.LikeQuestion(ctx, roomId, qid, "u2"); !errors.Is(err, ErrRoomEnded) {
		t.Errorf("LikeQuestion after end: err = %v, want ErrRoomEnded", err)
	}

	// 後片付けのための削除は終了後も可能
	if err := svc.DeleteQuestion(ctx, roomId, qid, admin.UserId); err != nil {
		t.Errorf("DeleteQuestion after end: unexpected error: %v", err)
	}
}
