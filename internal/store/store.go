// Package store は外部リアルタイムストアの抽象を提供します
// `rooms/{roomId}/questions/{questionId}` のようなパスで識別されるノードに対する
// read / push / update / remove と、変更通知の subscribe を定義します
// ストアが唯一の信頼できる情報源であり、このパッケージは独自の状態を持ちません
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrReadFailure はストアからの読み取り失敗を表します
	ErrReadFailure = errors.New("store: read failure")
	// ErrWriteFailure はストアへの書き込み失敗を表します
	ErrWriteFailure = errors.New("store: write failure")
	// ErrInvalidPath は不正なパスを表します
	ErrInvalidPath = errors.New("store: invalid path")
)

// Snapshot はあるパス配下の状態のある時点のスナップショットを表します
// Children はストアが割り当てたID順（＝挿入順）で並びます
type Snapshot struct {
	ID       string            // ノードのID（ルートの場合は空）
	Exists   bool              // ノードが存在するか
	Fields   map[string]string // ノードのフィールド
	Children []Snapshot        // コレクション配下の子ノード（挿入順）
}

// Field はフィールド値を返します。存在しない場合は空文字を返します
func (s Snapshot) Field(key string) string { return s.Fields[key] }

// UnsubscribeFunc は購読を解除します
// いつ呼んでも安全で、複数回呼んでも副作用はありません
// 戻った後にコールバックが呼ばれないことを保証します
type UnsubscribeFunc func()

// Store はリアルタイムストアの操作を定義します
// Read / Push / Update / Remove はストアの結果のみで成否が決まります（ローカルで再試行しない）
type Store interface {
	// Read はパス配下のスナップショットを返します
	// ノードが存在しない場合はエラーではなく Exists=false の空スナップショットを返します
	Read(ctx context.Context, path string) (Snapshot, error)

	// Push はコレクションパスに新しい子ノードを追加し、ストアが割り当てたIDを返します
	Push(ctx context.Context, path string, fields map[string]string) (string, error)

	// Update はノードのフィールドを部分更新します（フィールド単位のlast-write-wins）
	Update(ctx context.Context, path string, fields map[string]string) error

	// Remove はノードとその配下をすべて削除します。存在しないパスはno-opです
	Remove(ctx context.Context, path string) error

	// Subscribe はパスが属するルーム配下の変更通知を購読します
	// 通知は「変わった」という事実のみを運び、購読側が再読み込みします
	Subscribe(path string, fn func()) (UnsubscribeFunc, error)
}

// splitPath はパスをセグメントに分割し検証します
func splitPath(path string) ([]string, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return nil, ErrInvalidPath
	}
	for _, p := range parts {
		if p == "" {
			return nil, ErrInvalidPath
		}
	}
	return parts, nil
}

// roomScope はパスが属するルームのスコープ（先頭2セグメント）を返します
// 変更通知はこの単位で配信されます
func roomScope(path string) (string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return "", err
	}
	return parts[0] + "/" + parts[1], nil
}

// notifier は1購読者分のコールバックを解除と直列化して呼び出します
// 解除後にコールバックが呼ばれないことを保証するための共通部品です
type notifier struct {
	mu     sync.Mutex
	closed bool
	fn     func()
}

func newNotifier(fn func()) *notifier {
	return &notifier{fn: fn}
}

// call は解除済みでなければコールバックを呼び出します
// ロックを保持したまま呼ぶため、close は実行中の配信が終わるまで待ちます
func (n *notifier) call() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.fn()
}

// close は以後のコールバック呼び出しを止めます
// 配信中に呼ばれた場合はその配信が終わるまでブロックし、戻った後の呼び出しはありません
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}
