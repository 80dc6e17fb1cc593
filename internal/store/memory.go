package store

import (
	"context"
	"sort"
	"sync"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/idgen"
)

// MemoryStore はテスト・単一ノード実行用のインメモリ実装です
// Redis実装と同じセマンティクス（挿入順の子ID、ルーム単位の変更通知、
// 解除後のコールバック停止保証）を持ちます
type MemoryStore struct {
	mu     sync.Mutex
	root   *memNode
	subs   map[int]*memSub
	nextId int
}

type memNode struct {
	fields map[string]string
	cols   map[string]map[string]*memNode // コレクション名 -> 子ID -> 子ノード
}

type memSub struct {
	scope string
	n     *notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root: newMemNode(),
		subs: make(map[int]*memSub),
	}
}

func newMemNode() *memNode {
	return &memNode{
		fields: make(map[string]string),
		cols:   make(map[string]map[string]*memNode),
	}
}

// find はノードパスを辿り、存在しなければnilを返します
func (ms *MemoryStore) find(parts []string) *memNode {
	node := ms.root
	for i := 0; i+1 < len(parts); i += 2 {
		children, ok := node.cols[parts[i]]
		if !ok {
			return nil
		}
		node, ok = children[parts[i+1]]
		if !ok {
			return nil
		}
	}
	return node
}

// ensure はノードパスを辿り、途中のノードがなければ作成します
func (ms *MemoryStore) ensure(parts []string) *memNode {
	node := ms.root
	for i := 0; i+1 < len(parts); i += 2 {
		children, ok := node.cols[parts[i]]
		if !ok {
			children = make(map[string]*memNode)
			node.cols[parts[i]] = children
		}
		child, ok := children[parts[i+1]]
		if !ok {
			child = newMemNode()
			children[parts[i+1]] = child
		}
		node = child
	}
	return node
}

func (ms *MemoryStore) Read(_ context.Context, path string) (Snapshot, error) {
	parts, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	node := ms.find(parts)
	if node == nil {
		return Snapshot{Fields: map[string]string{}}, nil
	}
	return snapshotOf(node, ""), nil
}

func snapshotOf(node *memNode, id string) Snapshot {
	fields := make(map[string]string, len(node.fields))
	for k, v := range node.fields {
		fields[k] = v
	}

	names := make([]string, 0, len(node.cols))
	for name := range node.cols {
		names = append(names, name)
	}
	sort.Strings(names)

	var children []Snapshot
	for _, name := range names {
		ids := make([]string, 0, len(node.cols[name]))
		for cid := range node.cols[name] {
			ids = append(ids, cid)
		}
		// IDはULIDなので辞書順ソート＝挿入順
		sort.Strings(ids)
		for _, cid := range ids {
			children = append(children, snapshotOf(node.cols[name][cid], cid))
		}
	}

	return Snapshot{
		ID:       id,
		Exists:   len(fields) > 0 || len(children) > 0,
		Fields:   fields,
		Children: children,
	}
}

func (ms *MemoryStore) Push(_ context.Context, path string, fields map[string]string) (string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return "", err
	}
	id := idgen.NewULID()

	ms.mu.Lock()
	parent := ms.ensure(parts[:len(parts)-1])
	colName := parts[len(parts)-1]
	children, ok := parent.cols[colName]
	if !ok {
		children = make(map[string]*memNode)
		parent.cols[colName] = children
	}
	child := newMemNode()
	for k, v := range fields {
		child.fields[k] = v
	}
	children[id] = child
	notifiers := ms.collect(path)
	ms.mu.Unlock()

	notify(notifiers)
	return id, nil
}

func (ms *MemoryStore) Update(_ context.Context, path string, fields map[string]string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	node := ms.ensure(parts)
	for k, v := range fields {
		node.fields[k] = v
	}
	notifiers := ms.collect(path)
	ms.mu.Unlock()

	notify(notifiers)
	return nil
}

func (ms *MemoryStore) Remove(_ context.Context, path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	parent := ms.find(parts[:len(parts)-2])
	removed := false
	if parent != nil {
		if children, ok := parent.cols[parts[len(parts)-2]]; ok {
			if _, ok := children[parts[len(parts)-1]]; ok {
				delete(children, parts[len(parts)-1])
				removed = true
			}
		}
	}
	var notifiers []*notifier
	if removed {
		notifiers = ms.collect(path)
	}
	ms.mu.Unlock()

	// 存在しないIDの削除はno-op（通知も出さない）
	notify(notifiers)
	return nil
}

func (ms *MemoryStore) Subscribe(path string, fn func()) (UnsubscribeFunc, error) {
	scope, err := roomScope(path)
	if err != nil {
		return nil, err
	}

	sub := &memSub{scope: scope, n: newNotifier(fn)}

	ms.mu.Lock()
	id := ms.nextId
	ms.nextId++
	ms.subs[id] = sub
	ms.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.n.close()
			ms.mu.Lock()
			delete(ms.subs, id)
			ms.mu.Unlock()
		})
	}, nil
}

// collect は変更パスに対応する購読者を集めます。呼び出し側がmuを保持していること
func (ms *MemoryStore) collect(path string) []*notifier {
	scope, err := roomScope(path)
	if err != nil {
		return nil
	}
	var out []*notifier
	for _, sub := range ms.subs {
		if sub.scope == scope {
			out = append(out, sub.n)
		}
	}
	return out
}

// notify はストアのロックを外した状態でコールバックを配信します
// コールバック内からの再読に備えるためロック中には呼びません
func notify(notifiers []*notifier) {
	for _, n := range notifiers {
		n.call()
	}
}
