package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/idgen"
	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisをバックエンドとするリアルタイムストアの実装です
// キー構成:
//
//	h:{path}  ノードのフィールド（ハッシュ）
//	s:{path}  コレクション配下の子IDの集合（セット）
//	k:{path}  ノード配下に存在するコレクション名の集合（セット）
//	ev:{roomScope}  ルーム単位の変更通知チャネル（pub/sub）
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func hashKey(path string) string { return "h:" + path }
func setKey(path string) string  { return "s:" + path }
func colsKey(path string) string { return "k:" + path }
func chanKey(scope string) string {
	return "ev:" + scope
}

// removeScript はノードとその配下をアトミックに一括削除します
// ARGV[1]: 削除対象のパス
// ARGV[2]: 親コレクションのセットキー（ルート直下の場合は空文字）
// ARGV[3]: 削除対象のID
const removeScript = `
local function del(path)
	redis.call('DEL', 'h:' .. path)
	local cols = redis.call('SMEMBERS', 'k:' .. path)
	for _, name in ipairs(cols) do
		local colpath = path .. '/' .. name
		local ids = redis.call('SMEMBERS', 's:' .. colpath)
		for _, id in ipairs(ids) do
			del(colpath .. '/' .. id)
		end
		redis.call('DEL', 's:' .. colpath)
	end
	redis.call('DEL', 'k:' .. path)
end

del(ARGV[1])
if ARGV[2] ~= '' then
	redis.call('SREM', ARGV[2], ARGV[3])
end
return 'OK'
`

func (rs *RedisStore) Read(ctx context.Context, path string) (Snapshot, error) {
	if _, err := splitPath(path); err != nil {
		return Snapshot{}, err
	}
	return rs.read(ctx, path, "")
}

func (rs *RedisStore) read(ctx context.Context, path, id string) (Snapshot, error) {
	fields, err := rs.rdb.HGetAll(ctx, hashKey(path)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}

	cols, err := rs.rdb.SMembers(ctx, colsKey(path)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	sort.Strings(cols)

	var children []Snapshot
	for _, name := range cols {
		colPath := path + "/" + name
		ids, err := rs.rdb.SMembers(ctx, setKey(colPath)).Result()
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		// IDはULIDなので辞書順ソート＝挿入順
		sort.Strings(ids)
		for _, cid := range ids {
			child, err := rs.read(ctx, colPath+"/"+cid, cid)
			if err != nil {
				return Snapshot{}, err
			}
			children = append(children, child)
		}
	}

	return Snapshot{
		ID:       id,
		Exists:   len(fields) > 0 || len(children) > 0,
		Fields:   fields,
		Children: children,
	}, nil
}

func (rs *RedisStore) Push(ctx context.Context, path string, fields map[string]string) (string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty fields", ErrWriteFailure)
	}

	id := idgen.NewULID()
	childPath := path + "/" + id
	parentNode := path[:len(path)-len(parts[len(parts)-1])-1]
	colName := parts[len(parts)-1]

	pipe := rs.rdb.TxPipeline()
	pipe.HSet(ctx, hashKey(childPath), flatten(fields))
	pipe.SAdd(ctx, setKey(path), id)
	pipe.SAdd(ctx, colsKey(parentNode), colName)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	rs.publish(ctx, path)
	return id, nil
}

func (rs *RedisStore) Update(ctx context.Context, path string, fields map[string]string) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := rs.rdb.HSet(ctx, hashKey(path), flatten(fields)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	rs.publish(ctx, path)
	return nil
}

func (rs *RedisStore) Remove(ctx context.Context, path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	// 親コレクションのセットからもIDを外す（ルート直下のノードはセットを持たない）
	parentSet := ""
	id := parts[len(parts)-1]
	if len(parts) > 2 {
		parentSet = setKey(path[: len(path)-len(id)-1])
	}

	if err := rs.rdb.Eval(ctx, removeScript, []string{}, path, parentSet, id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	rs.publish(ctx, path)
	return nil
}

func (rs *RedisStore) Subscribe(path string, fn func()) (UnsubscribeFunc, error) {
	scope, err := roomScope(path)
	if err != nil {
		return nil, err
	}

	n := newNotifier(fn)
	pubsub := rs.rdb.Subscribe(context.Background(), chanKey(scope))

	// 購読が有効になったことを確認してから返す
	// 確認前に返すと、直後の書き込みの通知を取りこぼすことがある
	if _, err := pubsub.Receive(context.Background()); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}

	go func() {
		for range pubsub.Channel() {
			n.call()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.close()
			_ = pubsub.Close()
		})
	}, nil
}

// publish は書き込み後にルームスコープの変更通知を流します
// 通知の取りこぼしは購読側の再読み込みで吸収されるため、失敗してもエラーにしません
func (rs *RedisStore) publish(ctx context.Context, path string) {
	scope, err := roomScope(path)
	if err != nil {
		return
	}
	rs.rdb.Publish(ctx, chanKey(scope), "changed")
}

// flatten はHSetに渡すためにmapをキー・値の列に展開します
func flatten(fields map[string]string) []string {
	out := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
