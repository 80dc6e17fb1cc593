package handlers

import (
	"net/http"
	"sync"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/roomsync"
	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// RoomHub は部屋ごとのWebSocket接続を管理します
// 1ルームにつき1つのライブ購読を持ち、RoomViewの更新を全接続へ配信します
type RoomHub struct {
	rooms map[string]*roomStream // ルームIDをキーとしたストリームのマップ
	mu    sync.Mutex
}

// roomStream は1つの部屋の接続とライブ購読を保持します
// 購読が確立しているかどうかはunsubの有無で判断します
type roomStream struct {
	clients  map[string]*Client    // クライアントIDをキーとした接続のマップ
	unsub    store.UnsubscribeFunc // ライブ購読の解除関数（確立するまではnil）
	starting bool                  // 購読の開始処理中フラグ（二重起動を防ぐ）
	latest   *models.RoomView      // 最後に配信したビュー（後から参加した接続への初回送信用）
}

// Client は1つのWebSocket接続を表します
type Client struct {
	id     string
	conn   *websocket.Conn
	sendMu sync.Mutex // 複数goroutineからの書き込みを直列化
}

func (c *Client) writeJSON(v any) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteJSON(v)
}

// WebSocketMessage はWebSocketで送受信するメッセージの構造
type WebSocketMessage struct {
	Type    string      `json:"type"`    // メッセージタイプ (例: "room_updated", "ping", "pong")
	Payload interface{} `json:"payload,omitempty"` // メッセージのペイロード
}

// WebSocketHandler はルームのライブビュー配信を処理するハンドラー
// 接続は読み取り専用で、変更操作はHTTP API経由でストアに対して行われます
type WebSocketHandler struct {
	watcher  *roomsync.Watcher
	hub      *RoomHub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWebSocketHandler は新しいWebSocketHandlerを作成します
func NewWebSocketHandler(w *roomsync.Watcher, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		watcher: w,
		hub:     &RoomHub{rooms: make(map[string]*roomStream)},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 本番環境では適切なOriginチェックを実装してください
				return true
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// HandleWebSocket はWebSocket接続を処理します
// 接続後、以下の処理を行います:
// 1. HTTPからWebSocketへのアップグレード
// 2. ルームのライブ購読への参加（初回スナップショットの配信を含む）
// 3. ping/pong用の受信ループ
// 4. 切断時のクリーンアップ（最後の接続が抜けたら購読も解除）
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{id: uuid.NewString(), conn: conn}
	if err := h.join(roomId, client); err != nil {
		h.log.Error().Err(err).Str("roomId", roomId).Msg("failed to join room stream")
		_ = client.writeJSON(WebSocketMessage{Type: "error", Payload: map[string]string{"message": "failed to watch room"}})
		conn.Close()
		return
	}
	defer func() {
		h.leave(roomId, client)
		conn.Close()
	}()

	h.log.Info().Str("roomId", roomId).Str("clientId", client.id).Msg("websocket connected")

	// 受信ループ。クライアントからはping以外を受け付けません
	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("roomId", roomId).Msg("websocket read error")
			}
			break
		}
		switch msg.Type {
		case "ping":
			if err := client.writeJSON(WebSocketMessage{Type: "pong"}); err != nil {
				h.log.Warn().Err(err).Msg("failed to send pong")
				return
			}
		default:
			h.log.Debug().Str("type", msg.Type).Msg("ignoring unexpected message type")
		}
	}
}

// join はクライアントをルームのストリームに参加させます
// 購読が未確立で誰も開始中でなければライブ購読を開始します（初回ビューは購読開始時に配信）
// それ以外には保持している最新ビューを即時送信します
// 購読開始が失敗しても確立済み扱いにはせず、次の参加者が開始をやり直します
func (h *WebSocketHandler) join(roomId string, c *Client) error {
	h.hub.mu.Lock()
	rs, ok := h.hub.rooms[roomId]
	if !ok {
		rs = &roomStream{clients: make(map[string]*Client)}
		h.hub.rooms[roomId] = rs
	}
	rs.clients[c.id] = c
	needStart := rs.unsub == nil && !rs.starting
	if needStart {
		rs.starting = true
	}
	latest := rs.latest
	h.hub.mu.Unlock()

	if !needStart {
		if latest != nil {
			_ = c.writeJSON(WebSocketMessage{Type: "room_updated", Payload: *latest})
		}
		return nil
	}

	unsub, err := h.watcher.WatchRoom(roomId, func(view models.RoomView) {
		h.broadcast(roomId, view)
	})

	h.hub.mu.Lock()
	rs.starting = false
	if err != nil {
		delete(rs.clients, c.id)
		if len(rs.clients) == 0 {
			delete(h.hub.rooms, roomId)
		}
		h.hub.mu.Unlock()
		return err
	}
	rs.unsub = unsub
	h.hub.mu.Unlock()
	return nil
}

// leave はクライアントをストリームから外します
// 最後の接続が抜けたらライブ購読も解除します
func (h *WebSocketHandler) leave(roomId string, c *Client) {
	h.hub.mu.Lock()
	rs, ok := h.hub.rooms[roomId]
	if !ok {
		h.hub.mu.Unlock()
		return
	}
	delete(rs.clients, c.id)
	var unsub store.UnsubscribeFunc
	if len(rs.clients) == 0 {
		unsub = rs.unsub
		delete(h.hub.rooms, roomId)
	}
	h.hub.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	h.log.Info().Str("roomId", roomId).Str("clientId", c.id).Msg("websocket disconnected")
}

// broadcast は新しいRoomViewをルームの全接続へ配信します
func (h *WebSocketHandler) broadcast(roomId string, view models.RoomView) {
	h.hub.mu.Lock()
	rs, ok := h.hub.rooms[roomId]
	if !ok {
		h.hub.mu.Unlock()
		return
	}
	v := view
	rs.latest = &v
	clients := make([]*Client, 0, len(rs.clients))
	for _, c := range rs.clients {
		clients = append(clients, c)
	}
	h.hub.mu.Unlock()

	msg := WebSocketMessage{Type: "room_updated", Payload: view}
	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			h.log.Warn().Err(err).Str("clientId", c.id).Msg("failed to push room update")
		}
	}
}
