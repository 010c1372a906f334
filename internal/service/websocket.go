package service

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"debate_arena/internal/models"
)

// Client 代表一個訂閱辯論的 WebSocket 連接
//
// 連接是純觀察者：辯論狀態只會從伺服器推出去，所有操作意圖
// 一律走 HTTP API 提交，避免各客戶端自行重建狀態。
type Client struct {
	ID       string          // 連接標識，與用戶身份無關
	Conn     *websocket.Conn // WebSocket 連接
	UserID   uint            // 用戶 ID；0 表示匿名觀眾
	DebateID uint            // 訂閱的辯論 ID
	SendChan chan *models.Event
}

// WebSocketManager 管理所有的 WebSocket 連接和事件推送
type WebSocketManager struct {
	clients    map[uint]map[*Client]bool // 兩層 map: debateID -> client -> bool
	clientsMux sync.RWMutex              // 用於保護 clients map 的讀寫鎖
}

// NewWebSocketManager 創建並初始化新的 WebSocket 管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[uint]map[*Client]bool),
	}
}

// HandleConnection 處理新的 WebSocket 連接，阻塞直到連接關閉
func (m *WebSocketManager) HandleConnection(conn *websocket.Conn, debateID, userID uint) {
	client := &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		UserID:   userID,
		DebateID: debateID,
		SendChan: make(chan *models.Event, 256),
	}

	m.addClient(client)

	// 確保連接關閉時清理資源。SendChan 不關閉：廣播可能正在
	// 併發寫入，連接關閉後 writePump 會因寫入失敗自行退出。
	defer func() {
		m.removeClient(client)
		conn.Close()
	}()

	go m.writePump(client)
	m.readPump(client)
}

// readPump 持續讀取連接以維持心跳並偵測斷線。
// 客戶端送來的內容一律忽略，操作意圖不走這條通道。
func (m *WebSocketManager) readPump(client *Client) {
	client.Conn.SetReadLimit(4096)
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket unexpected close error: %v", err)
			}
			break
		}
	}
}

// writePump 處理向客戶端推送事件的邏輯
func (m *WebSocketManager) writePump(client *Client) {
	// 心跳計時器
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event := <-client.SendChan:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("event encoding error: %v", err)
				continue
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast 向訂閱某場辯論的所有客戶端推送事件
func (m *WebSocketManager) Broadcast(debateID uint, event *models.Event) {
	m.clientsMux.RLock()
	clients := make([]*Client, 0, len(m.clients[debateID]))
	for client := range m.clients[debateID] {
		clients = append(clients, client)
	}
	m.clientsMux.RUnlock()

	for _, client := range clients {
		select {
		case client.SendChan <- event:
			// 事件成功加入推送隊列
		default:
			// 客戶端隊列已滿，斷開連接
			m.removeClient(client)
			client.Conn.Close()
		}
	}
}

// BroadcastDebateState 推送辯論狀態快照
func (m *WebSocketManager) BroadcastDebateState(debate *models.Debate) {
	m.Broadcast(debate.ID, models.NewDebateStateEvent(debate))
}

// BroadcastArgument 推送新發言
func (m *WebSocketManager) BroadcastArgument(debateID uint, argument *models.Argument) {
	m.Broadcast(debateID, &models.Event{
		Type:      models.EventArgument,
		DebateID:  debateID,
		Payload:   argument,
		Timestamp: time.Now(),
	})
}

// BroadcastSystemMessage 推送系統通知到指定辯論
func (m *WebSocketManager) BroadcastSystemMessage(debateID uint, content string) {
	m.Broadcast(debateID, models.NewSystemEvent(debateID, content))
}

// addClient 安全地添加新的客戶端連接
func (m *WebSocketManager) addClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if m.clients[client.DebateID] == nil {
		m.clients[client.DebateID] = make(map[*Client]bool)
	}
	m.clients[client.DebateID][client] = true
}

// removeClient 安全地移除客戶端連接
func (m *WebSocketManager) removeClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if clients, ok := m.clients[client.DebateID]; ok {
		delete(clients, client)
		// 如果辯論沒有訂閱者了，刪除對應的條目
		if len(clients) == 0 {
			delete(m.clients, client.DebateID)
		}
	}
}

// SubscriberCount 獲取指定辯論的在線訂閱者數量
func (m *WebSocketManager) SubscriberCount(debateID uint) int {
	m.clientsMux.RLock()
	defer m.clientsMux.RUnlock()

	return len(m.clients[debateID])
}
