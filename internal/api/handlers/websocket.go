package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"debate_arena/internal/models"
	"debate_arena/internal/service"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	wsManager     *service.WebSocketManager
	debateService *service.DebateService
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(wsManager *service.WebSocketManager, debateService *service.DebateService) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:     wsManager,
		debateService: debateService,
	}
}

// HandleWebSocket 處理訂閱辯論的 WebSocket 連接請求。
// 連接建立後先推一份當前狀態快照，之後每次狀態轉換都會收到事件。
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	debateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的辯論 ID"})
		return
	}

	debate, err := h.debateService.GetDebate(uint(debateID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "辯論不存在"})
		return
	}

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升級WebSocket失敗"})
		return
	}

	// 先推一份當前狀態快照，讓重連的客戶端立即對齊權威狀態
	if err := conn.WriteJSON(models.NewDebateStateEvent(debate)); err != nil {
		conn.Close()
		return
	}

	// 阻塞處理連接，期間由管理器負責事件推送與心跳
	h.wsManager.HandleConnection(conn, debate.ID, userID.(uint))
}
