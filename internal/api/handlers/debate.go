package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"debate_arena/internal/repository"
	"debate_arena/internal/service"
)

// DebateHandler 處理與辯論相關的請求
type DebateHandler struct {
	debateService *service.DebateService
}

// NewDebateHandler 創建一個新的 DebateHandler 實例
func NewDebateHandler(debateService *service.DebateService) *DebateHandler {
	return &DebateHandler{debateService: debateService}
}

// CreateDebate 處理創建新辯論的請求
func (h *DebateHandler) CreateDebate(c *gin.Context) {
	var input struct {
		Topic         string `json:"topic" binding:"required"`
		TotalRounds   int    `json:"total_rounds" binding:"required"`
		RoundDuration int    `json:"round_duration" binding:"required"` // 秒
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	debate, err := h.debateService.CreateDebate(userID.(uint), input.Topic, input.TotalRounds, input.RoundDuration)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, debate)
}

// ListDebates 處理獲取辯論列表的請求
func (h *DebateHandler) ListDebates(c *gin.Context) {
	debates, err := h.debateService.ListDebates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法查詢辯論列表"})
		return
	}
	c.JSON(http.StatusOK, debates)
}

// GetDebate 處理獲取辯論訊息的請求
func (h *DebateHandler) GetDebate(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	debate, err := h.debateService.GetDebate(debateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "辯論不存在"})
		return
	}

	c.JSON(http.StatusOK, debate)
}

// RequestJoin 處理提出加入請求
func (h *DebateHandler) RequestJoin(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	var input struct {
		DisplayName string `json:"display_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	request, err := h.debateService.RequestJoin(debateID, userID.(uint), input.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// ListJoinRequests 列出待審核的加入請求（僅創建者）
func (h *DebateHandler) ListJoinRequests(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	userID, _ := c.Get("userID")
	requests, err := h.debateService.ListJoinRequests(debateID, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// ResolveJoinRequest 處理批准或拒絕加入請求
func (h *DebateHandler) ResolveJoinRequest(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	requesterID, err := strconv.ParseUint(c.Param("userID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的用戶 ID"})
		return
	}

	var input struct {
		Action string `json:"action" binding:"required,oneof=approve deny"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	err = h.debateService.ResolveJoinRequest(debateID, userID.(uint), uint(requesterID), input.Action == "approve")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "加入請求已處理"})
}

// Join 處理入座請求
func (h *DebateHandler) Join(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	var input struct {
		Alias  string `json:"alias" binding:"required"`
		Stance string `json:"stance" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	if err := h.debateService.Join(debateID, userID.(uint), input.Alias, input.Stance); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "成功加入辯論"})
}

// Start 處理開始辯論的請求
func (h *DebateHandler) Start(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	userID, _ := c.Get("userID")
	if err := h.debateService.Start(debateID, userID.(uint)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "辯論開始"})
}

// SubmitArgument 處理提交發言的請求
func (h *DebateHandler) SubmitArgument(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	argument, err := h.debateService.SubmitArgument(debateID, userID.(uint), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, argument)
}

// ListArguments 處理獲取發言記錄的請求
func (h *DebateHandler) ListArguments(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	arguments, err := h.debateService.GetArguments(debateID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, arguments)
}

// TimeoutTurn 處理回合超時判定。任何觀察到計時歸零的客戶端
// 都可以觸發；與發言賽跑輸了的判定會靜默作廢。
func (h *DebateHandler) TimeoutTurn(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	if err := h.debateService.TimeoutTurn(debateID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "超時判定已處理"})
}

// GetRemainingTime 處理查詢當前回合剩餘時間的請求
func (h *DebateHandler) GetRemainingTime(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	remaining, err := h.debateService.RemainingTime(debateID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remaining_time": remaining})
}

// GetAnalysis 處理查詢辯論總評的請求
func (h *DebateHandler) GetAnalysis(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	analysis, err := h.debateService.GetAnalysis(debateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "總評尚未產生"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// TriggerAnalysis 處理手動觸發結算的請求。結算是冪等的，
// 重複觸發回傳既有的總評。
func (h *DebateHandler) TriggerAnalysis(c *gin.Context) {
	debateID, ok := parseDebateID(c)
	if !ok {
		return
	}

	analysis, err := h.debateService.AnalyzeDebate(debateID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func parseDebateID(c *gin.Context) (uint, bool) {
	debateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的辯論 ID"})
		return 0, false
	}
	return uint(debateID), true
}

// respondError 把服務層的錯誤分類映射到 HTTP 狀態碼：
// 驗證錯誤 400、權限錯誤 403、查無資料 404、併發衝突 409，
// 其餘視為存儲層故障回 500。
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "辯論不存在"})
	case errors.Is(err, service.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotCreator),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrJoinRequestRequired),
		errors.Is(err, service.ErrJoinNotApproved),
		errors.Is(err, service.ErrJoinDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateArgument),
		errors.Is(err, service.ErrRequestExists),
		errors.Is(err, repository.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "操作失敗，請稍後再試"})
	}
}

func isValidationError(err error) bool {
	for _, known := range []error{
		service.ErrEmptyTopic,
		service.ErrDebateNotJoinable,
		service.ErrDebateFull,
		service.ErrAlreadyParticipant,
		service.ErrStanceRequired,
		service.ErrNotReady,
		service.ErrNotOngoing,
		service.ErrNotYourTurn,
		service.ErrEmptyArgument,
		service.ErrArgumentTooLong,
		service.ErrTurnNotExpired,
		service.ErrInvalidRounds,
		service.ErrInvalidDuration,
		service.ErrCreatorNeedsNoAsk,
		service.ErrRequestResolved,
		service.ErrDebateNotFinished,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
