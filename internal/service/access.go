package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"debate_arena/internal/models"
)

// 加入請求子系統的驗證錯誤
var (
	ErrNotCreator          = errors.New("只有創建者可以執行此操作")
	ErrCreatorNeedsNoAsk   = errors.New("創建者無需提交加入請求")
	ErrRequestExists       = errors.New("已經提交過加入請求")
	ErrRequestNotFound     = errors.New("找不到加入請求")
	ErrRequestResolved     = errors.New("加入請求已處理過")
	ErrJoinRequestRequired = errors.New("請先提交加入請求並等待批准")
	ErrJoinNotApproved     = errors.New("加入請求尚未通過審核")
	ErrJoinDenied          = errors.New("加入請求已被拒絕")
)

// RequestJoin 讓非參與者提出加入辯論的請求。
// 雙方席位都已占用時直接拒絕受理。
func (s *DebateService) RequestJoin(debateID, userID uint, displayName string) (*models.JoinRequest, error) {
	displayName = strings.TrimSpace(displayName)

	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return nil, err
	}
	if debate.IsParticipant(userID) {
		return nil, ErrAlreadyParticipant
	}
	if debate.CreatorID == userID {
		return nil, ErrCreatorNeedsNoAsk
	}
	if debate.ProponentID != 0 && debate.OpponentID != 0 {
		return nil, ErrDebateFull
	}
	if debate.Status != models.DebateStatusWaiting {
		return nil, ErrDebateNotJoinable
	}

	if _, err := s.joinRequestRepo.FindByDebateAndUser(debateID, userID); err == nil {
		return nil, ErrRequestExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	request := &models.JoinRequest{
		DebateID:    debateID,
		UserID:      userID,
		DisplayName: displayName,
		Status:      models.JoinRequestPending,
	}
	if err := s.joinRequestRepo.Create(request); err != nil {
		// 同一用戶同時送出兩次請求時，唯一索引擋下後到的那條
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRequestExists
		}
		return nil, err
	}

	s.wsManager.BroadcastSystemMessage(debateID, displayName+" 請求加入辯論")
	return request, nil
}

// ListJoinRequests 列出待審核的加入請求，僅創建者可見
func (s *DebateService) ListJoinRequests(debateID, callerID uint) ([]models.JoinRequest, error) {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return nil, err
	}
	if debate.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	return s.joinRequestRepo.FindPendingByDebate(debateID)
}

// ResolveJoinRequest 由創建者批准或拒絕加入請求。重複做出同一
// 裁決是無害的空操作；已裁決的請求不能改判，也不會退回待審。
// 批准只代表取得入座資格，請求者仍需自行呼叫 Join 才會實際占位。
func (s *DebateService) ResolveJoinRequest(debateID, callerID, requesterID uint, approve bool) error {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return err
	}
	if debate.CreatorID != callerID {
		return ErrNotCreator
	}

	request, err := s.joinRequestRepo.FindByDebateAndUser(debateID, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}

	target := models.JoinRequestDenied
	if approve {
		target = models.JoinRequestApproved
	}
	if request.Status == target {
		return nil
	}
	if request.Status != models.JoinRequestPending {
		return ErrRequestResolved
	}

	request.Status = target
	if err := s.joinRequestRepo.Update(request); err != nil {
		return err
	}

	if approve {
		s.wsManager.BroadcastSystemMessage(debateID, request.DisplayName+" 的加入請求已批准")
	}
	return nil
}

// authorizeJoin 檢查用戶是否有入座資格：
// 創建者直接放行，其他人必須持有已批准的加入請求。
func (s *DebateService) authorizeJoin(debate *models.Debate, userID uint) error {
	if debate.CreatorID == userID {
		return nil
	}

	request, err := s.joinRequestRepo.FindByDebateAndUser(debate.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJoinRequestRequired
		}
		return err
	}

	switch request.Status {
	case models.JoinRequestApproved:
		return nil
	case models.JoinRequestDenied:
		return ErrJoinDenied
	default:
		return ErrJoinNotApproved
	}
}
