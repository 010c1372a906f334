package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"debate_arena/internal/models"
	"debate_arena/internal/repository"
)

// 狀態轉換的驗證錯誤。這些錯誤同步回給呼叫方，不造成任何狀態變動。
var (
	ErrEmptyTopic         = errors.New("辯題不可為空")
	ErrDebateNotJoinable  = errors.New("辯論不開放加入")
	ErrDebateFull         = errors.New("辯論雙方席位已滿")
	ErrAlreadyParticipant = errors.New("您已經是辯論參與者")
	ErrStanceRequired     = errors.New("請提供立場陳述")
	ErrNotReady           = errors.New("辯論尚未準備就緒")
	ErrNotOngoing         = errors.New("辯論尚未開始或已結束")
	ErrNotParticipant     = errors.New("您不是本場辯論的參與者")
	ErrNotYourTurn        = errors.New("尚未輪到您發言")
	ErrDuplicateArgument  = errors.New("本回合您已經發言過")
	ErrEmptyArgument      = errors.New("發言內容不可為空")
	ErrArgumentTooLong    = errors.New("發言內容超過長度限制")
	ErrTurnNotExpired     = errors.New("回合時間尚未結束")
	ErrInvalidRounds      = errors.New("回合數必須大於 0")
	ErrInvalidDuration    = errors.New("每輪時限必須大於 0")
)

// 版本衝突時的重試上限。每次重試都會重新讀取狀態並重新驗證前置條件。
const casRetryLimit = 3

// SkippedContent 是超時未發言時由系統補記的發言內容
const SkippedContent = "（超時未發言，本輪跳過）"

// DebateService 是辯論的狀態機，所有轉換都走
// 讀取、驗證、計算、條件提交四步，提交失敗視為事件作廢或重試。
type DebateService struct {
	debateRepo      repository.DebateRepository
	argumentRepo    repository.ArgumentRepository
	joinRequestRepo repository.JoinRequestRepository
	analysisRepo    repository.AnalysisRepository
	scorer          *ScorerAdapter
	wsManager       *WebSocketManager
	clock           Clock
	maxArgumentLen  int // 發言長度上限（字元數）

	// 評分與總評在轉換提交之後非同步執行；
	// 測試時替換成同步呼叫以便斷言
	dispatch func(fn func())
}

func NewDebateService(repos *repository.Repositories, scorer *ScorerAdapter, wsManager *WebSocketManager, clock Clock, maxArgumentLen int) *DebateService {
	return &DebateService{
		debateRepo:      repos.Debate,
		argumentRepo:    repos.Argument,
		joinRequestRepo: repos.JoinRequest,
		analysisRepo:    repos.Analysis,
		scorer:          scorer,
		wsManager:       wsManager,
		clock:           clock,
		maxArgumentLen:  maxArgumentLen,
		dispatch:        func(fn func()) { go fn() },
	}
}

func (s *DebateService) CreateDebate(creatorID uint, topic string, totalRounds, roundDuration int) (*models.Debate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if totalRounds <= 0 {
		return nil, ErrInvalidRounds
	}
	if roundDuration <= 0 {
		return nil, ErrInvalidDuration
	}

	debate := &models.Debate{
		Topic:         topic,
		CreatorID:     creatorID,
		Status:        models.DebateStatusWaiting,
		TotalRounds:   totalRounds,
		RoundDuration: roundDuration,
	}
	if err := s.debateRepo.Create(debate); err != nil {
		return nil, err
	}
	return debate, nil
}

func (s *DebateService) GetDebate(debateID uint) (*models.Debate, error) {
	return s.debateRepo.FindByID(debateID)
}

func (s *DebateService) ListDebates() ([]models.Debate, error) {
	return s.debateRepo.FindAll()
}

func (s *DebateService) GetArguments(debateID uint) ([]models.Argument, error) {
	if _, err := s.debateRepo.FindByID(debateID); err != nil {
		return nil, err
	}
	return s.argumentRepo.FindByDebateID(debateID)
}

// Join 讓用戶入座。先到者占正方席位並率先發言；席位一旦占用
// 整場辯論不再易主。創建者可直接入座，其他人必須持有已批准的
// 加入請求（見 access.go）。
func (s *DebateService) Join(debateID, userID uint, alias, stance string) error {
	alias = strings.TrimSpace(alias)
	stance = strings.TrimSpace(stance)

	return s.retryOnConflict(func() error {
		debate, err := s.debateRepo.FindByID(debateID)
		if err != nil {
			return err
		}
		if debate.IsParticipant(userID) {
			return ErrAlreadyParticipant
		}
		if debate.Status != models.DebateStatusWaiting {
			return ErrDebateNotJoinable
		}
		if err := s.authorizeJoin(debate, userID); err != nil {
			return err
		}
		if stance == "" {
			return ErrStanceRequired
		}

		// 第一個空席位優先，正方在前
		switch {
		case debate.ProponentID == 0:
			debate.ProponentID = userID
			debate.ProponentAlias = alias
			debate.ProponentStance = stance
		case debate.OpponentID == 0:
			debate.OpponentID = userID
			debate.OpponentAlias = alias
			debate.OpponentStance = stance
		default:
			return ErrDebateFull
		}

		if debate.ProponentID != 0 && debate.OpponentID != 0 {
			debate.Status = models.DebateStatusReady
		}

		if err := s.debateRepo.UpdateCAS(debate); err != nil {
			return err
		}

		// 入座後移除對應的加入請求記錄
		if err := s.joinRequestRepo.Delete(debateID, userID); err != nil {
			log.Printf("remove join request for debate %d user %d: %v", debateID, userID, err)
		}

		s.wsManager.BroadcastDebateState(debate)
		s.wsManager.BroadcastSystemMessage(debate.ID, alias+" 加入辯論")
		return nil
	})
}

// Start 開始辯論。雙方到齊後由任一參與者或創建者觸發，
// 第一回合固定由正方（先入座者）發言。
func (s *DebateService) Start(debateID, callerID uint) error {
	return s.retryOnConflict(func() error {
		debate, err := s.debateRepo.FindByID(debateID)
		if err != nil {
			return err
		}
		if debate.Status != models.DebateStatusReady {
			return ErrNotReady
		}
		if !debate.IsParticipant(callerID) && debate.CreatorID != callerID {
			return ErrNotParticipant
		}

		now := s.clock.Now()
		debate.Status = models.DebateStatusOngoing
		debate.StartTime = now
		debate.CurrentRound = 1
		debate.CurrentSpeaker = debate.ProponentID
		debate.TurnStartedAt = now

		if err := s.debateRepo.UpdateCAS(debate); err != nil {
			return err
		}

		s.wsManager.BroadcastDebateState(debate)
		s.wsManager.BroadcastSystemMessage(debate.ID, "辯論開始，第1回合，正方發言")
		return nil
	})
}

// SubmitArgument 提交一條發言。長度超限直接拒絕而不截斷。
// 發言先以未評分狀態落庫並與輪次推進一起提交，評審評分
// 在提交之後非同步補寫，輪次推進不等待評審。
func (s *DebateService) SubmitArgument(debateID, userID uint, content string) (*models.Argument, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyArgument
	}
	if utf8.RuneCountInString(content) > s.maxArgumentLen {
		return nil, ErrArgumentTooLong
	}

	var argument *models.Argument
	err := s.retryOnConflict(func() error {
		debate, err := s.debateRepo.FindByID(debateID)
		if err != nil {
			return err
		}
		if debate.Status != models.DebateStatusOngoing {
			return ErrNotOngoing
		}
		if debate.CurrentSpeaker != userID {
			return ErrNotYourTurn
		}

		slot := debate.SpeakerSlot()
		arg := &models.Argument{
			DebateID: debate.ID,
			Round:    debate.CurrentRound,
			Slot:     slot,
			UserID:   userID,
			Content:  content,
		}

		s.advanceTurn(debate, slot)

		if err := s.debateRepo.CommitTurn(debate, arg); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateArgument
			}
			return err
		}

		argument = arg
		s.afterTurn(debate, arg)
		return nil
	})
	return argument, err
}

// TimeoutTurn 在回合計時到期後把當前發言者記為缺席：補一條
// 固定 0 分的跳過發言，輪次推進方式與正常發言完全相同。
// 與幾乎同時落地的發言賽跑輸了時，超時判定自行作廢。
func (s *DebateService) TimeoutTurn(debateID uint) error {
	targetRound := -1
	var targetSlot models.Slot

	return s.retryOnConflict(func() error {
		debate, err := s.debateRepo.FindByID(debateID)
		if err != nil {
			return err
		}
		if debate.Status != models.DebateStatusOngoing {
			if targetRound >= 0 {
				// 第一次讀取後辯論已結束，超時判定作廢
				return nil
			}
			return ErrNotOngoing
		}

		slot := debate.SpeakerSlot()
		if targetRound < 0 {
			targetRound = debate.CurrentRound
			targetSlot = slot
		} else if debate.CurrentRound != targetRound || slot != targetSlot {
			// 重試時發現輪次已被其他事件推進，超時判定作廢
			return nil
		}

		if s.clock.Now().Before(debate.TurnDeadline()) {
			return ErrTurnNotExpired
		}

		zero := 0.0
		arg := &models.Argument{
			DebateID:    debate.ID,
			Round:       debate.CurrentRound,
			Slot:        slot,
			UserID:      debate.CurrentSpeaker,
			Content:     SkippedContent,
			Skipped:     true,
			Score:       &zero,
			ScoreSource: models.ScoreSourceSkipped,
		}

		s.advanceTurn(debate, slot)

		if err := s.debateRepo.CommitTurn(debate, arg); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// 發言搶先一步落地，超時判定作廢
				return nil
			}
			return err
		}

		s.wsManager.BroadcastSystemMessage(debate.ID, "發言時間已到，本輪跳過")
		s.afterTurn(debate, arg)
		return nil
	})
}

// RemainingTime 回傳當前回合剩餘的秒數。一律由伺服器端的
// TurnStartedAt 推導，不信任客戶端自走的倒數計時。
func (s *DebateService) RemainingTime(debateID uint) (int, error) {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return 0, err
	}
	if debate.Status != models.DebateStatusOngoing {
		return 0, nil
	}
	remaining := debate.TurnDeadline().Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining.Seconds()), nil
}

// advanceTurn 在 closedSlot 的發言成立後推進輪次。回合內發言
// 順序固定是正方後反方，反方發言成立即代表雙方都已發言。
func (s *DebateService) advanceTurn(debate *models.Debate, closedSlot models.Slot) {
	now := s.clock.Now()

	if closedSlot == models.SlotProponent {
		debate.CurrentSpeaker = debate.OpponentID
		debate.TurnStartedAt = now
		return
	}

	debate.CurrentRound++
	if debate.CurrentRound > debate.TotalRounds {
		debate.Status = models.DebateStatusFinished
		debate.CurrentSpeaker = 0
		debate.EndTime = now
		return
	}

	debate.CurrentSpeaker = debate.ProponentID
	debate.TurnStartedAt = now
}

// afterTurn 在轉換提交成功後發出通知、排程評分，
// 辯論結束時再排程總評。
func (s *DebateService) afterTurn(debate *models.Debate, argument *models.Argument) {
	s.wsManager.BroadcastArgument(debate.ID, argument)
	s.wsManager.BroadcastDebateState(debate)

	if !argument.Skipped {
		argumentID := argument.ID
		debateID := debate.ID
		s.dispatch(func() { s.scoreArgument(debateID, argumentID) })
	}

	if debate.Status == models.DebateStatusFinished {
		s.wsManager.BroadcastSystemMessage(debate.ID, "辯論結束")
		debateID := debate.ID
		s.dispatch(func() {
			if _, err := s.AnalyzeDebate(debateID); err != nil {
				log.Printf("debate %d analysis failed: %v", debateID, err)
			}
		})
	} else if debate.Status == models.DebateStatusOngoing {
		side := "正方"
		if debate.SpeakerSlot() == models.SlotOpponent {
			side = "反方"
		}
		s.wsManager.BroadcastSystemMessage(debate.ID,
			"第"+strconv.Itoa(debate.CurrentRound)+"回合，"+side+"發言")
	}
}

// scoreArgument 呼叫評審為發言評分並冪等補寫結果。
// 評審失敗時由 ScorerAdapter 兜底，這裡永遠拿得到分數。
func (s *DebateService) scoreArgument(debateID, argumentID uint) {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		log.Printf("score argument %d: load debate: %v", argumentID, err)
		return
	}
	arguments, err := s.argumentRepo.FindByDebateID(debateID)
	if err != nil {
		log.Printf("score argument %d: load arguments: %v", argumentID, err)
		return
	}

	var target *models.Argument
	var prior []models.Argument
	for i := range arguments {
		if arguments[i].ID == argumentID {
			target = &arguments[i]
			break
		}
		prior = append(prior, arguments[i])
	}
	if target == nil || target.ScoreSource != "" {
		// 找不到或已有評分，視為已完成
		return
	}

	stance := debate.ProponentStance
	if target.Slot == models.SlotOpponent {
		stance = debate.OpponentStance
	}

	score, source := s.scorer.ScoreArgument(context.Background(), ScoreRequest{
		Topic:          debate.Topic,
		Slot:           target.Slot,
		Stance:         stance,
		Content:        target.Content,
		PriorArguments: prior,
	})

	if err := s.argumentRepo.AttachScore(target.ID, score.Score, source, marshalFeedback(score)); err != nil {
		log.Printf("attach score for argument %d: %v", target.ID, err)
		return
	}

	s.wsManager.Broadcast(debateID, &models.Event{
		Type:     models.EventArgumentScored,
		DebateID: debateID,
		Payload: map[string]interface{}{
			"argument_id": target.ID,
			"score":       score.Score,
			"source":      source,
		},
		Timestamp: s.clock.Now(),
	})
}

// retryOnConflict 在樂觀鎖衝突時重新執行整個
// 讀取、驗證、提交流程，衝突以外的錯誤原樣回傳。
func (s *DebateService) retryOnConflict(op func() error) error {
	var err error
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		err = op()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
	}
	return err
}
