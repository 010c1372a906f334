package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"debate_arena/internal/models"
)

// ErrDebateNotFinished 表示辯論還沒結束，不能結算
var ErrDebateNotFinished = errors.New("辯論尚未結束")

// AnalyzeDebate 為已結束的辯論產生總評。評審失敗時退回
// 平均分比較（見 scorer.go）。DebateID 的唯一索引保證總評
// 只寫入一次：重複觸發會讀回既有的那筆而不產生第二次寫入。
func (s *DebateService) AnalyzeDebate(debateID uint) (*models.DebateAnalysis, error) {
	debate, err := s.debateRepo.FindByID(debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.DebateStatusFinished {
		return nil, ErrDebateNotFinished
	}

	// 已有總評時直接回傳，不重算也不覆寫
	if existing, err := s.analysisRepo.FindByDebateID(debateID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	arguments, err := s.argumentRepo.FindByDebateID(debateID)
	if err != nil {
		return nil, err
	}

	verdict, source := s.scorer.AnalyzeDebate(context.Background(), VerdictRequest{
		Topic:           debate.Topic,
		ProponentStance: debate.ProponentStance,
		OpponentStance:  debate.OpponentStance,
		Arguments:       arguments,
	})

	analysis := &models.DebateAnalysis{
		DebateID:       debateID,
		Winner:         verdict.Winner,
		ProponentScore: verdict.ProponentScore,
		OpponentScore:  verdict.OpponentScore,
		Summary:        verdict.Summary,
		Source:         source,
	}
	if err := s.analysisRepo.Create(analysis); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 另一個觸發者搶先寫入，讀回那一筆即可
			return s.analysisRepo.FindByDebateID(debateID)
		}
		return nil, err
	}

	s.wsManager.Broadcast(debateID, &models.Event{
		Type:      models.EventAnalysis,
		DebateID:  debateID,
		Payload:   analysis,
		Timestamp: s.clock.Now(),
	})
	return analysis, nil
}

// GetAnalysis 查詢辯論總評
func (s *DebateService) GetAnalysis(debateID uint) (*models.DebateAnalysis, error) {
	return s.analysisRepo.FindByDebateID(debateID)
}
