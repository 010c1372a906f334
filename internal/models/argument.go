package models

import (
	"gorm.io/gorm"
)

// Argument 表示一條辯論發言
//
// (DebateID, Round, Slot) 的唯一索引是防止重複發言的最後防線：
// 即使兩個客戶端同時為同一回合提交（例如發言與超時判定賽跑），
// 資料庫也只會接受其中一條。
type Argument struct {
	gorm.Model
	DebateID uint   `gorm:"not null;uniqueIndex:idx_debate_round_slot" json:"debate_id"`
	Round    int    `gorm:"not null;uniqueIndex:idx_debate_round_slot" json:"round"`
	Slot     Slot   `gorm:"type:varchar(20);not null;uniqueIndex:idx_debate_round_slot" json:"slot"`
	UserID   uint   `json:"user_id"`
	Content  string `gorm:"type:text" json:"content"`

	// 超時未發言時由系統補記的發言，分數固定為 0
	Skipped bool `json:"skipped"`

	// 評審回覆前為 nil。評分透過獨立的冪等更新補寫，
	// 發言與輪次推進不等待評審。
	Score       *float64 `json:"score"`
	ScoreSource string   `gorm:"type:varchar(20)" json:"score_source"` // judge / fallback / skipped；待評時為空
	Feedback    string   `gorm:"type:jsonb" json:"feedback,omitempty"` // 評審回覆的完整 JSON
}

// 評分來源
const (
	ScoreSourceJudge    = "judge"
	ScoreSourceFallback = "fallback"
	ScoreSourceSkipped  = "skipped"
)
