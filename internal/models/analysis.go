package models

import (
	"gorm.io/gorm"
)

// DebateAnalysis 表示辯論結束後的總評
//
// DebateID 上的唯一索引保證總評最多寫入一次：
// 兩個客戶端同時觸發結算時，後到的插入會被資料庫拒絕。
type DebateAnalysis struct {
	gorm.Model
	DebateID       uint    `gorm:"not null;uniqueIndex" json:"debate_id"`
	Winner         string  `gorm:"type:varchar(20);not null" json:"winner"` // proponent / opponent / tie
	ProponentScore float64 `json:"proponent_score"`
	OpponentScore  float64 `json:"opponent_score"`
	Summary        string  `gorm:"type:text" json:"summary"`
	Source         string  `gorm:"type:varchar(20)" json:"source"` // judge / fallback
}

// 總評的勝負結果
const (
	WinnerProponent = "proponent"
	WinnerOpponent  = "opponent"
	WinnerTie       = "tie"
)
