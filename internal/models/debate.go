package models

import (
	"time"

	"gorm.io/gorm"
)

// Debate 表示一場辯論
//
// 整場辯論的狀態都集中在這一筆記錄上，所有狀態轉換都必須
// 透過樂觀鎖（Version 欄位）的條件更新提交，避免多個客戶端
// 同時觸發轉換時互相覆蓋。
type Debate struct {
	gorm.Model
	Topic     string `gorm:"type:text;not null"` // 辯題，建立後不可修改
	CreatorID uint   `gorm:"not null;index"`     // 創建者，負責審核加入請求
	Status    DebateStatus

	// 正方為 A 席位，反方為 B 席位。席位一旦被占用，
	// 整場辯論期間不會易主。0 表示席位尚空。
	ProponentID     uint
	OpponentID      uint
	ProponentAlias  string
	OpponentAlias   string
	ProponentStance string `gorm:"type:text"` // 正方立場陳述，由入座者設定一次
	OpponentStance  string `gorm:"type:text"`

	CurrentSpeaker uint // 當前發言者的用戶 ID；非進行中時為 0
	CurrentRound   int  // 開始前為 0，雙方都發言後才遞增
	TotalRounds    int
	RoundDuration  int // 每輪發言的時間限制（秒）

	// 當前回合發言開始的時間。倒數計時一律由
	// RoundDuration - (now - TurnStartedAt) 推導，不信任客戶端時鐘。
	TurnStartedAt time.Time
	StartTime     time.Time
	EndTime       time.Time

	// 樂觀鎖版本號，每次成功提交轉換時遞增
	Version uint `gorm:"not null;default:0"`
}

// DebateStatus 定義辯論狀態的類型
type DebateStatus string

const (
	DebateStatusWaiting  DebateStatus = "waiting"  // 等待參與者加入
	DebateStatusReady    DebateStatus = "ready"    // 雙方到齊，等待開始
	DebateStatusOngoing  DebateStatus = "ongoing"  // 辯論進行中
	DebateStatusFinished DebateStatus = "finished" // 辯論結束
)

// Slot 定義辯論席位的類型
type Slot string

const (
	SlotProponent Slot = "proponent" // 正方席位
	SlotOpponent  Slot = "opponent"  // 反方席位
)

// IsParticipant 判斷用戶是否占有本場辯論的席位
func (d *Debate) IsParticipant(userID uint) bool {
	return userID != 0 && (d.ProponentID == userID || d.OpponentID == userID)
}

// SlotOf 回傳用戶所占的席位；不是參與者時回傳空字串
func (d *Debate) SlotOf(userID uint) Slot {
	switch {
	case userID != 0 && d.ProponentID == userID:
		return SlotProponent
	case userID != 0 && d.OpponentID == userID:
		return SlotOpponent
	default:
		return ""
	}
}

// SpeakerSlot 回傳當前發言者所占的席位
func (d *Debate) SpeakerSlot() Slot {
	return d.SlotOf(d.CurrentSpeaker)
}

// TurnDeadline 回傳當前回合發言的截止時間
func (d *Debate) TurnDeadline() time.Time {
	return d.TurnStartedAt.Add(time.Duration(d.RoundDuration) * time.Second)
}
