package models

import (
	"time"
)

// Event 代表一條透過 WebSocket 推送給訂閱者的事件
//
// 事件本身不落庫；辯論與發言記錄才是權威狀態，
// 客戶端斷線重連後應重新讀取辯論狀態，而不是依賴事件回放。
type Event struct {
	Type      string      `json:"type"`
	DebateID  uint        `json:"debate_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// 事件類型
const (
	EventDebateState    = "debate_state"    // 辯論狀態快照
	EventArgument       = "argument"        // 新發言
	EventArgumentScored = "argument_scored" // 發言評分完成
	EventAnalysis       = "analysis"        // 總評出爐
	EventSystem         = "system"          // 系統通知
)

// NewDebateStateEvent 建立一條辯論狀態快照事件
func NewDebateStateEvent(debate *Debate) *Event {
	return &Event{
		Type:      EventDebateState,
		DebateID:  debate.ID,
		Payload:   debate,
		Timestamp: time.Now(),
	}
}

// NewSystemEvent 建立一條系統通知事件
func NewSystemEvent(debateID uint, content string) *Event {
	return &Event{
		Type:      EventSystem,
		DebateID:  debateID,
		Payload:   content,
		Timestamp: time.Now(),
	}
}
