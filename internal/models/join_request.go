package models

import (
	"gorm.io/gorm"
)

// JoinRequest 表示一條加入辯論的請求
//
// 非創建者想入座前必須先提出請求並等待創建者批准。
// 請求者實際入座後，對應的記錄會被刪除。
type JoinRequest struct {
	gorm.Model
	DebateID    uint              `gorm:"not null;uniqueIndex:idx_debate_requester" json:"debate_id"`
	UserID      uint              `gorm:"not null;uniqueIndex:idx_debate_requester" json:"user_id"`
	DisplayName string            `json:"display_name"`
	Status      JoinRequestStatus `gorm:"type:varchar(20);not null" json:"status"`
}

// JoinRequestStatus 定義加入請求狀態的類型
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestDenied   JoinRequestStatus = "denied"
)
