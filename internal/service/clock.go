package service

import "time"

// Clock 提供當前時間，讓計時相關的邏輯可以在測試中控制時間
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 回傳使用系統時間的 Clock
func SystemClock() Clock { return systemClock{} }
