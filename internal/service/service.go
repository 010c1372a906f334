package service

import (
	"time"

	"debate_arena/internal/repository"
)

type Services struct {
	User      *UserService
	Debate    *DebateService
	WebSocket *WebSocketManager
}

// Options 是服務層的組裝參數
type Options struct {
	Judge             Judge
	JudgeTimeout      time.Duration
	MaxArgumentLength int
}

func NewServices(repos *repository.Repositories, opts Options) *Services {
	wsManager := NewWebSocketManager()
	scorer := NewScorerAdapter(opts.Judge, opts.JudgeTimeout)

	return &Services{
		User:      NewUserService(repos.User),
		Debate:    NewDebateService(repos, scorer, wsManager, SystemClock(), opts.MaxArgumentLength),
		WebSocket: wsManager,
	}
}
